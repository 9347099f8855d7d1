// Package mirror copies confirmed records to external bookkeeping tools.
// Every sink is best effort: failures are logged and counted, never returned
// to the request that caused them.
package mirror

import (
	"context"
	"fmt"

	"counto/internal/models"
)

type JobKind string

const (
	JobTransaction JobKind = "transaction"
	JobCustomer    JobKind = "customer"
	JobVendor      JobKind = "vendor"
)

// Job carries a snapshot of the record at commit time.
type Job struct {
	Kind        JobKind
	Transaction *models.Transaction
	// PartyName is the resolved customer or vendor name of Transaction, if any.
	PartyName string
	Customer  *models.Customer
	Vendor    *models.Vendor
}

func (j Job) entityID() string {
	switch j.Kind {
	case JobTransaction:
		if j.Transaction != nil {
			return j.Transaction.ID.String()
		}
	case JobCustomer:
		if j.Customer != nil {
			return j.Customer.ID.String()
		}
	case JobVendor:
		if j.Vendor != nil {
			return j.Vendor.ID.String()
		}
	}
	return ""
}

type Sink interface {
	Name() string
	SyncTransaction(ctx context.Context, tx *models.Transaction, partyName string) error
	SyncCustomer(ctx context.Context, c *models.Customer) error
	SyncVendor(ctx context.Context, v *models.Vendor) error
}

func deliver(ctx context.Context, sink Sink, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()

	switch job.Kind {
	case JobTransaction:
		return sink.SyncTransaction(ctx, job.Transaction, job.PartyName)
	case JobCustomer:
		return sink.SyncCustomer(ctx, job.Customer)
	case JobVendor:
		return sink.SyncVendor(ctx, job.Vendor)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
