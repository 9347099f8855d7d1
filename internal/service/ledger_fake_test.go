package service_test

import (
	"context"
	"sort"
	"strings"
	"time"

	"counto/internal/domain"
	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memLedger is a single-goroutine in-memory Ledger. InTx snapshots all state
// and restores it when fn fails.
type memLedger struct {
	convs     map[uuid.UUID]models.Conversation
	msgs      []models.Message
	pending   map[uuid.UUID]models.PendingTransaction
	customers map[uuid.UUID]models.Customer
	vendors   map[uuid.UUID]models.Vendor
	txs       map[uuid.UUID]models.Transaction

	// injected failures
	txCreateErr    error
	addReceivedErr error
	listErr        error
}

func newMemLedger() *memLedger {
	return &memLedger{
		convs:     map[uuid.UUID]models.Conversation{},
		pending:   map[uuid.UUID]models.PendingTransaction{},
		customers: map[uuid.UUID]models.Customer{},
		vendors:   map[uuid.UUID]models.Vendor{},
		txs:       map[uuid.UUID]models.Transaction{},
	}
}

func (l *memLedger) Conversations() repository.ConversationStore { return memConvs{l} }
func (l *memLedger) Pending() repository.PendingStore            { return memPending{l} }
func (l *memLedger) Customers() repository.CustomerStore         { return memCustomers{l} }
func (l *memLedger) Vendors() repository.VendorStore             { return memVendors{l} }
func (l *memLedger) Transactions() repository.TransactionStore   { return memTxs{l} }

func (l *memLedger) InTx(ctx context.Context, fn func(repository.Ledger) error) error {
	snap := l.snapshot()
	if err := fn(l); err != nil {
		l.restore(snap)
		return err
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (l *memLedger) snapshot() *memLedger {
	return &memLedger{
		convs:     copyMap(l.convs),
		msgs:      append([]models.Message(nil), l.msgs...),
		pending:   copyMap(l.pending),
		customers: copyMap(l.customers),
		vendors:   copyMap(l.vendors),
		txs:       copyMap(l.txs),
	}
}

func (l *memLedger) restore(s *memLedger) {
	l.convs, l.msgs, l.pending = s.convs, s.msgs, s.pending
	l.customers, l.vendors, l.txs = s.customers, s.vendors, s.txs
}

func (l *memLedger) messagesOf(convID uuid.UUID) []models.Message {
	var out []models.Message
	for _, m := range l.msgs {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out
}

func notFound(resource string, id uuid.UUID) error {
	return &domain.ErrNotFound{Resource: resource, ID: id.String()}
}

type memConvs struct{ l *memLedger }

func (s memConvs) Create(ctx context.Context, c *models.Conversation) error {
	s.l.convs[c.ID] = *c
	return nil
}

func (s memConvs) Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	c, ok := s.l.convs[id]
	if !ok || c.UserID != userID {
		return nil, notFound("conversation", id)
	}
	return &c, nil
}

func (s memConvs) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, c := range s.l.convs {
		if c.UserID == userID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s memConvs) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	c, ok := s.l.convs[id]
	if !ok {
		return notFound("conversation", id)
	}
	c.UpdatedAt = at
	s.l.convs[id] = c
	return nil
}

func (s memConvs) AppendMessage(ctx context.Context, m *models.Message) error {
	s.l.msgs = append(s.l.msgs, *m)
	return nil
}

func (s memConvs) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	msgs := s.l.messagesOf(conversationID)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, &msgs[i])
	}
	return out, nil
}

type memPending struct{ l *memLedger }

func (s memPending) Create(ctx context.Context, p *models.PendingTransaction) error {
	for _, existing := range s.l.pending {
		if existing.ConversationID == p.ConversationID {
			return &domain.ErrConflict{Message: "pending transaction already exists for conversation"}
		}
	}
	s.l.pending[p.ID] = *p
	return nil
}

func (s memPending) Latest(ctx context.Context, conversationID uuid.UUID) (*models.PendingTransaction, error) {
	for _, p := range s.l.pending {
		if p.ConversationID == conversationID {
			return &p, nil
		}
	}
	return nil, notFound("pending transaction", conversationID)
}

func (s memPending) Get(ctx context.Context, id, userID uuid.UUID) (*models.PendingTransaction, error) {
	p, ok := s.l.pending[id]
	if !ok || p.UserID != userID {
		return nil, notFound("pending transaction", id)
	}
	return &p, nil
}

func (s memPending) Update(ctx context.Context, p *models.PendingTransaction) error {
	if _, ok := s.l.pending[p.ID]; !ok {
		return notFound("pending transaction", p.ID)
	}
	s.l.pending[p.ID] = *p
	return nil
}

func (s memPending) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := s.l.pending[id]
	delete(s.l.pending, id)
	return ok, nil
}

func (s memPending) DeleteByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	var n int64
	for id, p := range s.l.pending {
		if p.ConversationID == conversationID {
			delete(s.l.pending, id)
			n++
		}
	}
	return n, nil
}

func (s memPending) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, p := range s.l.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(s.l.pending, id)
			n++
		}
	}
	return n, nil
}

type memCustomers struct{ l *memLedger }

func (s memCustomers) findByName(userID uuid.UUID, name string) (models.Customer, bool) {
	for _, c := range s.l.customers {
		if c.UserID == userID && c.Name == name {
			return c, true
		}
	}
	return models.Customer{}, false
}

func (s memCustomers) Create(ctx context.Context, c *models.Customer) error {
	if _, ok := s.findByName(c.UserID, c.Name); ok {
		return &domain.ErrConflict{Message: "customer " + c.Name + " already exists"}
	}
	s.l.customers[c.ID] = *c
	return nil
}

func (s memCustomers) Get(ctx context.Context, id, userID uuid.UUID) (*models.Customer, error) {
	c, ok := s.l.customers[id]
	if !ok || c.UserID != userID {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

func (s memCustomers) GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Customer, bool, error) {
	name = strings.TrimSpace(name)
	if c, ok := s.findByName(userID, name); ok {
		return &c, false, nil
	}
	c := models.NewCustomer(userID, name)
	s.l.customers[c.ID] = *c
	return c, true, nil
}

func (s memCustomers) List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Customer, error) {
	if s.l.listErr != nil {
		return nil, s.l.listErr
	}
	var out []*models.Customer
	for _, c := range s.l.customers {
		if c.UserID != userID || (active != nil && c.IsActive != *active) {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memCustomers) Update(ctx context.Context, c *models.Customer) error {
	existing, ok := s.l.customers[c.ID]
	if !ok || existing.UserID != c.UserID {
		return notFound("customer", c.ID)
	}
	// balances are only moved by AddReceived
	c.TotalReceived = existing.TotalReceived
	s.l.customers[c.ID] = *c
	return nil
}

func (s memCustomers) Delete(ctx context.Context, id, userID uuid.UUID) error {
	c, ok := s.l.customers[id]
	if !ok || c.UserID != userID {
		return notFound("customer", id)
	}
	delete(s.l.customers, id)
	for txID, tx := range s.l.txs {
		if tx.CustomerID != nil && *tx.CustomerID == id {
			tx.CustomerID = nil
			s.l.txs[txID] = tx
		}
	}
	return nil
}

func (s memCustomers) AddReceived(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	if s.l.addReceivedErr != nil {
		return nil, s.l.addReceivedErr
	}
	c, ok := s.l.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	c.TotalReceived = c.TotalReceived.Add(amount)
	s.l.customers[id] = c
	return &c, nil
}

type memVendors struct{ l *memLedger }

func (s memVendors) findByName(userID uuid.UUID, name string) (models.Vendor, bool) {
	for _, v := range s.l.vendors {
		if v.UserID == userID && v.Name == name {
			return v, true
		}
	}
	return models.Vendor{}, false
}

func (s memVendors) Create(ctx context.Context, v *models.Vendor) error {
	if _, ok := s.findByName(v.UserID, v.Name); ok {
		return &domain.ErrConflict{Message: "vendor " + v.Name + " already exists"}
	}
	s.l.vendors[v.ID] = *v
	return nil
}

func (s memVendors) Get(ctx context.Context, id, userID uuid.UUID) (*models.Vendor, error) {
	v, ok := s.l.vendors[id]
	if !ok || v.UserID != userID {
		return nil, notFound("vendor", id)
	}
	return &v, nil
}

func (s memVendors) GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Vendor, bool, error) {
	name = strings.TrimSpace(name)
	if v, ok := s.findByName(userID, name); ok {
		return &v, false, nil
	}
	v := models.NewVendor(userID, name)
	s.l.vendors[v.ID] = *v
	return v, true, nil
}

func (s memVendors) List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Vendor, error) {
	if s.l.listErr != nil {
		return nil, s.l.listErr
	}
	var out []*models.Vendor
	for _, v := range s.l.vendors {
		if v.UserID != userID || (active != nil && v.IsActive != *active) {
			continue
		}
		v := v
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memVendors) Update(ctx context.Context, v *models.Vendor) error {
	existing, ok := s.l.vendors[v.ID]
	if !ok || existing.UserID != v.UserID {
		return notFound("vendor", v.ID)
	}
	v.TotalPaid = existing.TotalPaid
	s.l.vendors[v.ID] = *v
	return nil
}

func (s memVendors) Delete(ctx context.Context, id, userID uuid.UUID) error {
	v, ok := s.l.vendors[id]
	if !ok || v.UserID != userID {
		return notFound("vendor", id)
	}
	delete(s.l.vendors, id)
	for txID, tx := range s.l.txs {
		if tx.VendorID != nil && *tx.VendorID == id {
			tx.VendorID = nil
			s.l.txs[txID] = tx
		}
	}
	return nil
}

func (s memVendors) AddPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Vendor, error) {
	v, ok := s.l.vendors[id]
	if !ok {
		return nil, notFound("vendor", id)
	}
	v.TotalPaid = v.TotalPaid.Add(amount)
	s.l.vendors[id] = v
	return &v, nil
}

type memTxs struct{ l *memLedger }

func (s memTxs) Create(ctx context.Context, t *models.Transaction) error {
	if s.l.txCreateErr != nil {
		return s.l.txCreateErr
	}
	s.l.txs[t.ID] = *t
	return nil
}

func (s memTxs) Get(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	t, ok := s.l.txs[id]
	if !ok || t.UserID != userID {
		return nil, notFound("transaction", id)
	}
	return &t, nil
}

func (s memTxs) List(ctx context.Context, f repository.TransactionFilter) ([]*models.Transaction, error) {
	if s.l.listErr != nil {
		return nil, s.l.listErr
	}
	var out []*models.Transaction
	for _, t := range s.l.txs {
		switch {
		case t.UserID != f.UserID:
			continue
		case f.Type != nil && t.Type != *f.Type:
			continue
		case f.From != nil && t.Date.Before(*f.From):
			continue
		case f.To != nil && t.Date.After(*f.To):
			continue
		case f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)):
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if f.Limit > 0 && uint64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s memTxs) Update(ctx context.Context, t *models.Transaction) error {
	existing, ok := s.l.txs[t.ID]
	if !ok || existing.UserID != t.UserID {
		return notFound("transaction", t.ID)
	}
	s.l.txs[t.ID] = *t
	return nil
}

func (s memTxs) Delete(ctx context.Context, id, userID uuid.UUID) error {
	t, ok := s.l.txs[id]
	if !ok || t.UserID != userID {
		return notFound("transaction", id)
	}
	delete(s.l.txs, id)
	return nil
}

type recordingPublisher struct {
	jobs []mirror.Job
}

func (p *recordingPublisher) Publish(job mirror.Job) bool {
	p.jobs = append(p.jobs, job)
	return true
}

func (p *recordingPublisher) kinds() []mirror.JobKind {
	out := make([]mirror.JobKind, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j.Kind)
	}
	return out
}

type countingCache struct {
	invalidated map[uuid.UUID]int
}

func (c *countingCache) Invalidate(userID uuid.UUID) {
	if c.invalidated == nil {
		c.invalidated = map[uuid.UUID]int{}
	}
	c.invalidated[userID]++
}
