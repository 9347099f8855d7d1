package mirror

import (
	"context"
	"fmt"

	"counto/internal/models"

	"github.com/jomei/notionapi"
)

// PageCreator is the slice of the Notion API the sink needs.
type PageCreator interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

type NotionClient struct {
	client *notionapi.Client
}

func NewNotionClient(token string) *NotionClient {
	return &NotionClient{client: notionapi.NewClient(notionapi.Token(token))}
}

func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// NotionSink creates one page per confirmed transaction. Parties are not mirrored.
type NotionSink struct {
	pages      PageCreator
	databaseID string
}

func NewNotionSink(pages PageCreator, databaseID string) *NotionSink {
	return &NotionSink{pages: pages, databaseID: databaseID}
}

func (n *NotionSink) Name() string { return "notion" }

func (n *NotionSink) SyncTransaction(ctx context.Context, tx *models.Transaction, partyName string) error {
	_, err := n.pages.CreatePage(ctx, n.databaseID, TransactionProperties(tx, partyName))
	return err
}

func (n *NotionSink) SyncCustomer(context.Context, *models.Customer) error { return nil }

func (n *NotionSink) SyncVendor(context.Context, *models.Vendor) error { return nil }

func TransactionProperties(tx *models.Transaction, partyName string) notionapi.Properties {
	date := notionapi.Date(tx.Date)
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: tx.Description}},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Type)},
		},
	}

	if tx.Category != nil {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: *tx.Category},
		}
	}
	if partyName != "" {
		props["Party"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: partyName}},
			},
		}
	}
	return props
}
