package llm

import (
	"fmt"
	"strings"
	"time"

	"counto/internal/models"

	"github.com/google/uuid"
)

const basePrompt = `SYSTEM: You are Counto, a financial assistant integrated into an accounting app.

Based on the user's message, you must determine if they want to:
1. Add/modify TRANSACTION data
2. Add/modify CUSTOMER data
3. Add/modify VENDOR data
4. Query TRANSACTION, CUSTOMER, or VENDOR data

For EACH response, you MUST start with ONE of these tags:
- DATA_ENTRY_TRANSACTION: When adding/modifying transaction information
- DATA_ENTRY_CUSTOMER: When adding/modifying customer information
- DATA_ENTRY_VENDOR: When adding/modifying vendor information
- QUERY_TRANSACTION: When querying transaction information
- QUERY_CUSTOMER: When querying customer information
- QUERY_VENDOR: When querying vendor information
`

const transactionPrompt = `
TRANSACTION DATA EXTRACTION
When users mention expenses or income, respond with "DATA_ENTRY_TRANSACTION" at the start, followed by the extracted details.

Examples:
- "I spent 500 on groceries"
- "paid 1000 for rent"
- "received 5000 from client XYZ"

Always list these fields, one per line:
Date: %[1]s (use YYYY-MM-DD)
Description: [What the payment was for]
Category: [Food, Rent, Salary, Business Income, etc.]
Amount: [The number mentioned]
Type: [Income or Expense]
Payment Method: [Cash, Card, UPI, Bank Transfer, etc.]
Reference Number: [Optional]
Customer: [Who sent the payment, for income]
Vendor: [Who received the payment, for expenses]
`

const partyPrompt = `
%[1]s DATA EXTRACTION
When users mention adding or updating %[2]s information, respond with "DATA_ENTRY_%[1]s" at the start.

Always list these fields, one per line:
Name: [%[3]s name]
Email: [if mentioned]
Phone: [if mentioned]
GST Number: [if mentioned]
Address: [if mentioned]
`

const queryPrompt = `
ANSWERING QUERIES
When users ask about their finances, customers, or vendors, respond with the matching QUERY tag.
1. You are given ALL relevant records as a table.
2. For "today", "last week", "this month" and similar, filter the records accordingly.
3. Give the total amount (transactions) or the count (customers/vendors).
4. List the matching records.
`

const criticalPrompt = `
CRITICAL INSTRUCTIONS:
1. Treat user mentions as real data they want to record.
2. Never explain how accounting works.
3. Always start the response with one of the tags above.
4. After showing details, ask "Would you like me to record this?"
`

// SystemPrompt assembles the instruction block for the detected intent.
// Unknown intents get every section.
func SystemPrompt(intent models.Intent, today time.Time) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	tx := fmt.Sprintf(transactionPrompt, today.Format("2006-01-02"))
	cust := fmt.Sprintf(partyPrompt, "CUSTOMER", "customer", "Customer")
	vend := fmt.Sprintf(partyPrompt, "VENDOR", "vendor", "Vendor")

	switch intent {
	case models.IntentTransaction:
		b.WriteString(tx)
	case models.IntentCustomer:
		b.WriteString(cust)
	case models.IntentVendor:
		b.WriteString(vend)
	default:
		b.WriteString(tx)
		b.WriteString(cust)
		b.WriteString(vend)
	}
	b.WriteString(queryPrompt)
	b.WriteString(criticalPrompt)
	return b.String()
}

// TransactionContext renders transactions as a pipe table for query answers.
// names maps party ids to display names.
func TransactionContext(txs []*models.Transaction, names map[uuid.UUID]string) string {
	var b strings.Builder
	b.WriteString("\n\nHere is your COMPLETE DATA for querying:\n")
	b.WriteString("ID | DATE | DESCRIPTION | AMOUNT | CATEGORY | TYPE | CUSTOMER/VENDOR\n")
	b.WriteString("--|------|-------------|--------|----------|------|---------------\n")
	for i, tx := range txs {
		party := ""
		switch {
		case tx.CustomerID != nil:
			party = names[*tx.CustomerID]
		case tx.VendorID != nil:
			party = names[*tx.VendorID]
		}
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s | %s | %s\n",
			i+1, tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.StringFixed(2),
			tx.CategoryOr("Uncategorized"), tx.Type, party)
	}
	b.WriteString(periodHints)
	return b.String()
}

// PartyContext renders customer or vendor contacts as a pipe table.
func PartyContext(contacts []models.Contact) string {
	var b strings.Builder
	b.WriteString("\n\nHere is your COMPLETE DATA for querying:\n")
	b.WriteString("ID | NAME | EMAIL | PHONE | GST NUMBER | ADDRESS\n")
	b.WriteString("--|------|------|-------|------------|--------\n")
	for i, c := range contacts {
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s | %s\n",
			i+1, c.Name, orDash(c.Email), orDash(c.Phone), orDash(c.GSTNumber), orDash(c.Address))
	}
	b.WriteString(periodHints)
	return b.String()
}

const periodHints = `
When analyzing this data for time periods:
1. 'Today' refers to records on the current date
2. 'This month' refers to the current calendar month
3. 'This year' refers to the current calendar year
`

// UserPrompt joins the query context, recent turns and the new message.
func UserPrompt(message string, history []*models.Message, queryContext string, today time.Time) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Content)
		}
	}
	b.WriteString(queryContext)
	fmt.Fprintf(&b, "\n\nUSER INPUT: %s\n\n", message)
	fmt.Fprintf(&b, "Your response (start with the appropriate tag and follow the format exactly, using %s as today's date):",
		today.Format("2006-01-02"))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
