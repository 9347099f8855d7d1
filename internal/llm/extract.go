package llm

import (
	"encoding/json"
	"strings"

	"counto/internal/models"
)

type labelRule struct {
	field    string
	prefixes []string
}

var transactionLabels = []labelRule{
	{"date", []string{"Date:", "Date :"}},
	{"description", []string{"Description:", "Description :", "DESC:"}},
	{"category", []string{"Category:", "Category :", "CAT:"}},
	{"type", []string{"Transaction Type:", "Type:", "Type :"}},
	{"amount", []string{"Paid Amount:", "Amount:", "Amount :", "AMT:"}},
	{"customer", []string{"Customer:", "Customer :", "Client:"}},
	{"vendor", []string{"Vendor:", "Vendor :", "Supplier:", "Paid to:"}},
	{"party", []string{"Party:"}},
	{"payment_method", []string{"Payment Method:", "Payment :", "Method:"}},
	{"reference_number", []string{"Reference Number:", "Reference:", "Ref No:"}},
	{"notes", []string{"Notes:"}},
}

var partyLabels = []labelRule{
	{"name", []string{"Name:", "Name :", "Customer Name:", "Vendor Name:"}},
	{"email", []string{"Email:", "Email :", "Email Address:"}},
	{"phone", []string{"Phone:", "Phone :", "Contact:", "Mobile:"}},
	{"gst_number", []string{"GST Number:", "GST:", "GSTIN:"}},
	{"address", []string{"Address:", "Address :", "Location:"}},
}

// scanLabels collects "Label: value" lines. Later lines win; empty values
// are ignored.
func scanLabels(text string, rules []labelRule) map[string]string {
	found := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.ReplaceAll(line, "**", "")
		if line == "" {
			continue
		}
	rules:
		for _, rule := range rules {
			for _, prefix := range rule.prefixes {
				if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
					value := strings.TrimSpace(line[len(prefix):])
					if value != "" && !isBracketPlaceholder(value) {
						found[rule.field] = value
					}
					break rules
				}
			}
		}
	}
	return found
}

// isBracketPlaceholder matches template echoes such as "[Optional]".
func isBracketPlaceholder(v string) bool {
	return strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]")
}

// jsonObject carves the first '{' .. last '}' out of a reply, dropping
// markdown fences.
func jsonObject(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(s[start : end+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stringValue reports JSON strings and numbers as text; anything else is absent.
func stringValue(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			return strings.TrimSpace(v), true
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

func extractTransaction(reply string) *models.TransactionFields {
	if obj, ok := jsonObject(reply); ok {
		return transactionFromJSON(obj)
	}

	found := scanLabels(reply, transactionLabels)
	if len(found) == 0 {
		return nil
	}

	f := &models.TransactionFields{
		Description:     found["description"],
		Amount:          found["amount"],
		Type:            found["type"],
		PaymentMethod:   found["payment_method"],
		ReferenceNumber: found["reference_number"],
		Notes:           found["notes"],
	}
	if d, ok := found["date"]; ok {
		f.Date = &d
	}
	if c, ok := found["category"]; ok {
		f.Category = &c
	}
	f.Party = pickParty(f.Type, found["customer"], found["vendor"], found["party"])
	return f
}

func transactionFromJSON(obj map[string]any) *models.TransactionFields {
	f := &models.TransactionFields{}
	if d, ok := stringValue(obj, "date"); ok {
		f.Date = &d
	}
	// only a JSON string counts as a category
	if c, ok := obj["category"].(string); ok {
		f.Category = &c
	}
	f.Description, _ = stringValue(obj, "description")
	f.Amount, _ = stringValue(obj, "amount", "paid_amount")
	f.Type, _ = stringValue(obj, "transaction_type", "type")
	f.PaymentMethod, _ = stringValue(obj, "payment_method")
	f.ReferenceNumber, _ = stringValue(obj, "reference_number")
	f.Notes, _ = stringValue(obj, "notes")

	party, _ := stringValue(obj, "party_name", "party")
	customer, _ := stringValue(obj, "customer")
	vendor, _ := stringValue(obj, "vendor")
	f.Party = pickParty(f.Type, customer, vendor, party)
	return f
}

// pickParty prefers the side that matches the transaction type.
func pickParty(txType, customer, vendor, party string) string {
	if party != "" {
		return party
	}
	if models.ParseTransactionType(txType) == models.TransactionIncome {
		if customer != "" {
			return customer
		}
		return vendor
	}
	if vendor != "" {
		return vendor
	}
	return customer
}

func extractParty(reply string, kind models.PartyKind) *models.PartyFields {
	var found map[string]string
	if obj, ok := jsonObject(reply); ok {
		found = make(map[string]string)
		for _, key := range []string{"name", "email", "phone", "gst_number", "address"} {
			if v, ok := stringValue(obj, key); ok && v != "" {
				found[key] = v
			}
		}
	} else {
		found = scanLabels(reply, partyLabels)
	}
	if found["name"] == "" {
		return nil
	}
	return &models.PartyFields{
		Kind: kind,
		Contact: models.Contact{
			Name:      found["name"],
			Email:     found["email"],
			Phone:     found["phone"],
			GSTNumber: found["gst_number"],
			Address:   found["address"],
		},
	}
}
