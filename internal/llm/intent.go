package llm

import (
	"strings"

	"counto/internal/models"
)

var transactionKeywords = []string{
	"spent", "paid", "bought", "purchased", "expense", "income", "transaction",
	"bill", "invoice", "payment", "receipt", "money", "cash", "card", "upi",
	"amount", "total", "cost", "price", "fee", "charge", "sale", "refund",
	"profit", "loss", "balance", "budget", "account", "financial", "finance",
	"deposit", "withdraw", "transfer", "salary", "revenue", "earnings",
}

var customerKeywords = []string{
	"customer", "client", "buyer", "consumer", "purchaser", "shopper",
	"patron", "clientele", "add customer", "new customer", "customer list",
	"client details", "buyer info", "customer contact", "client database",
}

var vendorKeywords = []string{
	"vendor", "supplier", "distributor", "provider", "manufacturer", "wholesaler",
	"retailer", "dealer", "add vendor", "new vendor", "vendor list", "supplier details",
	"distributor info", "vendor contact", "supplier database",
}

var queryPatterns = []string{
	"how much", "what is", "what were", "what was", "show me", "tell me", "report",
	"status", "balance", "overview", "summary", "total",
	"analyse", "analyze", "check", "find", "search", "list",
}

// DetectIntent picks the entity a message is about by counting keyword hits.
// Customer or vendor must strictly beat both other counts, anything else is
// a transaction.
func DetectIntent(message string) models.Intent {
	msg := strings.ToLower(message)
	tx := countHits(msg, transactionKeywords)
	cust := countHits(msg, customerKeywords)
	vend := countHits(msg, vendorKeywords)

	switch {
	case cust > tx && cust > vend:
		return models.IntentCustomer
	case vend > tx && vend > cust:
		return models.IntentVendor
	default:
		return models.IntentTransaction
	}
}

// LooksLikeQuery reports whether the message reads like a question about
// existing records.
func LooksLikeQuery(message string) bool {
	return countHits(strings.ToLower(message), queryPatterns) > 0
}

func countHits(msg string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			n++
		}
	}
	return n
}
