package dto

type AnalyticsTotals struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type SeriesPoint struct {
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Type     string `json:"type"`
	Total    string `json:"total"`
}

type PartyBalance struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	OutstandingBalance string `json:"outstanding_balance"`
}

type AnalyticsResponse struct {
	Period       string          `json:"period"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	Totals       AnalyticsTotals `json:"totals"`
	Series       []SeriesPoint   `json:"series"`
	Categories   []CategoryTotal `json:"categories"`
	TopCustomers []PartyBalance  `json:"top_customers"`
	TopVendors   []PartyBalance  `json:"top_vendors"`
}
