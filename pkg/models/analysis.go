package models

// Envelope is carried by every backend response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AppCost is one slice of the application breakdown
type AppCost struct {
	ApplicationName string  `json:"application_name"`
	TotalCost       float64 `json:"total_cost"`
}

// DailyCost is one day bucket of the time series
type DailyCost struct {
	DayLabel  string  `json:"day_label"`
	TotalCost float64 `json:"total_cost"`
}

// MonthlyCost is one month bucket of the time series
type MonthlyCost struct {
	MonthLabel string  `json:"month_label"`
	TotalCost  float64 `json:"total_cost"`
}

// Filter echoes the query the backend aggregated over
type Filter struct {
	Period string `json:"period"`
	Date   string `json:"date"`
}

// CostAnalysis is the /api/cost_analysis payload
type CostAnalysis struct {
	Envelope
	SummaryCost     float64       `json:"summary_cost"`
	CurrentFilter   Filter        `json:"current_filter"`
	AppBreakdown    []AppCost     `json:"app_breakdown_data"`
	DailyChart      []DailyCost   `json:"daily_chart_data"`
	MonthlyChart    []MonthlyCost `json:"monthly_chart_data"`
	AvailableYears  []string      `json:"available_years"`
	AvailableMonths []string      `json:"available_months"`
}

// ReportData is the full per-customer payload used for document exports
type ReportData struct {
	Envelope
	CustomerInfo Customer      `json:"customer_info"`
	UsageData    []UsageRecord `json:"usage_data"`
	Totals       struct {
		TotalKWh  float64 `json:"total_kwh"`
		TotalCost float64 `json:"total_cost"`
	} `json:"totals"`
}
