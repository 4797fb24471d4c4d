package models

// Application is a catalog entry: a device archetype with a fixed wattage
type Application struct {
	ApplicationName string `json:"application_name"`
	Watts           int    `json:"watts"`
}

// UsageRecord represents one logged run of an application for a customer.
// DailyKWh and DailyCost are computed by the backend.
type UsageRecord struct {
	CustAppID       int     `json:"cust_app_id"`
	ApplicationName string  `json:"application_name"`
	Qty             int     `json:"qty"`
	Watts           int     `json:"watts"`
	HoursDay        float64 `json:"hours_day"`
	DateTime        string  `json:"date_time"` // "2006-01-02 15:04"
	DailyKWh        float64 `json:"daily_kwh"`
	DailyCost       float64 `json:"daily_cost"`
}

// NewUsage is the body of an add-usage request
type NewUsage struct {
	ApplicationName string  `json:"application_name" validate:"required"`
	Qty             int     `json:"qty" validate:"gt=0"`
	DateTime        string  `json:"date_time" validate:"required"`
	Watts           int     `json:"watts" validate:"gt=0"`
	HoursDay        float64 `json:"hours_day" validate:"gte=0,lte=24"`
}

// UsageUpdate is the body of an edit-usage request. Watts is re-derived by the backend.
type UsageUpdate struct {
	Qty      int     `json:"qty" validate:"gt=0"`
	DateTime string  `json:"date_time" validate:"required"`
	HoursDay float64 `json:"hours_day" validate:"gte=0,lte=24"`
}
