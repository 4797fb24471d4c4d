// Package state holds the client-side application state. It is owned by the
// controller and handed to each manager explicitly; nothing here is
// authoritative, every field is a cache of the last backend response.
package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/jgoulah/billbuddy/pkg/models"
)

// View is a top-level section of the dashboard
type View string

const (
	Dashboard View = "dashboard"
	Customers View = "customers"
	Reports   View = "reports"
	Tips      View = "tips"
)

// Views lists every section in navigation order
var Views = []View{Dashboard, Customers, Reports, Tips}

// ParseView accepts "reports" or "#reports"
func ParseView(s string) (View, error) {
	name := strings.TrimPrefix(strings.TrimSpace(s), "#")
	for _, v := range Views {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Fragment returns the location fragment for v, e.g. "#dashboard"
func (v View) Fragment() string {
	return "#" + string(v)
}

// AdminOnly reports whether only administrators can open v
func (v View) AdminOnly() bool {
	return v == Customers
}

// Period is a reporting window
type Period string

const (
	Day    Period = "day"
	Month  Period = "month"
	Year   Period = "year"
	Custom Period = "custom"
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Day, Month, Year, Custom:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want day, month, year or custom)", s)
}

// TimeUnit is the bucket unit of the period's time series chart
func (p Period) TimeUnit() string {
	if p == Year {
		return "Month"
	}
	return "Day"
}

// Selection is the reporting period picker. EndDate is only set for Custom.
type Selection struct {
	Period  Period
	Date    string
	EndDate string
}

// Session is the authenticated user. SelectedCustomerID is nil when nothing is selected.
type Session struct {
	LoggedIn           bool
	Role               models.Role
	UserID             int
	UserName           string
	SelectedCustomerID *int
}

// IsAdmin reports whether the session belongs to an administrator
func (s Session) IsAdmin() bool {
	return s.LoggedIn && s.Role == models.RoleAdmin
}

// Selected returns the selected customer id
func (s Session) Selected() (int, bool) {
	if s.SelectedCustomerID == nil {
		return 0, false
	}
	return *s.SelectedCustomerID, true
}

// Select sets the selected customer
func (s *Session) Select(customerID int) {
	id := customerID
	s.SelectedCustomerID = &id
}

// Unselect clears the selected customer
func (s *Session) Unselect() {
	s.SelectedCustomerID = nil
}

// Totals are the dashboard cost cards for the current day, month and year
type Totals struct {
	Day   float64
	Month float64
	Year  float64
}

// Bucket is one bar of a time series chart
type Bucket struct {
	Label string
	Cost  float64
}

// Analysis is the reports section: the period picker and the last aggregate
type Analysis struct {
	Selection
	SummaryCost     float64
	Label           string
	AppBreakdown    []models.AppCost
	TimeSeries      []Bucket
	AvailableYears  []string
	AvailableMonths []string
}

// State is everything the dashboard knows
type State struct {
	Session    Session
	Location   string
	Customers  []models.Customer
	SearchTerm string
	Usage      []models.UsageRecord
	Totals     Totals
	Analysis   Analysis
}

// New returns a logged-out state with the reporting period at its default
func New(now time.Time) *State {
	return &State{Analysis: Analysis{Selection: Selection{Period: Month, Date: now.Format("2006-01")}}}
}

// Reset drops every cached entity and returns to the logged-out defaults
func (s *State) Reset(now time.Time) {
	*s = *New(now)
}

// Customer looks a customer up in the cached directory
func (s *State) Customer(id int) (models.Customer, bool) {
	for _, c := range s.Customers {
		if c.CustomerID == id {
			return c, true
		}
	}
	return models.Customer{}, false
}
