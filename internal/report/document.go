// Package report turns a customer's report payload into a downloadable file.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// Title heads every report
const Title = "Energy Consumption Report - BillBuddy"

// Format is an export file format
type Format string

const (
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "pdf" or "xlsx" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case PDF, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want pdf or xlsx)", s)
}

// Label is the upper-case name used in notifications
func (f Format) Label() string {
	return strings.ToUpper(string(f))
}

// Row is one line of the usage log
type Row struct {
	DateTime    string
	Application string
	Qty         int
	Watts       int
	HoursDay    float64
	DailyKWh    float64
	DailyCost   float64
}

// Document is a fixed-layout report: header, customer block, lifetime summary
// and the full usage log in backend order.
type Document struct {
	Title     string
	Customer  models.Customer
	TotalKWh  float64
	TotalCost float64
	Rows      []Row
	Currency  string
	Generated time.Time
}

// BuildDocument assembles a document from the report_data payload
func BuildDocument(data *models.ReportData, currency string, now time.Time) *Document {
	if currency == "" {
		currency = render.DefaultCurrency
	}
	return &Document{
		Title:     Title,
		Customer:  data.CustomerInfo,
		TotalKWh:  data.Totals.TotalKWh,
		TotalCost: data.Totals.TotalCost,
		Rows: lo.Map(data.UsageData, func(u models.UsageRecord, _ int) Row {
			return Row{
				DateTime:    u.DateTime,
				Application: u.ApplicationName,
				Qty:         u.Qty,
				Watts:       u.Watts,
				HoursDay:    u.HoursDay,
				DailyKWh:    u.DailyKWh,
				DailyCost:   u.DailyCost,
			}
		}),
		Currency:  currency,
		Generated: now,
	}
}

// Phone returns the customer's phone or "N/A"
func (d *Document) Phone() string {
	if d.Customer.PhoneNo == "" {
		return "N/A"
	}
	return d.Customer.PhoneNo
}

// Money formats an amount in the document currency
func (d *Document) Money(amount float64) string {
	return render.FormatCurrency(d.Currency, amount)
}

// Header is the column header of the usage log
func Header() []string {
	return []string{"Date/Time", "Application", "QTY", "Watts", "Hrs/Day", "Daily kWh", "Daily Cost"}
}

// Cells renders a row as display text
func (d *Document) Cells(r Row) []string {
	return []string{
		r.DateTime,
		r.Application,
		strconv.Itoa(r.Qty),
		fmt.Sprintf("%d W", r.Watts),
		formatHours(r.HoursDay) + " h",
		formatKWh(r.DailyKWh) + " kWh",
		d.Money(r.DailyCost),
	}
}

var whitespace = regexp.MustCompile(`\s`)

// FileName is Energy_Report_<Name_With_Underscores>_<YYYY-MM-DD>.<ext>, dated in UTC
func FileName(customerName string, now time.Time, f Format) string {
	return fmt.Sprintf("Energy_Report_%s_%s.%s",
		whitespace.ReplaceAllString(customerName, "_"),
		now.UTC().Format("2006-01-02"),
		f)
}

func formatKWh(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
