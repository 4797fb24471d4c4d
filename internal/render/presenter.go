// Package render draws the dashboard: sections, tables, charts and tips.
// Components talk to a Presenter and never write to the terminal directly.
package render

import (
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// Presenter is the display surface of the dashboard
type Presenter interface {
	ShowLogin()
	ShowApp(name string, role models.Role)
	ShowSection(active state.View, nav []state.View)
	ShowViewing(label string)
	ShowCustomers(list []models.Customer, selected *int)
	ShowUsage(records []models.UsageRecord)
	ShowTotals(t state.Totals)
	ShowSummary(cost float64, label string)
	ShowGeneralTips()
	ShowTip(appName, tip string)
	ShowCatalog(apps []models.Application)
}

// Nop discards everything. Embed it to implement only the methods you care about.
type Nop struct{}

func (Nop) ShowLogin() {}
func (Nop) ShowApp(string, models.Role) {}
func (Nop) ShowSection(state.View, []state.View) {}
func (Nop) ShowViewing(string) {}
func (Nop) ShowCustomers([]models.Customer, *int) {}
func (Nop) ShowUsage([]models.UsageRecord) {}
func (Nop) ShowTotals(state.Totals) {}
func (Nop) ShowSummary(float64, string) {}
func (Nop) ShowGeneralTips() {}
func (Nop) ShowTip(string, string) {}
func (Nop) ShowCatalog([]models.Application) {}

var _ Presenter = Nop{}
