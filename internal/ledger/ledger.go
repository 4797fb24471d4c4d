// Package ledger manages a customer's application usage records and keeps the
// dashboard totals and charts in step with every change.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/analysis"
	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/catalog"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/internal/validator"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// DateTimeLayout is the format of a usage timestamp typed by the user
const DateTimeLayout = "2006-01-02T15:04"

var (
	// ErrNoApplication is returned when usage is added without a catalog entry
	ErrNoApplication = errors.New("no application selected")
	// ErrNoCustomer is returned when no customer is selected
	ErrNoCustomer = errors.New("no customer selected")
	// ErrNotFound is returned for a record that is not in the cached list
	ErrNotFound = errors.New("usage record not found")
)

// Refresh selects which dependent views Invalidate re-fetches
type Refresh uint8

const (
	RefreshTotals Refresh = 1 << iota
	RefreshList
	RefreshChart

	RefreshAll = RefreshTotals | RefreshList | RefreshChart
)

// AddForm is what the user enters to log usage. Watts comes from the catalog.
type AddForm struct {
	ApplicationName string
	Qty             int
	HoursDay        float64
	DateTime        string // empty means now
}

// Deps are the collaborators of a Manager
type Deps struct {
	Client   *api.Client
	State    *state.State
	Catalog  *catalog.Store
	View     render.Presenter
	Charts   *render.Charts
	Notifier notify.Notifier
	Confirm  render.Confirmer
	Clock    clock.Clock
	Log      *zap.SugaredLogger
}

// Manager handles usage records for the selected customer
type Manager struct {
	client  *api.Client
	st      *state.State
	catalog *catalog.Store
	view    render.Presenter
	charts  *render.Charts
	notes   notify.Notifier
	confirm render.Confirmer
	clock   clock.Clock
	log     *zap.SugaredLogger
}

// New creates a ledger manager
func New(d Deps) *Manager {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.View == nil {
		d.View = render.Nop{}
	}
	if d.Catalog == nil {
		d.Catalog = catalog.New()
	}
	return &Manager{
		client:  d.Client,
		st:      d.State,
		catalog: d.Catalog,
		view:    d.View,
		charts:  d.Charts,
		notes:   d.Notifier,
		confirm: d.Confirm,
		clock:   d.Clock,
		log:     d.Log,
	}
}

// Invalidate re-fetches the views that depend on a customer's usage. Fetches run
// one after another in the order totals, list, chart.
func (m *Manager) Invalidate(ctx context.Context, customerID int, what Refresh) {
	if what&RefreshTotals != 0 {
		m.Totals(ctx, customerID)
	}
	if what&RefreshList != 0 {
		_ = m.List(ctx, customerID)
	}
	if what&RefreshChart != 0 {
		m.DashboardChart(ctx, customerID)
	}
}

// Totals refreshes the day, month and year cost cards
func (m *Manager) Totals(ctx context.Context, customerID int) {
	totals, err := analysis.FetchTotals(ctx, m.client, customerID, m.clock.Now())
	if err != nil {
		m.log.Warnw("fetching totals", "customer_id", customerID, "error", err)
	}
	m.st.Totals = totals
	m.view.ShowTotals(totals)
}

// List refreshes the usage table. Rows keep the backend's order.
func (m *Manager) List(ctx context.Context, customerID int) error {
	records, err := m.client.UsageRecords(ctx, customerID)
	if err != nil {
		m.fail(err, "Failed to fetch usage data.")
		m.st.Usage = nil
		m.view.ShowUsage(nil)
		return err
	}
	m.st.Usage = records
	m.view.ShowUsage(records)
	return nil
}

// DashboardChart redraws the dashboard charts for the current month. The
// previous customer's charts are blanked first so a failed fetch leaves them empty.
func (m *Manager) DashboardChart(ctx context.Context, customerID int) {
	if m.charts != nil {
		m.charts.Blank(render.DashboardApp, render.DashboardTime)
	}
	month := m.clock.Now().Format(analysis.MonthLayout)
	resp, err := m.client.CostAnalysis(ctx, customerID, string(state.Month), month)
	if err != nil {
		m.log.Warnw("fetching dashboard chart", "customer_id", customerID, "error", err)
		return
	}
	if m.charts == nil {
		return
	}
	m.charts.Breakdown(render.DashboardApp, resp.AppBreakdown)
	m.charts.TimeSeries(render.DashboardTime, "Day", analysis.Series(state.Month, resp))
}

// Record looks up a usage record in the cached list
func (m *Manager) Record(custAppID int) (models.UsageRecord, bool) {
	for _, r := range m.st.Usage {
		if r.CustAppID == custAppID {
			return r, true
		}
	}
	return models.UsageRecord{}, false
}

// Add logs a usage event for the selected customer
func (m *Manager) Add(ctx context.Context, form AddForm) error {
	customerID, ok := m.st.Session.Selected()
	if !ok {
		m.notify(notify.Error, "Please select a customer first.")
		return ErrNoCustomer
	}

	app, ok := m.catalog.Lookup(form.ApplicationName)
	if !ok {
		m.notify(notify.Error, "Please select an application first.")
		return ErrNoApplication
	}

	if form.DateTime == "" {
		form.DateTime = m.clock.Now().Format(DateTimeLayout)
	}
	usage := models.NewUsage{
		ApplicationName: app.ApplicationName,
		Qty:             form.Qty,
		DateTime:        form.DateTime,
		Watts:           app.Watts,
		HoursDay:        form.HoursDay,
	}
	if err := validator.ValidateRequest(usage); err != nil {
		m.notify(notify.Error, err.Error())
		return err
	}

	msg, err := m.client.AddUsage(ctx, customerID, usage)
	if err != nil {
		m.fail(err, "Failed to add application usage.")
		return err
	}

	m.log.Infow("usage added", "customer_id", customerID, "application", app.ApplicationName, "qty", form.Qty)
	m.notify(notify.Success, msg)
	m.Invalidate(ctx, customerID, RefreshAll)
	return nil
}

// Edit updates a usage record. Watts is never sent; the backend re-derives it.
func (m *Manager) Edit(ctx context.Context, custAppID int, update models.UsageUpdate) error {
	customerID, ok := m.st.Session.Selected()
	if !ok {
		m.notify(notify.Error, "Please select a customer first.")
		return ErrNoCustomer
	}
	if err := validator.ValidateRequest(update); err != nil {
		m.notify(notify.Error, err.Error())
		return err
	}

	msg, err := m.client.EditUsage(ctx, custAppID, update)
	if err != nil {
		m.fail(err, "Failed to update application usage.")
		return err
	}

	m.log.Infow("usage updated", "customer_id", customerID, "cust_app_id", custAppID)
	m.notify(notify.Success, msg)
	m.Invalidate(ctx, customerID, RefreshAll)
	return nil
}

// Delete removes a usage record after confirmation
func (m *Manager) Delete(ctx context.Context, custAppID int) error {
	customerID, ok := m.st.Session.Selected()
	if !ok {
		m.notify(notify.Error, "Please select a customer first.")
		return ErrNoCustomer
	}

	rec, ok := m.Record(custAppID)
	if !ok {
		m.notify(notify.Error, "Usage record not found.")
		return fmt.Errorf("%w: %d", ErrNotFound, custAppID)
	}
	prompt := fmt.Sprintf("Are you sure you want to delete the usage record for %s?", rec.ApplicationName)
	if m.confirm == nil || !m.confirm.Confirm(prompt) {
		return render.ErrDeclined
	}

	msg, err := m.client.DeleteUsage(ctx, custAppID)
	if err != nil {
		m.fail(err, "Failed to delete application usage.")
		return err
	}

	m.log.Infow("usage deleted", "customer_id", customerID, "cust_app_id", custAppID)
	m.notify(notify.Success, msg)
	m.Invalidate(ctx, customerID, RefreshAll)
	return nil
}

// Hover shows the tip for an application, falling back to the general tips
func (m *Manager) Hover(appName string) {
	render.ShowTipFor(m.view, appName)
}

// Leave restores the general tips
func (m *Manager) Leave() {
	m.view.ShowGeneralTips()
}

// fail notifies an application failure. Transport failures were already surfaced.
func (m *Manager) fail(err error, fallback string) {
	if api.IsTransport(err) {
		return
	}
	m.notify(notify.Error, api.MessageOr(err, fallback))
}

func (m *Manager) notify(kind notify.Kind, msg string) {
	if m.notes != nil {
		m.notes.Notify(kind, msg)
	}
}
