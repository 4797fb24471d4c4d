// Package controller gates the dashboard behind a login, routes between views
// and runs every user action one at a time against the shared state.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/analysis"
	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/catalog"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/directory"
	"github.com/jgoulah/billbuddy/internal/ledger"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/report"
	"github.com/jgoulah/billbuddy/internal/session"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

const (
	// DefaultSessionTimeout is the inactivity window before a forced logout
	DefaultSessionTimeout = 10 * time.Minute
)

var (
	// ErrNotLoggedIn is returned by actions that need a session
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrForbidden is returned when a customer tries an administrator action
	ErrForbidden = errors.New("administrator access required")
)

// Exporter writes a customer report to disk
type Exporter interface {
	Export(ctx context.Context, customerID int, format report.Format) (string, error)
}

// Deps are the collaborators of a Controller
type Deps struct {
	Client   *api.Client
	State    *state.State
	Catalog  *catalog.Store
	View     render.Presenter
	Charts   *render.Charts
	Notifier notify.Notifier
	Confirm  render.Confirmer
	Clock    clock.Clock
	Bus      *session.Bus
	Timeout  time.Duration // inactivity logout, DefaultSessionTimeout when zero
	Exporter Exporter
	Log      *zap.SugaredLogger
}

// Controller owns the application state. Every exported method takes the same
// lock, so actions and the inactivity logout never interleave.
type Controller struct {
	mu sync.Mutex

	client   *api.Client
	st       *state.State
	catalog  *catalog.Store
	view     render.Presenter
	charts   *render.Charts
	notes    notify.Notifier
	clock    clock.Clock
	bus      *session.Bus
	exporter Exporter
	log      *zap.SugaredLogger

	monitor   *session.Monitor
	directory *directory.Manager
	ledger    *ledger.Manager
	analysis  *analysis.Engine
}

// New wires the managers around one shared state
func New(d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.View == nil {
		d.View = render.Nop{}
	}
	if d.State == nil {
		d.State = state.New(d.Clock.Now())
	}
	if d.Catalog == nil {
		d.Catalog = catalog.New()
	}
	if d.Bus == nil {
		d.Bus = session.NewBus()
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultSessionTimeout
	}

	c := &Controller{
		client:   d.Client,
		st:       d.State,
		catalog:  d.Catalog,
		view:     d.View,
		charts:   d.Charts,
		notes:    d.Notifier,
		clock:    d.Clock,
		bus:      d.Bus,
		exporter: d.Exporter,
		log:      d.Log,
	}

	c.monitor = session.NewMonitor(d.Clock, d.Timeout, c.Expire, d.Log)
	c.directory = directory.New(directory.Deps{
		Client:   d.Client,
		State:    d.State,
		View:     d.View,
		Notifier: d.Notifier,
		Confirm:  d.Confirm,
		Log:      d.Log,
	})
	c.ledger = ledger.New(ledger.Deps{
		Client:   d.Client,
		State:    d.State,
		Catalog:  d.Catalog,
		View:     d.View,
		Charts:   d.Charts,
		Notifier: d.Notifier,
		Confirm:  d.Confirm,
		Clock:    d.Clock,
		Log:      d.Log,
	})
	c.analysis = analysis.New(analysis.Deps{
		Client:   d.Client,
		State:    d.State,
		View:     d.View,
		Charts:   d.Charts,
		Notifier: d.Notifier,
		Clock:    d.Clock,
		Log:      d.Log,
	})
	c.directory.OnSelect(c.cascade)

	return c
}

// Start attaches the inactivity monitor to the input bus and shows the login view
func (c *Controller) Start() {
	c.monitor.Attach(c.bus)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateVisibilityLocked(context.Background())
}

// Bus is where input events are reported
func (c *Controller) Bus() *session.Bus {
	return c.bus
}

// Session returns a copy of the session
func (c *Controller) Session() state.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.st.Session
	if id, ok := s.Selected(); ok {
		s.SelectedCustomerID = &id
	}
	return s
}

// Location returns the current location fragment, "" when logged out
func (c *Controller) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Location
}

// SessionArmed reports whether the inactivity deadline is running
func (c *Controller) SessionArmed() bool {
	return c.monitor.Armed()
}

// Login authenticates and enters the app. A failed login leaves the state untouched.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, err := c.client.Login(ctx, username, password)
	if err != nil {
		c.log.Warnw("login failed", "username", username, "error", err)
		c.fail(err, "Login failed. Check Admin/Customer credentials.")
		return fmt.Errorf("logging in: %w", err)
	}

	c.st.Session = state.Session{
		LoggedIn: true,
		Role:     user.Role,
		UserID:   user.ID,
		UserName: user.Name,
	}
	c.log.Infow("logged in", "user_id", user.ID, "role", user.Role)

	apps, err := c.client.Applications(ctx)
	if err != nil {
		c.fail(err, "Failed to fetch available applications.")
		apps = nil
	}
	c.catalog.Load(apps)

	c.monitor.Enable()
	c.notify(notify.Success, fmt.Sprintf("Welcome, %s!", user.Name))
	c.updateVisibilityLocked(ctx)
	return nil
}

// Logout clears every cached entity and returns to the login view
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logoutLocked(ctx)
}

// Expire is the inactivity callback
func (c *Controller) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.st.Session.LoggedIn {
		return
	}
	c.notify(notify.Error, expiredNotice(c.monitor.Timeout()))
	c.logoutLocked(context.Background())
}

func (c *Controller) logoutLocked(ctx context.Context) {
	c.monitor.Disable()
	if c.charts != nil {
		c.charts.DestroyAll()
	}
	c.catalog.Flush()
	c.st.Reset(c.clock.Now())

	// Best effort, the local session is already gone
	c.client.Logout(ctx)
	c.log.Infow("logged out")
	c.updateVisibilityLocked(ctx)
}

// UpdateVisibility re-enters the app for the current session
func (c *Controller) UpdateVisibility(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateVisibilityLocked(ctx)
}

func (c *Controller) updateVisibilityLocked(ctx context.Context) {
	s := c.st.Session
	if !s.LoggedIn {
		c.view.ShowLogin()
		return
	}

	c.view.ShowApp(s.UserName, s.Role)

	if s.IsAdmin() {
		// Listing selects a customer, which already refreshes its views
		_ = c.directory.List(ctx)
		if _, ok := c.st.Session.Selected(); ok {
			c.route(state.Dashboard)
		} else {
			c.route(state.Customers)
		}
		return
	}

	c.st.Session.Select(s.UserID)
	c.view.ShowViewing(fmt.Sprintf("Viewing: %s (Your Data)", s.UserName))
	c.route(state.Dashboard)
	c.dispatch(ctx, state.Dashboard)
}

// ShowView navigates to a view ("reports" or "#reports") and loads its data
func (c *Controller) ShowView(ctx context.Context, name string) error {
	v, err := state.ParseView(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(v.AdminOnly()); err != nil {
		return err
	}
	c.route(v)
	c.dispatch(ctx, v)
	return nil
}

// Nav lists the views the current user can open
func (c *Controller) Nav() []state.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav()
}

func (c *Controller) nav() []state.View {
	admin := c.st.Session.IsAdmin()
	return lo.Filter(state.Views, func(v state.View, _ int) bool {
		return admin || !v.AdminOnly()
	})
}

// route activates v's section and highlights its navigation entry
func (c *Controller) route(v state.View) {
	c.st.Location = v.Fragment()
	c.view.ShowSection(v, c.nav())
}

// dispatch loads the data a view shows. A per-customer view without a
// selected customer keeps whatever it showed before.
func (c *Controller) dispatch(ctx context.Context, v state.View) {
	customerID, selected := c.st.Session.Selected()

	switch {
	case v == state.Customers && c.st.Session.IsAdmin():
		_ = c.directory.List(ctx)
	case v == state.Dashboard && selected:
		c.ledger.Invalidate(ctx, customerID, ledger.RefreshAll)
	case v == state.Reports && selected:
		_ = c.analysis.Setup(ctx)
	case v == state.Tips:
		c.view.ShowGeneralTips()
	}
}

// cascade runs after a customer is selected in the directory
func (c *Controller) cascade(ctx context.Context, customerID int) {
	c.ledger.Invalidate(ctx, customerID, ledger.RefreshAll)
	_ = c.analysis.Setup(ctx)
}

func (c *Controller) guard(adminOnly bool) error {
	if !c.st.Session.LoggedIn {
		return ErrNotLoggedIn
	}
	if adminOnly && !c.st.Session.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// run executes fn under the lock once the session checks pass
func (c *Controller) run(adminOnly bool, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(adminOnly); err != nil {
		return err
	}
	return fn()
}

func (c *Controller) fail(err error, fallback string) {
	if api.IsTransport(err) {
		return
	}
	c.notify(notify.Error, api.MessageOr(err, fallback))
}

func (c *Controller) notify(kind notify.Kind, msg string) {
	if c.notes != nil {
		c.notes.Notify(kind, msg)
	}
}

// Customers

// ListCustomers re-fetches the directory
func (c *Controller) ListCustomers(ctx context.Context) error {
	return c.run(true, func() error { return c.directory.List(ctx) })
}

// SearchCustomers filters the cached directory
func (c *Controller) SearchCustomers(term string) ([]models.Customer, error) {
	var out []models.Customer
	err := c.run(true, func() error {
		out = c.directory.Search(term)
		return nil
	})
	return out, err
}

// SelectCustomer makes id the current customer
func (c *Controller) SelectCustomer(ctx context.Context, id int) error {
	return c.run(true, func() error {
		if _, ok := c.directory.Lookup(id); !ok {
			c.notify(notify.Error, "Customer data not found locally.")
			return fmt.Errorf("%w: %d", directory.ErrNotFound, id)
		}
		c.directory.Select(ctx, id)
		return nil
	})
}

// AddCustomer creates a customer
func (c *Controller) AddCustomer(ctx context.Context, form models.CustomerForm) error {
	return c.run(true, func() error { return c.directory.Add(ctx, form) })
}

// EditCustomer updates a customer
func (c *Controller) EditCustomer(ctx context.Context, id int, form models.CustomerForm) error {
	return c.run(true, func() error { return c.directory.Edit(ctx, id, form) })
}

// DeleteCustomer removes a customer after confirmation
func (c *Controller) DeleteCustomer(ctx context.Context, id int) error {
	return c.run(true, func() error { return c.directory.Delete(ctx, id) })
}

// CustomerByID looks up a cached customer
func (c *Controller) CustomerByID(id int) (models.Customer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Customer(id)
}

// Usage

// ListUsage re-fetches the selected customer's usage records
func (c *Controller) ListUsage(ctx context.Context) error {
	return c.run(false, func() error {
		id, ok := c.st.Session.Selected()
		if !ok {
			c.notify(notify.Error, "Please select a customer first.")
			return ledger.ErrNoCustomer
		}
		return c.ledger.List(ctx, id)
	})
}

// AddUsage logs usage for the selected customer
func (c *Controller) AddUsage(ctx context.Context, form ledger.AddForm) error {
	return c.run(false, func() error { return c.ledger.Add(ctx, form) })
}

// EditUsage updates a usage record
func (c *Controller) EditUsage(ctx context.Context, custAppID int, update models.UsageUpdate) error {
	return c.run(false, func() error { return c.ledger.Edit(ctx, custAppID, update) })
}

// DeleteUsage removes a usage record after confirmation
func (c *Controller) DeleteUsage(ctx context.Context, custAppID int) error {
	return c.run(false, func() error { return c.ledger.Delete(ctx, custAppID) })
}

// UsageRecord looks up a cached usage record
func (c *Controller) UsageRecord(custAppID int) (models.UsageRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Record(custAppID)
}

// Tip shows the tip for an application, or the general tips when appName is empty
func (c *Controller) Tip(appName string) error {
	return c.run(false, func() error {
		if appName == "" {
			c.ledger.Leave()
			return nil
		}
		c.ledger.Hover(appName)
		return nil
	})
}

// Applications returns the catalog loaded at login
func (c *Controller) Applications() ([]models.Application, error) {
	var apps []models.Application
	err := c.run(false, func() error {
		apps = c.catalog.All()
		c.view.ShowCatalog(apps)
		return nil
	})
	return apps, err
}

// Reports

// Selection returns the reporting period picker
func (c *Controller) Selection() state.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysis.Selection()
}

// SetPeriod switches the reporting period and fetches it
func (c *Controller) SetPeriod(ctx context.Context, p state.Period) error {
	return c.run(false, func() error {
		c.analysis.SetPeriod(p)
		return c.analysis.Fetch(ctx)
	})
}

// SetDates changes the reporting dates and fetches them
func (c *Controller) SetDates(ctx context.Context, date, endDate string) error {
	return c.run(false, func() error {
		if err := c.analysis.SetDates(date, endDate); err != nil {
			c.notify(notify.Error, err.Error())
			return err
		}
		return c.analysis.Fetch(ctx)
	})
}

// FetchAnalysis re-runs the aggregate query for the current selection
func (c *Controller) FetchAnalysis(ctx context.Context) error {
	return c.run(false, func() error { return c.analysis.Fetch(ctx) })
}

// ExportReport writes the selected customer's report
func (c *Controller) ExportReport(ctx context.Context, format report.Format) (string, error) {
	var path string
	err := c.run(false, func() error {
		if c.exporter == nil {
			return fmt.Errorf("report export is not configured")
		}
		id, _ := c.st.Session.Selected()
		var err error
		path, err = c.exporter.Export(ctx, id, format)
		return err
	})
	return path, err
}

// expiredNotice is the banner shown when the inactivity window runs out
func expiredNotice(d time.Duration) string {
	window := d.String()
	if d%time.Minute == 0 {
		window = fmt.Sprintf("%d minutes", int(d/time.Minute))
		if d == time.Minute {
			window = "1 minute"
		}
	}
	return fmt.Sprintf("Session expired due to %s of inactivity. Please log in again.", window)
}
