package controller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/catalog"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/ledger"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/report"
	"github.com/jgoulah/billbuddy/internal/session"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/internal/testutil"
	"github.com/jgoulah/billbuddy/pkg/models"
)

var now = time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)

type recordingView struct {
	render.Nop
	logins   int
	sections []state.View
	navs     [][]state.View
	viewing  []string
	general  int
}

func (v *recordingView) ShowLogin() { v.logins++ }
func (v *recordingView) ShowViewing(label string) { v.viewing = append(v.viewing, label) }
func (v *recordingView) ShowGeneralTips() { v.general++ }

func (v *recordingView) ShowSection(active state.View, nav []state.View) {
	v.sections = append(v.sections, active)
	v.navs = append(v.navs, nav)
}

type canvas struct {
	live int
}

type handle struct {
	c *canvas
}

func (h *handle) Destroy() { h.c.live-- }

func (c *canvas) Draw(render.Chart) render.Handle {
	c.live++
	return &handle{c: c}
}

type fakeExporter struct {
	ids []int
}

func (e *fakeExporter) Export(_ context.Context, customerID int, format report.Format) (string, error) {
	e.ids = append(e.ids, customerID)
	return "Energy_Report." + string(format), nil
}

type fixture struct {
	backend  *testutil.Backend
	notes    *testutil.Notifier
	view     *recordingView
	canvas   *canvas
	clock    *clock.Fake
	bus      *session.Bus
	apps     *catalog.Store
	exporter *fakeExporter
	ctrl     *Controller
}

func newFixture(t *testing.T, baseURL string) *fixture {
	f := &fixture{
		notes:    &testutil.Notifier{},
		view:     &recordingView{},
		canvas:   &canvas{},
		clock:    clock.NewFake(now),
		bus:      session.NewBus(),
		apps:     catalog.New(),
		exporter: &fakeExporter{},
	}
	if baseURL == "" {
		f.backend = testutil.NewBackend(t)
		baseURL = f.backend.URL()
	}
	f.ctrl = New(Deps{
		Client:   api.New(baseURL, api.WithNotifier(f.notes)),
		Catalog:  f.apps,
		View:     f.view,
		Charts:   render.NewCharts(f.canvas, "₹"),
		Notifier: f.notes,
		Confirm:  &testutil.Confirmer{Reply: true},
		Clock:    f.clock,
		Bus:      f.bus,
		Exporter: f.exporter,
	})
	f.ctrl.Start()
	return f
}

func dashboardRefresh(id string) []string {
	return []string{
		"GET /api/cost_analysis?customer_id=" + id + "&date=2024-05-17&period=day",
		"GET /api/cost_analysis?customer_id=" + id + "&date=2024-05&period=month",
		"GET /api/cost_analysis?customer_id=" + id + "&date=2024&period=year",
		"GET /api/customer/" + id + "/applications",
		"GET /api/cost_analysis?customer_id=" + id + "&date=2024-05&period=month",
	}
}

func TestStart_ShowsLogin(t *testing.T) {
	f := newFixture(t, "")

	assert.Equal(t, 1, f.view.logins)
	assert.Equal(t, "", f.ctrl.Location())
	assert.False(t, f.ctrl.SessionArmed())
	assert.ErrorIs(t, f.ctrl.ShowView(context.Background(), "dashboard"), ErrNotLoggedIn)
}

func TestLogin_AdminWithEmptyDirectoryLandsOnCustomers(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.ctrl.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword))

	assert.Equal(t, "#customers", f.ctrl.Location())
	assert.Nil(t, f.ctrl.Session().SelectedCustomerID)
	assert.True(t, f.ctrl.SessionArmed())
	assert.Equal(t, 3, f.apps.Len())
	assert.Equal(t, []string{"Welcome, admin!"}, f.notes.Messages())
	assert.Equal(t, []string{
		"POST /api/login",
		"GET /api/applications",
		"GET /api/admin/customers",
	}, f.backend.Requests())
	assert.Equal(t, []state.View{state.Dashboard, state.Customers, state.Reports, state.Tips}, f.ctrl.Nav())
}

func TestLogin_AdminSelectsFirstCustomerAndCascades(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	f.backend.AddCustomer("John Doe", "john@x.com", "")

	require.NoError(t, f.ctrl.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword))

	assert.Equal(t, "#dashboard", f.ctrl.Location())
	selected := f.ctrl.Session().SelectedCustomerID
	require.NotNil(t, selected)
	assert.Equal(t, 1, *selected)
	assert.Contains(t, f.view.viewing, "Viewing: Amy (amy@x.com)")

	want := []string{"POST /api/login", "GET /api/applications", "GET /api/admin/customers"}
	want = append(want, dashboardRefresh("1")...)
	want = append(want, "GET /api/cost_analysis?customer_id=1&date=2024-05&period=month")
	assert.Equal(t, want, f.backend.Requests())
}

func TestLogin_CustomerSeesOwnDashboard(t *testing.T) {
	f := newFixture(t, "")
	id := f.backend.AddCustomer("Amy", "amy@x.com", "")

	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))

	s := f.ctrl.Session()
	require.NotNil(t, s.SelectedCustomerID)
	assert.Equal(t, id, *s.SelectedCustomerID)
	assert.Equal(t, models.RoleCustomer, s.Role)
	assert.Equal(t, "#dashboard", f.ctrl.Location())
	assert.Equal(t, []string{"Viewing: Amy (Your Data)"}, f.view.viewing)
	assert.Equal(t, []state.View{state.Dashboard, state.Reports, state.Tips}, f.ctrl.Nav())

	want := append([]string{"POST /api/login", "GET /api/applications"}, dashboardRefresh("1")...)
	assert.Equal(t, want, f.backend.Requests())

	assert.ErrorIs(t, f.ctrl.ShowView(context.Background(), "#customers"), ErrForbidden)
	assert.ErrorIs(t, f.ctrl.ListCustomers(context.Background()), ErrForbidden)
	assert.Equal(t, "#dashboard", f.ctrl.Location())
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t, "")

	err := f.ctrl.Login(context.Background(), "nobody", "nope")
	require.Error(t, err)

	assert.False(t, f.ctrl.Session().LoggedIn)
	assert.False(t, f.ctrl.SessionArmed())
	assert.Equal(t, []testutil.Notice{{Kind: notify.Error, Message: "Invalid credentials or role."}}, f.notes.Notices())
}

func TestLogin_CatalogFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	f.backend.Fail("GET /api/applications", http.StatusInternalServerError, "boom")

	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))

	assert.True(t, f.ctrl.Session().LoggedIn)
	assert.Equal(t, 0, f.apps.Len())
	assert.Equal(t, []testutil.Notice{
		{Kind: notify.Error, Message: "boom"},
		{Kind: notify.Success, Message: "Welcome, Amy!"},
	}, f.notes.Notices())

	f.backend.ResetCalls()
	err := f.ctrl.AddUsage(context.Background(), ledger.AddForm{ApplicationName: "Ceiling Fan", Qty: 1, HoursDay: 1})
	assert.ErrorIs(t, err, ledger.ErrNoApplication)
	assert.Empty(t, f.backend.Requests())
}

func TestLogin_TransportFailureNotifiesOnce(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1")

	err := f.ctrl.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword)
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))

	assert.False(t, f.ctrl.Session().LoggedIn)
	notices := f.notes.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Error, notices[0].Kind)
	assert.Contains(t, notices[0].Message, "Network error")
}

func TestShowView_Dispatch(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))
	ctx := context.Background()

	f.backend.ResetCalls()
	require.NoError(t, f.ctrl.ShowView(ctx, "reports"))
	assert.Equal(t, "#reports", f.ctrl.Location())
	assert.Equal(t, []string{"GET /api/cost_analysis?customer_id=1&date=2024-05&period=month"}, f.backend.Requests())

	f.backend.ResetCalls()
	require.NoError(t, f.ctrl.ShowView(ctx, "tips"))
	assert.Equal(t, 1, f.view.general)
	assert.Empty(t, f.backend.Requests())

	f.backend.ResetCalls()
	require.NoError(t, f.ctrl.ShowView(ctx, "#dashboard"))
	assert.Equal(t, dashboardRefresh("1"), f.backend.Requests())

	assert.Error(t, f.ctrl.ShowView(ctx, "settings"))
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	require.NoError(t, f.ctrl.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword))
	require.NoError(t, f.ctrl.SetPeriod(context.Background(), state.Year))
	require.Positive(t, f.canvas.live)

	f.ctrl.Logout(context.Background())

	assert.False(t, f.ctrl.Session().LoggedIn)
	assert.Nil(t, f.ctrl.Session().SelectedCustomerID)
	assert.Equal(t, "", f.ctrl.Location())
	assert.False(t, f.ctrl.SessionArmed())
	assert.Equal(t, 0, f.apps.Len())
	assert.Equal(t, 0, f.canvas.live)
	assert.Equal(t, state.Selection{Period: state.Month, Date: "2024-05"}, f.ctrl.Selection())
	assert.Equal(t, 2, f.view.logins)

	requests := f.backend.Requests()
	assert.Equal(t, "POST /api/logout", requests[len(requests)-1])
	assert.ErrorIs(t, f.ctrl.ShowView(context.Background(), "dashboard"), ErrNotLoggedIn)
}

func TestExpire_AfterInactivity(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))

	f.clock.Advance(9 * time.Minute)
	f.bus.Emit(session.KeyPress)
	f.clock.Advance(9 * time.Minute)
	assert.True(t, f.ctrl.Session().LoggedIn)

	f.clock.Advance(2 * time.Minute)
	assert.False(t, f.ctrl.Session().LoggedIn)
	assert.False(t, f.ctrl.SessionArmed())
	assert.Contains(t, f.notes.Messages(), "Session expired due to 10 minutes of inactivity. Please log in again.")

	// Activity while logged out arms nothing
	f.bus.Emit(session.Click)
	assert.False(t, f.ctrl.SessionArmed())
}

func TestExpiredNotice(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    string
	}{
		{DefaultSessionTimeout, "Session expired due to 10 minutes of inactivity. Please log in again."},
		{time.Minute, "Session expired due to 1 minute of inactivity. Please log in again."},
		{90 * time.Second, "Session expired due to 1m30s of inactivity. Please log in again."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expiredNotice(tt.timeout))
	}
}

func TestExpire_UsesConfiguredTimeout(t *testing.T) {
	f := newFixture(t, "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")
	f.ctrl = New(Deps{
		Client:   api.New(f.backend.URL(), api.WithNotifier(f.notes)),
		Catalog:  f.apps,
		View:     f.view,
		Notifier: f.notes,
		Clock:    f.clock,
		Bus:      session.NewBus(),
		Timeout:  3 * time.Minute,
	})
	f.ctrl.Start()
	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))

	f.clock.Advance(3 * time.Minute)

	assert.False(t, f.ctrl.Session().LoggedIn)
	assert.Contains(t, f.notes.Messages(), "Session expired due to 3 minutes of inactivity. Please log in again.")
}

func TestExportReport_UsesSelectedCustomer(t *testing.T) {
	f := newFixture(t, "")
	id := f.backend.AddCustomer("Amy", "amy@x.com", "")
	require.NoError(t, f.ctrl.Login(context.Background(), "amy@x.com", "pw"))

	path, err := f.ctrl.ExportReport(context.Background(), report.XLSX)
	require.NoError(t, err)
	assert.Equal(t, "Energy_Report.xlsx", path)
	assert.Equal(t, []int{id}, f.exporter.ids)
}

func TestExportReport_AdminWithoutSelection(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.ctrl.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword))

	_, err := f.ctrl.ExportReport(context.Background(), report.PDF)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, f.exporter.ids)
}
