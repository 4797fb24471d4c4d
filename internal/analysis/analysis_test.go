package analysis

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/internal/testutil"
	"github.com/jgoulah/billbuddy/pkg/models"
)

var now = time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)

type drawLog struct {
	charts []render.Chart
}

func (d *drawLog) Draw(c render.Chart) render.Handle {
	d.charts = append(d.charts, c)
	return nopHandle{}
}

type nopHandle struct{}

func (nopHandle) Destroy() {}

type summaryView struct {
	render.Nop
	cost  float64
	label string
}

func (v *summaryView) ShowSummary(cost float64, label string) {
	v.cost, v.label = cost, label
}

type fixture struct {
	backend *testutil.Backend
	notes   *testutil.Notifier
	st      *state.State
	canvas  *drawLog
	view    *summaryView
	engine  *Engine
	id      int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		backend: testutil.NewBackend(t),
		notes:   &testutil.Notifier{},
		st:      state.New(now),
		canvas:  &drawLog{},
		view:    &summaryView{},
	}
	f.id = f.backend.AddCustomer("Amy", "amy@x.com", "")
	f.backend.AddUsage(f.id, "Ceiling Fan", 2, 75, 4, "2024-05-01 09:30")
	f.backend.AddUsage(f.id, "Electric Kettle", 1, 1500, 0.5, "2024-03-03 07:00")
	f.st.Session = state.Session{LoggedIn: true, Role: models.RoleCustomer, UserID: f.id, UserName: "Amy"}
	f.st.Session.Select(f.id)

	f.engine = New(Deps{
		Client:   api.New(f.backend.URL(), api.WithNotifier(f.notes)),
		State:    f.st,
		View:     f.view,
		Charts:   render.NewCharts(f.canvas, "₹"),
		Notifier: f.notes,
		Clock:    clock.NewFake(now),
	})
	return f
}

func TestDefaultSelection(t *testing.T) {
	tests := []struct {
		period state.Period
		want   state.Selection
	}{
		{state.Day, state.Selection{Period: state.Day, Date: "2024-05-17"}},
		{state.Month, state.Selection{Period: state.Month, Date: "2024-05"}},
		{state.Year, state.Selection{Period: state.Year, Date: "2024"}},
		{state.Custom, state.Selection{Period: state.Custom, Date: "2024-04-17", EndDate: "2024-05-17"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSelection(tt.period, now))
		})
	}
}

func TestSetPeriod_YearThenMonthResetsDate(t *testing.T) {
	f := newFixture(t)

	f.engine.SetPeriod(state.Year)
	require.NoError(t, f.engine.SetDates("2023", ""))
	assert.Equal(t, "2023", f.engine.Selection().Date)

	f.engine.SetPeriod(state.Month)
	assert.Equal(t, state.Selection{Period: state.Month, Date: "2024-05"}, f.engine.Selection())
}

func TestSetDates(t *testing.T) {
	tests := []struct {
		name    string
		period  state.Period
		date    string
		end     string
		wantErr bool
	}{
		{"day ok", state.Day, "2024-05-01", "", false},
		{"day in month format", state.Day, "2024-05", "", true},
		{"month ok", state.Month, "2023-11", "", false},
		{"month in year format", state.Month, "2023", "", true},
		{"past year", state.Year, "2019", "", false},
		{"future year", state.Year, "2025", "", true},
		{"year garbage", state.Year, "20x4", "", true},
		{"custom ok", state.Custom, "2024-01-01", "2024-02-01", false},
		{"custom reversed is accepted until fetch", state.Custom, "2024-02-01", "2024-01-01", false},
		{"custom bad end", state.Custom, "2024-01-01", "tomorrow", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.engine.SetPeriod(tt.period)

			err := f.engine.SetDates(tt.date, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, f.engine.Selection().Date)
		})
	}
}

func TestFetch_CustomRangeReversedMakesNoRequest(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPeriod(state.Custom)
	require.NoError(t, f.engine.SetDates("2024-02-01", "2024-01-01"))

	err := f.engine.Fetch(context.Background())

	assert.ErrorIs(t, err, ErrRange)
	assert.Empty(t, f.backend.Calls())
	assert.Equal(t, []testutil.Notice{{Kind: notify.Error, Message: "Start date cannot be after end date."}}, f.notes.Notices())
	assert.Empty(t, f.canvas.charts, "charts are untouched when validation fails")
}

func TestFetch_CustomRangeSendsStartDateOnly(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPeriod(state.Custom)
	require.NoError(t, f.engine.SetDates("2024-05-01", "2024-05-10"))

	require.NoError(t, f.engine.Fetch(context.Background()))

	calls := f.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "custom", calls[0].Query.Get("period"))
	assert.Equal(t, "2024-05-01", calls[0].Query.Get("date"))
	assert.Equal(t, notify.Info, f.notes.Notices()[0].Kind)
	assert.Equal(t, "Custom Range: 2024-05-01 to 2024-05-10", f.view.label)
}

func TestFetch_YearChartsMonthlyBuckets(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPeriod(state.Year)

	require.NoError(t, f.engine.Fetch(context.Background()))

	assert.Equal(t, "Year 2024", f.view.label)
	assert.InDelta(t, 4.8+6.0, f.view.cost, 1e-9)

	// Two blank charts, then the real ones
	require.Len(t, f.canvas.charts, 4)
	assert.True(t, f.canvas.charts[0].Empty())
	assert.True(t, f.canvas.charts[1].Empty())
	assert.Equal(t, render.ReportApp, f.canvas.charts[2].Slot)
	assert.Equal(t, render.ReportTime, f.canvas.charts[3].Slot)
	assert.Equal(t, "Month", f.canvas.charts[3].Unit)
	assert.Equal(t, []string{"2024-03", "2024-05"}, f.canvas.charts[3].Labels)

	assert.Equal(t, []string{"2024"}, f.st.Analysis.AvailableYears)
}

func TestFetch_MonthChartsDailyBuckets(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.Setup(context.Background()))

	assert.Equal(t, "Month of 2024-05", f.view.label)
	require.Len(t, f.st.Analysis.TimeSeries, 1)
	assert.Equal(t, "2024-05-01", f.st.Analysis.TimeSeries[0].Label)
	assert.InDelta(t, 4.8, f.st.Analysis.TimeSeries[0].Cost, 1e-9)
	assert.Equal(t, "Day", f.canvas.charts[3].Unit)
}

func TestFetch_ServerFailureShowsErrorLabel(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("GET /api/cost_analysis", http.StatusBadRequest, "Invalid date format.")

	err := f.engine.Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Error Fetching Data", f.view.label)
	assert.Zero(t, f.view.cost)
	assert.Equal(t, []string{"Invalid date format."}, f.notes.Messages())
	require.Len(t, f.canvas.charts, 2, "charts stay blank after a failure")
}

func TestFetch_NoCustomerSelected(t *testing.T) {
	f := newFixture(t)
	f.st.Session.Unselect()

	err := f.engine.Fetch(context.Background())

	assert.ErrorIs(t, err, ErrNoCustomer)
	assert.Equal(t, []string{"Please select a customer first."}, f.notes.Messages())
	assert.Empty(t, f.backend.Calls())
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPeriod(state.Year)
	require.NoError(t, f.engine.Fetch(context.Background()))

	f.engine.Reset()

	assert.Equal(t, state.Analysis{Selection: state.Selection{Period: state.Month, Date: "2024-05"}}, f.st.Analysis)
}

func TestFetchTotals(t *testing.T) {
	f := newFixture(t)
	client := api.New(f.backend.URL())

	totals, err := FetchTotals(context.Background(), client, f.id, now)
	require.NoError(t, err)

	assert.Zero(t, totals.Day)
	assert.InDelta(t, 4.8, totals.Month, 1e-9)
	assert.InDelta(t, 10.8, totals.Year, 1e-9)
	assert.Equal(t, []string{
		"GET /api/cost_analysis?customer_id=1&date=2024-05-17&period=day",
		"GET /api/cost_analysis?customer_id=1&date=2024-05&period=month",
		"GET /api/cost_analysis?customer_id=1&date=2024&period=year",
	}, f.backend.Requests())
}

func TestSeries_NilSafe(t *testing.T) {
	assert.Nil(t, Series(state.Month, nil))
	assert.Empty(t, Series(state.Year, &models.CostAnalysis{}))
}
