// Package analysis drives the reports section: the reporting period picker,
// the aggregate query and the conversion of its response into chart series.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
	YearLayout  = "2006"

	customLookback = 30 * 24 * time.Hour
)

var (
	// ErrRange is returned when a custom range starts after it ends
	ErrRange = errors.New("start date is after end date")
	// ErrDate is returned for a date that does not fit the selected period
	ErrDate = errors.New("invalid date for period")
	// ErrNoCustomer is returned when no customer is selected
	ErrNoCustomer = errors.New("no customer selected")
)

// DefaultSelection returns the picker state for period as of now
func DefaultSelection(period state.Period, now time.Time) state.Selection {
	switch period {
	case state.Day:
		return state.Selection{Period: state.Day, Date: now.Format(DayLayout)}
	case state.Year:
		return state.Selection{Period: state.Year, Date: now.Format(YearLayout)}
	case state.Custom:
		return state.Selection{
			Period:  state.Custom,
			Date:    now.Add(-customLookback).Format(DayLayout),
			EndDate: now.Format(DayLayout),
		}
	default:
		return state.Selection{Period: state.Month, Date: now.Format(MonthLayout)}
	}
}

// Series picks the time buckets to chart: months for a year, days otherwise
func Series(period state.Period, resp *models.CostAnalysis) []state.Bucket {
	if resp == nil {
		return nil
	}
	if period == state.Year {
		return lo.Map(resp.MonthlyChart, func(m models.MonthlyCost, _ int) state.Bucket {
			return state.Bucket{Label: m.MonthLabel, Cost: m.TotalCost}
		})
	}
	return lo.Map(resp.DailyChart, func(d models.DailyCost, _ int) state.Bucket {
		return state.Bucket{Label: d.DayLabel, Cost: d.TotalCost}
	})
}

// Label is the caption shown under the summary cost
func Label(sel state.Selection, filter models.Filter) string {
	switch sel.Period {
	case state.Month:
		return "Month of " + filter.Date
	case state.Year:
		return "Year " + filter.Date
	case state.Day:
		return "Day " + filter.Date
	case state.Custom:
		return fmt.Sprintf("Custom Range: %s to %s", sel.Date, sel.EndDate)
	}
	return ""
}

// FetchTotals fetches the day, month and year cost for a customer, one request
// after another. A failed request leaves its total at zero.
func FetchTotals(ctx context.Context, client *api.Client, customerID int, now time.Time) (state.Totals, error) {
	var totals state.Totals
	var errs []error

	for _, q := range []struct {
		period state.Period
		date   string
		dst    *float64
	}{
		{state.Day, now.Format(DayLayout), &totals.Day},
		{state.Month, now.Format(MonthLayout), &totals.Month},
		{state.Year, now.Format(YearLayout), &totals.Year},
	} {
		resp, err := client.CostAnalysis(ctx, customerID, string(q.period), q.date)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetching %s total: %w", q.period, err))
			continue
		}
		*q.dst = resp.SummaryCost
	}

	return totals, errors.Join(errs...)
}

// Deps are the collaborators of an Engine
type Deps struct {
	Client   *api.Client
	State    *state.State
	View     render.Presenter
	Charts   *render.Charts
	Notifier notify.Notifier
	Clock    clock.Clock
	Log      *zap.SugaredLogger
}

// Engine owns the reporting period picker and the reports charts
type Engine struct {
	client *api.Client
	st     *state.State
	view   render.Presenter
	charts *render.Charts
	notes  notify.Notifier
	clock  clock.Clock
	log    *zap.SugaredLogger
}

// New creates an engine
func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.View == nil {
		d.View = render.Nop{}
	}
	return &Engine{
		client: d.Client,
		st:     d.State,
		view:   d.View,
		charts: d.Charts,
		notes:  d.Notifier,
		clock:  d.Clock,
		log:    d.Log,
	}
}

// Selection returns the current picker state
func (e *Engine) Selection() state.Selection {
	return e.st.Analysis.Selection
}

// SetPeriod switches the period and resets the dates to that period's defaults
func (e *Engine) SetPeriod(p state.Period) {
	e.st.Analysis.Selection = DefaultSelection(p, e.clock.Now())
}

// SetDates sets the date (and, for Custom, the end date). The values must match
// the period's format and a year may not lie in the future. Ordering of a
// custom range is checked when fetching.
func (e *Engine) SetDates(date, endDate string) error {
	sel := e.st.Analysis.Selection
	now := e.clock.Now()

	switch sel.Period {
	case state.Day:
		if _, err := time.Parse(DayLayout, date); err != nil {
			return fmt.Errorf("%w: day must be YYYY-MM-DD, got %q", ErrDate, date)
		}
	case state.Month:
		if _, err := time.Parse(MonthLayout, date); err != nil {
			return fmt.Errorf("%w: month must be YYYY-MM, got %q", ErrDate, date)
		}
	case state.Year:
		year, err := strconv.Atoi(date)
		if err != nil || len(date) != 4 {
			return fmt.Errorf("%w: year must be YYYY, got %q", ErrDate, date)
		}
		if year > now.Year() {
			return fmt.Errorf("%w: year %d is in the future", ErrDate, year)
		}
	case state.Custom:
		if _, err := time.Parse(DayLayout, date); err != nil {
			return fmt.Errorf("%w: start must be YYYY-MM-DD, got %q", ErrDate, date)
		}
		if endDate == "" {
			endDate = sel.EndDate
		}
		if _, err := time.Parse(DayLayout, endDate); err != nil {
			return fmt.Errorf("%w: end must be YYYY-MM-DD, got %q", ErrDate, endDate)
		}
		sel.EndDate = endDate
	}

	sel.Date = date
	e.st.Analysis.Selection = sel
	return nil
}

// Setup resets the picker to the current period's defaults and fetches
func (e *Engine) Setup(ctx context.Context) error {
	e.SetPeriod(e.st.Analysis.Period)
	return e.Fetch(ctx)
}

// Reset returns the picker to the month default and drops the last result
func (e *Engine) Reset() {
	e.st.Analysis = state.Analysis{Selection: DefaultSelection(state.Month, e.clock.Now())}
}

// Fetch queries the aggregate for the selected customer and period. Charts are
// blanked before the request so a stale result never sits under a new label.
func (e *Engine) Fetch(ctx context.Context) error {
	customerID, ok := e.st.Session.Selected()
	if !ok {
		e.notify(notify.Error, "Please select a customer first.")
		return ErrNoCustomer
	}

	sel := e.st.Analysis.Selection
	if sel.Period == state.Custom {
		start, errStart := time.Parse(DayLayout, sel.Date)
		end, errEnd := time.Parse(DayLayout, sel.EndDate)
		if errStart == nil && errEnd == nil && start.After(end) {
			e.notify(notify.Error, "Start date cannot be after end date.")
			return ErrRange
		}
		// The aggregate endpoint only takes one anchor date
		e.notify(notify.Info, "Note: Custom range filtering is a complex feature. Only the start date is used for filtering in this demo.")
	}

	if e.charts != nil {
		e.charts.Blank(render.ReportApp, render.ReportTime)
	}

	resp, err := e.client.CostAnalysis(ctx, customerID, string(sel.Period), sel.Date)
	if err != nil {
		e.log.Warnw("cost analysis failed", "customer_id", customerID, "period", sel.Period, "date", sel.Date, "error", err)
		if !api.IsTransport(err) {
			e.notify(notify.Error, api.MessageOr(err, "Failed to fetch cost analysis data."))
		}
		e.st.Analysis = state.Analysis{Selection: sel, Label: "Error Fetching Data"}
		e.view.ShowSummary(0, e.st.Analysis.Label)
		return err
	}

	series := Series(sel.Period, resp)
	e.st.Analysis = state.Analysis{
		Selection:       sel,
		SummaryCost:     resp.SummaryCost,
		Label:           Label(sel, resp.CurrentFilter),
		AppBreakdown:    resp.AppBreakdown,
		TimeSeries:      series,
		AvailableYears:  resp.AvailableYears,
		AvailableMonths: resp.AvailableMonths,
	}

	e.view.ShowSummary(resp.SummaryCost, e.st.Analysis.Label)
	if e.charts != nil {
		e.charts.Breakdown(render.ReportApp, resp.AppBreakdown)
		e.charts.TimeSeries(render.ReportTime, sel.Period.TimeUnit(), series)
	}
	return nil
}

func (e *Engine) notify(kind notify.Kind, msg string) {
	if e.notes != nil {
		e.notes.Notify(kind, msg)
	}
}
