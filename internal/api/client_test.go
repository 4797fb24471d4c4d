package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/testutil"
	"github.com/jgoulah/billbuddy/pkg/models"
)

type recordingObserver struct {
	routes    []string
	statuses  []int
	transport []bool
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, transport bool, _ time.Duration) {
	o.routes = append(o.routes, method+" "+route)
	o.statuses = append(o.statuses, status)
	o.transport = append(o.transport, transport)
}

func TestRequest_TransportFailureSynthesizesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	notes := &testutil.Notifier{}
	c := New(url, WithNotifier(notes))

	res := c.Request(context.Background(), http.MethodGet, "/api/applications", nil)

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	env := res.Envelope()
	assert.False(t, env.Success)
	assert.Equal(t, NetworkErrorMessage, env.Message)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	notices := notes.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Error, notices[0].Kind)
	assert.Contains(t, notices[0].Message, "Network error: ")
}

func TestRequest_InvalidJSONIsTreatedAsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	notes := &testutil.Notifier{}
	res := New(srv.URL, WithNotifier(notes)).Request(context.Background(), http.MethodGet, "/api/applications", nil)

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.True(t, IsTransport(res.Err()))
	assert.Len(t, notes.Notices(), 1)
}

func TestRequest_ErrorStatusStillParsesBody(t *testing.T) {
	backend := testutil.NewBackend(t)
	notes := &testutil.Notifier{}
	c := New(backend.URL(), WithNotifier(notes))

	res := c.Request(context.Background(), http.MethodPost, "/api/login",
		map[string]string{"username": "nobody", "password": "x"})

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "Invalid credentials or role.", res.Envelope().Message)

	err := res.Err()
	require.Error(t, err)
	assert.False(t, IsTransport(err))
	assert.Equal(t, "Invalid credentials or role.", MessageOr(err, "fallback"))
	assert.Empty(t, notes.Notices(), "server-side failures are left to the caller")
}

func TestRequest_SuccessFalseWith2xxIsAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	res := New(srv.URL).Request(context.Background(), http.MethodGet, "/api/applications", nil)

	assert.True(t, res.OK)
	assert.False(t, res.Succeeded())
	assert.Equal(t, "fallback", MessageOr(res.Err(), "fallback"))
}

func TestRequest_ReportsToObserver(t *testing.T) {
	backend := testutil.NewBackend(t)
	id := backend.AddCustomer("Amy", "amy@x.com", "")
	obs := &recordingObserver{}
	c := New(backend.URL(), WithObserver(obs))

	_, err := c.UsageRecords(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /api/customer/{id}/applications"}, obs.routes)
	assert.Equal(t, []int{http.StatusOK}, obs.statuses)
	assert.Equal(t, []bool{false}, obs.transport)
}

func TestRouteOf(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"/api/applications", "/api/applications"},
		{"/api/customer/12/applications", "/api/customer/{id}/applications"},
		{"/api/customer/application/7", "/api/customer/application/{id}"},
		{"/api/cost_analysis?customer_id=3&period=day", "/api/cost_analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, routeOf(tt.endpoint))
		})
	}
}

func TestLogin(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddCustomer("Amy", "amy@x.com", "555")
	c := New(backend.URL())

	admin, err := c.Login(context.Background(), testutil.AdminUsername, testutil.AdminPassword)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	customer, err := c.Login(context.Background(), "amy@x.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, customer.Role)
	assert.Equal(t, "Amy", customer.Name)

	_, err = c.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials or role.", MessageOr(err, ""))
}

func TestUsageMutationBodies(t *testing.T) {
	backend := testutil.NewBackend(t)
	id := backend.AddCustomer("Amy", "amy@x.com", "")
	c := New(backend.URL())
	ctx := context.Background()

	msg, err := c.AddUsage(ctx, id, models.NewUsage{
		ApplicationName: "Ceiling Fan",
		Qty:             2,
		DateTime:        "2024-05-01T09:30",
		Watts:           75,
		HoursDay:        4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Application usage added successfully.", msg)

	records, err := c.UsageRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.6, records[0].DailyKWh, 1e-9)
	assert.InDelta(t, 4.8, records[0].DailyCost, 1e-9)

	_, err = c.EditUsage(ctx, records[0].CustAppID, models.UsageUpdate{Qty: 3, DateTime: "2024-05-02T10:00", HoursDay: 5})
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 3)

	add := calls[0]
	assert.Equal(t, "/api/customer/1/application", add.Path)
	assert.Equal(t, map[string]any{
		"application_name": "Ceiling Fan",
		"qty":              float64(2),
		"date_time":        "2024-05-01T09:30",
		"watts":            float64(75),
		"hours_day":        float64(4),
	}, add.Body)

	edit := calls[2]
	assert.Equal(t, http.MethodPut, edit.Method)
	assert.NotContains(t, edit.Body, "watts")
	assert.NotContains(t, edit.Body, "application_name")
	assert.Equal(t, float64(3), edit.Body["qty"])
}

func TestCostAnalysisQuery(t *testing.T) {
	backend := testutil.NewBackend(t)
	id := backend.AddCustomer("Amy", "amy@x.com", "")
	backend.AddUsage(id, "Ceiling Fan", 2, 75, 4, "2024-05-01 09:30")
	backend.AddUsage(id, "Electric Kettle", 1, 1500, 0.5, "2024-06-03 07:00")
	c := New(backend.URL())

	res, err := c.CostAnalysis(context.Background(), id, "year", "2024")
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "year", calls[0].Query.Get("period"))
	assert.Equal(t, "2024", calls[0].Query.Get("date"))
	assert.Equal(t, "1", calls[0].Query.Get("customer_id"))

	assert.InDelta(t, 4.8+6.0, res.SummaryCost, 1e-9)
	assert.Len(t, res.MonthlyChart, 2)
	assert.Nil(t, res.DailyChart)
}

func TestCall_UndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "customers": "nope"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Customers(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Unexpected response from server.", MessageOr(err, ""))
}
