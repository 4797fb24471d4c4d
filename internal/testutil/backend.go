// Package testutil provides an in-memory BillBuddy backend and recording fakes
// for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/jgoulah/billbuddy/pkg/models"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
	CostPerKWh    = 8.0
)

// Call is one request received by the backend
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// String renders "GET /api/cost_analysis?period=day"
func (c Call) String() string {
	if len(c.Query) == 0 {
		return c.Method + " " + c.Path
	}
	return c.Method + " " + c.Path + "?" + c.Query.Encode()
}

// Backend is an in-memory stand-in for the BillBuddy API
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	calls        []Call
	applications []models.Application
	customers    []models.Customer
	usage        map[int][]models.UsageRecord
	failures     map[string]failure
	nextCustomer int
	nextUsage    int
}

type failure struct {
	status  int
	message string
}

// NewBackend starts a backend seeded with a small catalog. It is closed with the test.
func NewBackend(t testing.TB) *Backend {
	b := &Backend{
		applications: []models.Application{
			{ApplicationName: "Ceiling Fan", Watts: 75},
			{ApplicationName: "Refrigerator (Standard)", Watts: 150},
			{ApplicationName: "Electric Kettle", Watts: 1500},
		},
		usage:        make(map[int][]models.UsageRecord),
		failures:     make(map[string]failure),
		nextCustomer: 1,
		nextUsage:    1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", b.login)
	mux.HandleFunc("POST /api/logout", b.ok("Logged out successfully."))
	mux.HandleFunc("GET /api/applications", b.listApplications)
	mux.HandleFunc("GET /api/admin/customers", b.listCustomers)
	mux.HandleFunc("POST /api/admin/customer", b.addCustomer)
	mux.HandleFunc("PUT /api/admin/customer/{id}", b.editCustomer)
	mux.HandleFunc("DELETE /api/admin/customer/{id}", b.deleteCustomer)
	mux.HandleFunc("GET /api/customer/{id}/applications", b.listUsage)
	mux.HandleFunc("POST /api/customer/{id}/application", b.addUsage)
	mux.HandleFunc("PUT /api/customer/application/{id}", b.editUsage)
	mux.HandleFunc("DELETE /api/customer/application/{id}", b.deleteUsage)
	mux.HandleFunc("GET /api/cost_analysis", b.costAnalysis)
	mux.HandleFunc("GET /api/customer/{id}/report_data", b.reportData)

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the backend
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddCustomer seeds a customer and returns its id
func (b *Backend) AddCustomer(name, email, phone string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextCustomer
	b.nextCustomer++
	b.customers = append(b.customers, models.Customer{CustomerID: id, CustomerName: name, EmailID: email, PhoneNo: phone})
	return id
}

// AddUsage seeds a usage record and returns its id
func (b *Backend) AddUsage(customerID int, app string, qty, watts int, hours float64, dateTime string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertUsageLocked(customerID, app, qty, watts, hours, dateTime)
}

// Fail makes "METHOD /path" answer with success=false and the given status
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Calls returns every request received so far
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Requests returns Calls rendered as strings
func (b *Backend) Requests() []string {
	var out []string
	for _, c := range b.Calls() {
		out = append(out, c.String())
	}
	return out
}

// ResetCalls clears the request log
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Customers returns the backend's current directory
func (b *Backend) Customers() []models.Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Customer(nil), b.customers...)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &call.Body)
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		b.mu.Lock()
		b.calls = append(b.calls, call)
		f, failing := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]any{"success": false, "message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) ok(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Username == AdminUsername && body.Password == AdminPassword {
		writeJSON(w, http.StatusOK, map[string]any{"success": true,
			"user": models.User{ID: 1, Role: models.RoleAdmin, Name: AdminUsername}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.Contains(body.Username, "@") {
		for _, c := range b.customers {
			if c.EmailID == body.Username {
				writeJSON(w, http.StatusOK, map[string]any{"success": true,
					"user": models.User{ID: c.CustomerID, Role: models.RoleCustomer, Name: c.CustomerName}})
				return
			}
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials or role."})
}

func (b *Backend) listApplications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "applications": b.applications})
}

func (b *Backend) listCustomers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	customers := append([]models.Customer{}, b.customers...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "customers": customers})
}

func (b *Backend) addCustomer(w http.ResponseWriter, r *http.Request) {
	var form models.CustomerForm
	_ = json.NewDecoder(r.Body).Decode(&form)
	if form.Name == "" || form.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Name and Email are required."})
		return
	}
	b.AddCustomer(form.Name, form.Email, form.Phone)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Customer added successfully."})
}

func (b *Backend) editCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var form models.CustomerForm
	_ = json.NewDecoder(r.Body).Decode(&form)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.customers {
		if c.CustomerID == id {
			b.customers[i] = models.Customer{CustomerID: id, CustomerName: form.Name, EmailID: form.Email, PhoneNo: form.Phone}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Customer %s updated successfully.", form.Name)})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Customer not found."})
}

func (b *Backend) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.customers {
		if c.CustomerID == id {
			b.customers = append(b.customers[:i], b.customers[i+1:]...)
			delete(b.usage, id)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Customer and all associated data deleted successfully."})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Customer not found."})
}

func (b *Backend) listUsage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	records := append([]models.UsageRecord{}, b.usage[id]...)
	// Newest first, as the real backend orders by date_time DESC
	sort.SliceStable(records, func(i, j int) bool { return records[i].DateTime > records[j].DateTime })
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "applications": records})
}

func (b *Backend) addUsage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var body models.NewUsage
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.ApplicationName == "" || body.DateTime == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing required fields."})
		return
	}
	b.mu.Lock()
	b.insertUsageLocked(id, body.ApplicationName, body.Qty, body.Watts, body.HoursDay, strings.Replace(body.DateTime, "T", " ", 1))
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Application usage added successfully."})
}

func (b *Backend) editUsage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var body models.UsageUpdate
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	for cust, records := range b.usage {
		for i, rec := range records {
			if rec.CustAppID != id {
				continue
			}
			rec.Qty = body.Qty
			rec.HoursDay = body.HoursDay
			rec.DateTime = strings.Replace(body.DateTime, "T", " ", 1)
			rec.DailyKWh, rec.DailyCost = dailyCost(rec.Watts, rec.HoursDay, rec.Qty)
			b.usage[cust][i] = rec
			writeJSON(w, http.StatusOK, map[string]any{"success": true,
				"message": fmt.Sprintf("Usage record for %s updated successfully.", rec.ApplicationName)})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Usage record not found."})
}

func (b *Backend) deleteUsage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for cust, records := range b.usage {
		for i, rec := range records {
			if rec.CustAppID == id {
				b.usage[cust] = append(records[:i], records[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Usage record deleted successfully."})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Usage record not found."})
}

func (b *Backend) costAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, _ := strconv.Atoi(q.Get("customer_id"))
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Customer ID is required."})
		return
	}
	period, date := q.Get("period"), q.Get("date")

	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []models.UsageRecord
	for _, rec := range b.usage[id] {
		if strings.HasPrefix(rec.DateTime, date) || (period != "day" && period != "month" && period != "year") {
			matched = append(matched, rec)
		}
	}

	resp := models.CostAnalysis{
		Envelope:        models.Envelope{Success: true},
		CurrentFilter:   models.Filter{Period: period, Date: date},
		AppBreakdown:    []models.AppCost{},
		AvailableYears:  []string{},
		AvailableMonths: []string{},
	}
	apps := map[string]float64{}
	days := map[string]float64{}
	months := map[string]float64{}
	for _, rec := range matched {
		resp.SummaryCost += rec.DailyCost
		apps[rec.ApplicationName] += rec.DailyCost
		days[rec.DateTime[:10]] += rec.DailyCost
		months[rec.DateTime[:7]] += rec.DailyCost
	}
	for name, cost := range apps {
		resp.AppBreakdown = append(resp.AppBreakdown, models.AppCost{ApplicationName: name, TotalCost: cost})
	}
	sort.Slice(resp.AppBreakdown, func(i, j int) bool { return resp.AppBreakdown[i].TotalCost > resp.AppBreakdown[j].TotalCost })

	switch period {
	case "year":
		for _, label := range sortedKeys(months) {
			resp.MonthlyChart = append(resp.MonthlyChart, models.MonthlyCost{MonthLabel: label, TotalCost: months[label]})
		}
	case "month":
		for _, label := range sortedKeys(days) {
			resp.DailyChart = append(resp.DailyChart, models.DailyCost{DayLabel: label, TotalCost: days[label]})
		}
	}

	years := map[string]float64{}
	for _, records := range b.usage {
		for _, rec := range records {
			years[rec.DateTime[:4]] = 0
		}
	}
	keys := sortedKeys(years)
	for i := len(keys) - 1; i >= 0; i-- {
		resp.AvailableYears = append(resp.AvailableYears, keys[i])
	}

	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) reportData(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()

	var resp models.ReportData
	resp.Success = true
	for _, c := range b.customers {
		if c.CustomerID == id {
			resp.CustomerInfo = c
		}
	}
	resp.UsageData = append([]models.UsageRecord{}, b.usage[id]...)
	for _, rec := range resp.UsageData {
		resp.Totals.TotalKWh += rec.DailyKWh
		resp.Totals.TotalCost += rec.DailyCost
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) insertUsageLocked(customerID int, app string, qty, watts int, hours float64, dateTime string) int {
	id := b.nextUsage
	b.nextUsage++
	kwh, cost := dailyCost(watts, hours, qty)
	b.usage[customerID] = append(b.usage[customerID], models.UsageRecord{
		CustAppID:       id,
		ApplicationName: app,
		Qty:             qty,
		Watts:           watts,
		HoursDay:        hours,
		DateTime:        dateTime,
		DailyKWh:        kwh,
		DailyCost:       cost,
	})
	return id
}

func dailyCost(watts int, hours float64, qty int) (float64, float64) {
	kwh := float64(watts) * hours * float64(qty) / 1000
	return kwh, kwh * CostPerKWh
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
