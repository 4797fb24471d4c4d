package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jgoulah/billbuddy/pkg/models"
)

// call performs a request and decodes the body into T when ok && success
func call[T any](ctx context.Context, c *Client, method, endpoint string, body any) (T, error) {
	var out T
	res := c.Request(ctx, method, endpoint, body)
	if err := res.Err(); err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, &Error{Status: res.Status, Message: "Unexpected response from server."}
	}
	return out, nil
}

// message performs a mutation and returns the server's confirmation text
func (c *Client) message(ctx context.Context, method, endpoint string, body any) (string, error) {
	env, err := call[models.Envelope](ctx, c, method, endpoint, body)
	return env.Message, err
}

// Login authenticates a user
func (c *Client) Login(ctx context.Context, username, password string) (models.User, error) {
	resp, err := call[struct {
		User models.User `json:"user"`
	}](ctx, c, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	return resp.User, err
}

// Logout notifies the backend. Best effort: the response is ignored.
func (c *Client) Logout(ctx context.Context) {
	c.Request(ctx, http.MethodPost, "/api/logout", nil)
}

// Applications fetches the full application catalog
func (c *Client) Applications(ctx context.Context) ([]models.Application, error) {
	resp, err := call[struct {
		Applications []models.Application `json:"applications"`
	}](ctx, c, http.MethodGet, "/api/applications", nil)
	return resp.Applications, err
}

// Customers fetches the customer directory (admin only)
func (c *Client) Customers(ctx context.Context) ([]models.Customer, error) {
	resp, err := call[struct {
		Customers []models.Customer `json:"customers"`
	}](ctx, c, http.MethodGet, "/api/admin/customers", nil)
	return resp.Customers, err
}

// AddCustomer creates a customer
func (c *Client) AddCustomer(ctx context.Context, form models.CustomerForm) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/admin/customer", form)
}

// EditCustomer updates a customer
func (c *Client) EditCustomer(ctx context.Context, customerID int, form models.CustomerForm) (string, error) {
	return c.message(ctx, http.MethodPut, fmt.Sprintf("/api/admin/customer/%d", customerID), form)
}

// DeleteCustomer removes a customer and all of their usage records
func (c *Client) DeleteCustomer(ctx context.Context, customerID int) (string, error) {
	return c.message(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/customer/%d", customerID), nil)
}

// UsageRecords lists a customer's usage records in backend order
func (c *Client) UsageRecords(ctx context.Context, customerID int) ([]models.UsageRecord, error) {
	resp, err := call[struct {
		Applications []models.UsageRecord `json:"applications"`
	}](ctx, c, http.MethodGet, fmt.Sprintf("/api/customer/%d/applications", customerID), nil)
	return resp.Applications, err
}

// AddUsage records a usage event for a customer
func (c *Client) AddUsage(ctx context.Context, customerID int, usage models.NewUsage) (string, error) {
	return c.message(ctx, http.MethodPost, fmt.Sprintf("/api/customer/%d/application", customerID), usage)
}

// EditUsage updates a usage record
func (c *Client) EditUsage(ctx context.Context, custAppID int, update models.UsageUpdate) (string, error) {
	return c.message(ctx, http.MethodPut, fmt.Sprintf("/api/customer/application/%d", custAppID), update)
}

// DeleteUsage removes a usage record
func (c *Client) DeleteUsage(ctx context.Context, custAppID int) (string, error) {
	return c.message(ctx, http.MethodDelete, fmt.Sprintf("/api/customer/application/%d", custAppID), nil)
}

// CostAnalysis fetches the aggregate for one period anchored at date
func (c *Client) CostAnalysis(ctx context.Context, customerID int, period, date string) (*models.CostAnalysis, error) {
	params := url.Values{}
	params.Set("customer_id", fmt.Sprint(customerID))
	params.Set("period", period)
	params.Set("date", date)

	resp, err := call[models.CostAnalysis](ctx, c, http.MethodGet, "/api/cost_analysis?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportData fetches everything needed to export a customer report
func (c *Client) ReportData(ctx context.Context, customerID int) (*models.ReportData, error) {
	resp, err := call[models.ReportData](ctx, c, http.MethodGet, fmt.Sprintf("/api/customer/%d/report_data", customerID), nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
