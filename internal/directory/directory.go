// Package directory manages the customer roster for administrators
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/internal/validator"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// ErrNotFound is returned for a customer that is not in the cached directory
var ErrNotFound = errors.New("customer not found locally")

// Filter returns the customers whose name or email contains term, ignoring case
func Filter(list []models.Customer, term string) []models.Customer {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	return lo.Filter(list, func(c models.Customer, _ int) bool {
		return strings.Contains(strings.ToLower(c.CustomerName), term) ||
			strings.Contains(strings.ToLower(c.EmailID), term)
	})
}

// ViewingLabel is the "Viewing: ..." caption for an administrator's selection
func ViewingLabel(c models.Customer, found bool) string {
	if !found {
		return "Viewing: Customer not found"
	}
	return fmt.Sprintf("Viewing: %s (%s)", c.CustomerName, c.EmailID)
}

// Deps are the collaborators of a Manager
type Deps struct {
	Client   *api.Client
	State    *state.State
	View     render.Presenter
	Notifier notify.Notifier
	Confirm  render.Confirmer
	Log      *zap.SugaredLogger
}

// Manager lists, edits and selects customers. Every mutation is followed by a
// full re-fetch; the cached list is never patched locally.
type Manager struct {
	client   *api.Client
	st       *state.State
	view     render.Presenter
	notes    notify.Notifier
	confirm  render.Confirmer
	log      *zap.SugaredLogger
	onSelect func(ctx context.Context, customerID int)
}

// New creates a directory manager
func New(d Deps) *Manager {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.View == nil {
		d.View = render.Nop{}
	}
	return &Manager{
		client:  d.Client,
		st:      d.State,
		view:    d.View,
		notes:   d.Notifier,
		confirm: d.Confirm,
		log:     d.Log,
	}
}

// OnSelect registers what happens after a customer is selected
func (m *Manager) OnSelect(fn func(ctx context.Context, customerID int)) {
	m.onSelect = fn
}

// List replaces the cached directory with the backend's and reconciles the
// selection: a selection that still exists is kept, otherwise the first
// customer is selected, otherwise nothing is.
func (m *Manager) List(ctx context.Context) error {
	customers, err := m.client.Customers(ctx)
	if err != nil {
		m.fail(err, "Failed to fetch customers.")
		return err
	}

	m.st.Customers = customers
	m.render()

	if id, ok := m.st.Session.Selected(); ok {
		if _, found := m.st.Customer(id); found {
			m.Select(ctx, id)
			return nil
		}
	}
	if len(customers) > 0 {
		m.Select(ctx, customers[0].CustomerID)
		return nil
	}
	m.st.Session.Unselect()
	m.view.ShowViewing("Viewing: N/A")
	return nil
}

// Search filters the cached list without contacting the backend
func (m *Manager) Search(term string) []models.Customer {
	m.st.SearchTerm = term
	filtered := Filter(m.st.Customers, term)
	m.view.ShowCustomers(filtered, m.st.Session.SelectedCustomerID)
	return filtered
}

// Lookup finds a customer in the cached list
func (m *Manager) Lookup(id int) (models.Customer, bool) {
	return m.st.Customer(id)
}

// Select makes id the current customer and cascades to every per-customer view
func (m *Manager) Select(ctx context.Context, id int) {
	m.st.Session.Select(id)
	c, found := m.st.Customer(id)
	m.view.ShowViewing(ViewingLabel(c, found))
	m.render()

	m.log.Debugw("customer selected", "customer_id", id)
	if m.onSelect != nil {
		m.onSelect(ctx, id)
	}
}

// Add creates a customer
func (m *Manager) Add(ctx context.Context, form models.CustomerForm) error {
	if err := validator.ValidateRequest(form); err != nil {
		m.notify(notify.Error, err.Error())
		return err
	}

	msg, err := m.client.AddCustomer(ctx, form)
	return m.afterMutation(ctx, "customer added", msg, err, "Failed to add customer.")
}

// Edit updates a customer that is present in the cached list
func (m *Manager) Edit(ctx context.Context, id int, form models.CustomerForm) error {
	if _, ok := m.st.Customer(id); !ok {
		m.notify(notify.Error, "Customer data not found locally.")
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := validator.ValidateRequest(form); err != nil {
		m.notify(notify.Error, err.Error())
		return err
	}

	msg, err := m.client.EditCustomer(ctx, id, form)
	return m.afterMutation(ctx, "customer updated", msg, err, "Failed to edit customer.")
}

// Delete removes a customer and all of their usage after confirmation
func (m *Manager) Delete(ctx context.Context, id int) error {
	c, ok := m.st.Customer(id)
	if !ok {
		m.notify(notify.Error, "Customer data not found locally.")
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	prompt := fmt.Sprintf("WARNING: Are you sure you want to delete customer %s and ALL their usage data? This cannot be undone.", c.CustomerName)
	if m.confirm == nil || !m.confirm.Confirm(prompt) {
		return render.ErrDeclined
	}

	msg, err := m.client.DeleteCustomer(ctx, id)
	if err == nil {
		if selected, ok := m.st.Session.Selected(); ok && selected == id {
			m.st.Session.Unselect()
			m.view.ShowViewing("Viewing: N/A")
		}
	}
	return m.afterMutation(ctx, "customer deleted", msg, err, "Failed to delete customer.")
}

// afterMutation reports the outcome and re-fetches the list whenever the
// backend answered. After a transport failure the list is not re-fetched: the
// adapter has already shown its one network banner and a second request would
// only fail and show another.
func (m *Manager) afterMutation(ctx context.Context, event, msg string, err error, fallback string) error {
	if err != nil {
		m.fail(err, fallback)
		if !api.IsTransport(err) {
			_ = m.List(ctx)
		}
		return err
	}

	m.log.Infow(event, "message", msg)
	m.notify(notify.Success, msg)
	return m.List(ctx)
}

func (m *Manager) render() {
	m.view.ShowCustomers(Filter(m.st.Customers, m.st.SearchTerm), m.st.Session.SelectedCustomerID)
}

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
