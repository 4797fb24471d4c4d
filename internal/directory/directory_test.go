package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/render"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/internal/testutil"
	"github.com/jgoulah/billbuddy/pkg/models"
)

type recordingView struct {
	render.Nop
	tables  [][]models.Customer
	viewing []string
}

func (v *recordingView) ShowCustomers(list []models.Customer, _ *int) {
	v.tables = append(v.tables, list)
}

func (v *recordingView) ShowViewing(label string) {
	v.viewing = append(v.viewing, label)
}

type fixture struct {
	backend  *testutil.Backend
	notes    *testutil.Notifier
	confirm  *testutil.Confirmer
	view     *recordingView
	st       *state.State
	dir      *Manager
	selected []int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		backend: testutil.NewBackend(t),
		notes:   &testutil.Notifier{},
		confirm: &testutil.Confirmer{Reply: true},
		view:    &recordingView{},
		st:      state.New(time.Now()),
	}
	f.st.Session = state.Session{LoggedIn: true, Role: models.RoleAdmin, UserID: 1, UserName: "admin"}
	f.dir = New(Deps{
		Client:   api.New(f.backend.URL(), api.WithNotifier(f.notes)),
		State:    f.st,
		View:     f.view,
		Notifier: f.notes,
		Confirm:  f.confirm,
	})
	f.dir.OnSelect(func(_ context.Context, id int) { f.selected = append(f.selected, id) })
	return f
}

func TestFilter(t *testing.T) {
	list := []models.Customer{
		{CustomerID: 1, CustomerName: "John Doe", EmailID: "j@x.com"},
		{CustomerID: 2, CustomerName: "Amy", EmailID: "amy@x.com"},
	}

	tests := []struct {
		term string
		want []int
	}{
		{"john", []int{1}},
		{"JOHN", []int{1}},
		{"amy@", []int{2}},
		{"x.com", []int{1, 2}},
		{"", []int{1, 2}},
		{"zed", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			var got []int
			for _, c := range Filter(list, tt.term) {
				got = append(got, c.CustomerID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_DoesNotContactBackend(t *testing.T) {
	f := newFixture(t)
	f.st.Customers = []models.Customer{
		{CustomerID: 1, CustomerName: "John Doe", EmailID: "j@x.com"},
		{CustomerID: 2, CustomerName: "Amy", EmailID: "amy@x.com"},
	}

	got := f.dir.Search("john")

	require.Len(t, got, 1)
	assert.Equal(t, "John Doe", got[0].CustomerName)
	assert.Empty(t, f.backend.Calls())
	assert.Equal(t, "john", f.st.SearchTerm)
	assert.Equal(t, got, f.view.tables[len(f.view.tables)-1])
}

func TestList_SelectsFirstCustomer(t *testing.T) {
	f := newFixture(t)
	first := f.backend.AddCustomer("John Doe", "j@x.com", "")
	f.backend.AddCustomer("Amy", "amy@x.com", "")

	require.NoError(t, f.dir.List(context.Background()))

	id, ok := f.st.Session.Selected()
	require.True(t, ok)
	assert.Equal(t, first, id)
	assert.Equal(t, []int{first}, f.selected)
	assert.Equal(t, "Viewing: John Doe (j@x.com)", f.view.viewing[len(f.view.viewing)-1])
	assert.Len(t, f.st.Customers, 2)
}

func TestList_KeepsExistingSelection(t *testing.T) {
	f := newFixture(t)
	f.backend.AddCustomer("John Doe", "j@x.com", "")
	amy := f.backend.AddCustomer("Amy", "amy@x.com", "")
	f.st.Session.Select(amy)

	require.NoError(t, f.dir.List(context.Background()))

	id, _ := f.st.Session.Selected()
	assert.Equal(t, amy, id)
	assert.Equal(t, []int{amy}, f.selected)
}

func TestList_EmptyDirectoryClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.st.Session.Select(9)

	require.NoError(t, f.dir.List(context.Background()))

	assert.Nil(t, f.st.Session.SelectedCustomerID)
	assert.Empty(t, f.selected)
	assert.Equal(t, []string{"Viewing: N/A"}, f.view.viewing)
}

func TestList_Failure(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("GET /api/admin/customers", http.StatusForbidden, "")

	err := f.dir.List(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"Failed to fetch customers."}, f.notes.Messages())
}

func TestAdd_RefetchesList(t *testing.T) {
	f := newFixture(t)

	err := f.dir.Add(context.Background(), models.CustomerForm{Name: "Amy", Email: "amy@x.com", Phone: "555"})
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /api/admin/customer", "GET /api/admin/customers"}, f.backend.Requests())
	assert.Equal(t, []string{"Customer added successfully."}, f.notes.Messages())
	require.Len(t, f.st.Customers, 1)
	assert.Equal(t, "Amy", f.st.Customers[0].CustomerName)
}

func TestAdd_InvalidFormMakesNoRequest(t *testing.T) {
	f := newFixture(t)

	err := f.dir.Add(context.Background(), models.CustomerForm{Name: "", Email: "amy@x.com"})

	require.Error(t, err)
	assert.Empty(t, f.backend.Calls())
	assert.Len(t, f.notes.Notices(), 1)
}

func TestAdd_ServerFailureStillRefetches(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("POST /api/admin/customer", http.StatusConflict, "Email already exists.")

	err := f.dir.Add(context.Background(), models.CustomerForm{Name: "Amy", Email: "amy@x.com"})

	require.Error(t, err)
	assert.Equal(t, []string{"POST /api/admin/customer", "GET /api/admin/customers"}, f.backend.Requests())
	assert.Equal(t, []string{"Email already exists."}, f.notes.Messages())
}

func TestAdd_TransportFailureSkipsRefetch(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	f.dir.client = api.New(srv.URL, api.WithNotifier(f.notes))

	err := f.dir.Add(context.Background(), models.CustomerForm{Name: "Amy", Email: "amy@x.com"})

	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
	assert.Len(t, f.notes.Notices(), 1)
	assert.Empty(t, f.view.tables)
}

func TestEdit(t *testing.T) {
	t.Run("unknown locally", func(t *testing.T) {
		f := newFixture(t)

		err := f.dir.Edit(context.Background(), 5, models.CustomerForm{Name: "X", Email: "x@x.com"})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []string{"Customer data not found locally."}, f.notes.Messages())
		assert.Empty(t, f.backend.Calls())
	})

	t.Run("updates and refetches", func(t *testing.T) {
		f := newFixture(t)
		id := f.backend.AddCustomer("Amy", "amy@x.com", "")
		require.NoError(t, f.dir.List(context.Background()))
		f.backend.ResetCalls()

		err := f.dir.Edit(context.Background(), id, models.CustomerForm{Name: "Amy Roe", Email: "amy@x.com"})
		require.NoError(t, err)

		assert.Equal(t, []string{"PUT /api/admin/customer/1", "GET /api/admin/customers"}, f.backend.Requests())
		assert.Equal(t, "Amy Roe", f.st.Customers[0].CustomerName)
	})
}

func TestDelete(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddCustomer("Amy", "amy@x.com", "")
		require.NoError(t, f.dir.List(context.Background()))
		f.backend.ResetCalls()
		f.confirm.Reply = false

		err := f.dir.Delete(context.Background(), 1)

		assert.ErrorIs(t, err, render.ErrDeclined)
		assert.Empty(t, f.backend.Calls())
		assert.Equal(t, []string{
			"WARNING: Are you sure you want to delete customer Amy and ALL their usage data? This cannot be undone.",
		}, f.confirm.Prompts)
	})

	t.Run("selected customer moves selection to the first remaining", func(t *testing.T) {
		f := newFixture(t)
		john := f.backend.AddCustomer("John Doe", "j@x.com", "")
		amy := f.backend.AddCustomer("Amy", "amy@x.com", "")
		f.st.Session.Select(john)
		require.NoError(t, f.dir.List(context.Background()))
		f.backend.ResetCalls()

		require.NoError(t, f.dir.Delete(context.Background(), john))

		assert.Equal(t, []string{"DELETE /api/admin/customer/1", "GET /api/admin/customers"}, f.backend.Requests())
		id, ok := f.st.Session.Selected()
		require.True(t, ok)
		assert.Equal(t, amy, id)
		assert.Contains(t, f.view.viewing, "Viewing: N/A")
	})
}

func TestViewingLabel(t *testing.T) {
	assert.Equal(t, "Viewing: Customer not found", ViewingLabel(models.Customer{}, false))
	assert.Equal(t, "Viewing: Amy (amy@x.com)", ViewingLabel(models.Customer{CustomerName: "Amy", EmailID: "amy@x.com"}, true))
}
