package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/pkg/models"
)

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"dashboard", Dashboard, false},
		{"#reports", Reports, false},
		{" #tips ", Tips, false},
		{"customers", Customers, false},
		{"#settings", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseView(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("YEAR")
	require.NoError(t, err)
	assert.Equal(t, Year, p)
	assert.Equal(t, "Month", p.TimeUnit())
	assert.Equal(t, "Day", Custom.TimeUnit())

	_, err = ParsePeriod("week")
	assert.Error(t, err)
}

func TestSessionSelection(t *testing.T) {
	var s Session
	_, ok := s.Selected()
	assert.False(t, ok)

	s.Select(7)
	id, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	s.Unselect()
	assert.Nil(t, s.SelectedCustomerID)
}

func TestReset(t *testing.T) {
	now := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	s := New(now)
	s.Session = Session{LoggedIn: true, Role: models.RoleAdmin, UserID: 1, UserName: "admin"}
	s.Session.Select(3)
	s.Customers = []models.Customer{{CustomerID: 3}}
	s.Location = Reports.Fragment()
	s.Analysis.Period = Year
	s.Analysis.Date = "2023"

	s.Reset(now)

	assert.False(t, s.Session.LoggedIn)
	assert.Nil(t, s.Session.SelectedCustomerID)
	assert.Empty(t, s.Customers)
	assert.Empty(t, s.Location)
	assert.Equal(t, Selection{Period: Month, Date: "2024-05"}, s.Analysis.Selection)
}
