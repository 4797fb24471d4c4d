package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/pkg/models"
)

func TestStore(t *testing.T) {
	s := New()
	s.Load([]models.Application{
		{ApplicationName: "Ceiling Fan", Watts: 75},
		{ApplicationName: "Electric Kettle", Watts: 1500},
	})

	app, ok := s.Lookup("Ceiling Fan")
	require.True(t, ok)
	assert.Equal(t, 75, app.Watts)

	_, ok = s.Lookup("Toaster")
	assert.False(t, ok)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "Ceiling Fan", s.All()[0].ApplicationName)
	assert.Equal(t, "Electric Kettle", s.All()[1].ApplicationName)
}

func TestStore_LoadReplaces(t *testing.T) {
	s := New()
	s.Load([]models.Application{{ApplicationName: "Ceiling Fan", Watts: 75}})
	s.Load([]models.Application{{ApplicationName: "Microwave Oven", Watts: 1200}})

	_, ok := s.Lookup("Ceiling Fan")
	assert.False(t, ok)
	assert.Equal(t, []models.Application{{ApplicationName: "Microwave Oven", Watts: 1200}}, s.All())
}

func TestStore_Flush(t *testing.T) {
	s := New()
	s.Load([]models.Application{{ApplicationName: "Ceiling Fan", Watts: 75}})
	s.Flush()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.All())
}
