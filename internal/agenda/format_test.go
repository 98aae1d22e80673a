package agenda

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icalmasto/internal/model"
)

func TestDisplay(t *testing.T) {
	start := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	got, ok := Display(model.Event{Start: &start}, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "Sun, 15 Jun 2025 14:30", got)
}

func TestDisplayConvertsToLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	got, ok := Display(model.Event{Start: &start}, berlin)
	require.True(t, ok)
	assert.Equal(t, "Sun, 15 Jun 2025 16:30", got)
}

func TestDisplayNoStart(t *testing.T) {
	got, ok := Display(model.Event{UID: "x"}, time.UTC)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestComposeStatusEmpty(t *testing.T) {
	assert.Equal(t, "No upcoming events.", ComposeStatus(nil, time.UTC))
	assert.Equal(t, "No upcoming events.", ComposeStatus([]model.Event{}, time.UTC))
}

func TestComposeStatus(t *testing.T) {
	start1 := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	start2 := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)

	events := []model.Event{
		{
			Start:    &start1,
			Summary:  strPtr("Team Meeting"),
			Location: strPtr("Room 4"),
			URL:      strPtr("https://example.com/meet"),
		},
		{
			Start: &start2,
		},
	}

	got := ComposeStatus(events, time.UTC)

	assert.True(t, strings.HasPrefix(got, "Upcoming events:"))
	assert.Contains(t, got, "Sun, 15 Jun 2025 14:00 — Team Meeting @ Room 4")
	assert.Contains(t, got, "https://example.com/meet")
	assert.Contains(t, got, "(untitled)")
}

func TestComposeStatusSingularHeader(t *testing.T) {
	start := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	got := ComposeStatus([]model.Event{{Start: &start, Summary: strPtr("Only one")}}, time.UTC)
	assert.True(t, strings.HasPrefix(got, "Upcoming event:"))
}
