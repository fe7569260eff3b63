package protect

import (
	"testing"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/stretchr/testify/assert"
)

var testIdentity = models.SubscriberIdentity{
	ID:     "sub-100",
	Name:   "Greta Vogel",
	Number: "A-48213",
}

func TestWatermarkPlanner_DeterministicForSeed(t *testing.T) {
	planner := NewWatermarkPlanner(4)
	grantedAt := time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC)

	first := planner.Plan(testIdentity, "session-abc", 12, 42, grantedAt)
	second := planner.Plan(testIdentity, "session-abc", 12, 42, grantedAt)

	assert.Equal(t, first, second)
}

func TestWatermarkPlanner_DifferentSeedsDiffer(t *testing.T) {
	planner := NewWatermarkPlanner(4)
	grantedAt := time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC)

	first := planner.Plan(testIdentity, "session-abc", 3, 42, grantedAt)
	second := planner.Plan(testIdentity, "session-abc", 3, 43, grantedAt)

	assert.NotEqual(t, first.Pages[0].Overlays, second.Pages[0].Overlays)
}

func TestWatermarkPlanner_CoversEveryPage(t *testing.T) {
	planner := NewWatermarkPlanner(4)

	plan := planner.Plan(testIdentity, "session-abc", 24, 7, time.Now())

	assert.Len(t, plan.Pages, 24)
	for i, page := range plan.Pages {
		assert.Equal(t, i+1, page.Page)
		assert.Len(t, page.Overlays, 4)
	}
}

func TestWatermarkPlanner_MinimumThreeOverlays(t *testing.T) {
	planner := NewWatermarkPlanner(1)

	plan := planner.Plan(testIdentity, "session-abc", 1, 7, time.Now())

	assert.GreaterOrEqual(t, len(plan.Pages[0].Overlays), 3)
}

func TestWatermarkPlanner_OverlayTextCarriesIdentity(t *testing.T) {
	planner := NewWatermarkPlanner(3)
	grantedAt := time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC)

	plan := planner.Plan(testIdentity, "session-abcdef12-3456", 2, 7, grantedAt)

	text := plan.Pages[1].Overlays[0].Text
	assert.Contains(t, text, "Greta Vogel")
	assert.Contains(t, text, "A-48213")
	assert.Contains(t, text, "2026-08-29 08:30:00")
	assert.Contains(t, text, "session-")
	assert.Contains(t, text, "p.2")
	// Full session id never appears in the visible text
	assert.NotContains(t, text, "session-abcdef12-3456")
}

func TestWatermarkPlanner_JitterWithinBounds(t *testing.T) {
	planner := NewWatermarkPlanner(10)

	plan := planner.Plan(testIdentity, "session-abc", 5, 99, time.Now())

	for _, page := range plan.Pages {
		for _, o := range page.Overlays {
			assert.GreaterOrEqual(t, o.X, 0.05)
			assert.LessOrEqual(t, o.X, 0.80)
			assert.GreaterOrEqual(t, o.Y, 0.05)
			assert.LessOrEqual(t, o.Y, 0.90)
			assert.GreaterOrEqual(t, o.Rotation, -40.0)
			assert.LessOrEqual(t, o.Rotation, 40.0)
			assert.GreaterOrEqual(t, o.Opacity, 0.08)
			assert.LessOrEqual(t, o.Opacity, 0.18)
			assert.GreaterOrEqual(t, o.Scale, 0.8)
			assert.LessOrEqual(t, o.Scale, 1.4)
		}
	}
}

func TestWatermarkPlanner_ZeroPageCountStillPlansOnePage(t *testing.T) {
	planner := NewWatermarkPlanner(3)

	plan := planner.Plan(testIdentity, "session-abc", 0, 7, time.Now())

	assert.Len(t, plan.Pages, 1)
}
