package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVisitorRegistry(clock *MockClocker) (*VisitorRegistry, *int) {
	built := 0
	config := &SessionConfig{IdleTTL: 30 * time.Minute, SweepInterval: time.Minute}
	vr := NewVisitorRegistry(zap.NewNop(), clock, config, func(id string) *Visitor {
		built++
		return newTestVisitor(id, &MockAuthEndpoints{}, nil)
	})
	return vr, &built
}

// TestVisitorRegistry_GetOrCreate ensures each visitor id gets exactly one container.
func TestVisitorRegistry_GetOrCreate(t *testing.T) {
	vr, built := newTestVisitorRegistry(NewMockClocker())

	first := vr.GetOrCreate(testVisitorID)
	second := vr.GetOrCreate(testVisitorID)
	assert.Same(t, first, second)
	assert.Equal(t, 1, *built)
	assert.Equal(t, 1, vr.Len())

	select {
	case <-first.Session.Resolved():
	case <-time.After(time.Second):
		t.Fatal("new visitor session should resolve in background")
	}
	assert.Equal(t, SessionAnonymous, first.Session.State())

	v, ok := vr.Get(testVisitorID)
	require.True(t, ok)
	assert.Same(t, first, v)
	_, ok = vr.Get("v:unknown")
	assert.False(t, ok)
}

// TestVisitorRegistry_Sweep ensures only idle visitors are evicted.
func TestVisitorRegistry_Sweep(t *testing.T) {
	clock := NewMockClocker()
	vr, _ := newTestVisitorRegistry(clock)
	vr.GetOrCreate("v:idle")

	clock.MockNow = clock.MockNow.Add(20 * time.Minute)
	vr.GetOrCreate("v:active")
	assert.Equal(t, 0, vr.Sweep())

	clock.MockNow = clock.MockNow.Add(15 * time.Minute)
	assert.Equal(t, 1, vr.Sweep())
	_, ok := vr.Get("v:idle")
	assert.False(t, ok)
	_, ok = vr.Get("v:active")
	assert.True(t, ok)
}

// TestVisitorRegistry_SweepSkipsBusy ensures a visitor is kept while one of its requests runs.
func TestVisitorRegistry_SweepSkipsBusy(t *testing.T) {
	clock := NewMockClocker()
	vr, built := newTestVisitorRegistry(clock)
	v, release := vr.Acquire("v:busy")

	clock.MockNow = clock.MockNow.Add(time.Hour)
	assert.Equal(t, 0, vr.Sweep())
	v.Notify(FlashSuccess, "Review submitted!")

	release()
	release()
	assert.Equal(t, 0, vr.Sweep(), "release counts as activity")
	again, releaseAgain := vr.Acquire("v:busy")
	assert.Same(t, v, again)
	assert.Equal(t, 1, *built)
	assert.Equal(t, []Flash{{FlashSuccess, "Review submitted!"}}, again.PopFlashes())

	releaseAgain()
	clock.MockNow = clock.MockNow.Add(time.Hour)
	assert.Equal(t, 1, vr.Sweep())
}

// TestVisitor_Flashes ensures notifications are shown once in order.
func TestVisitor_Flashes(t *testing.T) {
	v := newTestVisitor(testVisitorID, &MockAuthEndpoints{}, nil)
	v.Notify(FlashSuccess, "Logged in successfully")
	v.Notify(FlashError, "Search failed")
	assert.Equal(t, []Flash{{FlashSuccess, "Logged in successfully"}, {FlashError, "Search failed"}}, v.PopFlashes())
	assert.Empty(t, v.PopFlashes())
}
