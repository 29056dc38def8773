package collision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()
	require.NotNil(t, tracker)
}

func TestTracker_Check_FirstSightingIsNotACollision(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Check(0x1234567890abcdef, "SUBJID"))
}

func TestTracker_Check_SameHashSameRawIsNotACollision(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Check(0x1234567890abcdef, "SUBJID"))
	require.False(t, tracker.Check(0x1234567890abcdef, "SUBJID"))
}

func TestTracker_Check_SameHashDifferentRawIsACollision(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Check(0x1234567890abcdef, "SUBJID"))
	require.True(t, tracker.Check(0x1234567890abcdef, "VISITID"))
}

func TestTracker_Check_DifferentHashesNeverCollide(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Check(0x0001, "metric1"))
	require.False(t, tracker.Check(0x0002, "metric2"))
	require.False(t, tracker.Check(0x0003, "metric3"))
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Check(0x1234567890abcdef, "SUBJID"))
	tracker.Reset()

	// After Reset the hash is forgotten, so a different raw value under
	// the same hash is no longer flagged as a collision.
	require.False(t, tracker.Check(0x1234567890abcdef, "VISITID"))
}
