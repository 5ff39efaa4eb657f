package collision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Collisions())
	require.Empty(t, tracker.Bucket(0x1234))
}

func TestTracker_Track(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Track("urn:a", 0x1111, 0))
	require.False(t, tracker.Track("urn:b", 0x2222, 1))
	require.Equal(t, 0, tracker.Collisions())

	require.Equal(t, []int{0}, tracker.Bucket(0x1111))
	require.Equal(t, []int{1}, tracker.Bucket(0x2222))
}

func TestTracker_SameStringTwice(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Track("value", 0xabcdef, 0))
	require.False(t, tracker.Track("value", 0xabcdef, 5))

	require.Equal(t, 0, tracker.Collisions())
	require.Equal(t, []int{0, 5}, tracker.Bucket(0xabcdef))
}

func TestTracker_Collision(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Track("cpu", 0x1234567890abcdef, 0))
	require.True(t, tracker.Track("mem", 0x1234567890abcdef, 1))
	require.True(t, tracker.Track("disk", 0x1234567890abcdef, 2))

	require.Equal(t, 2, tracker.Collisions())
	require.Equal(t, []int{0, 1, 2}, tracker.Bucket(0x1234567890abcdef))
}
