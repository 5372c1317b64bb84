package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestManual_FiresInDueOrder(t *testing.T) {
	m := NewManual(epoch)
	var fired []string

	m.ScheduleOnce(500*time.Millisecond, func() { fired = append(fired, "b") })
	m.ScheduleOnce(100*time.Millisecond, func() { fired = append(fired, "a") })
	m.ScheduleOnce(5*time.Second, func() { fired = append(fired, "c") })

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(time.Second), m.Now())
	assert.Equal(t, 1, m.Pending())

	m.Advance(4 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Zero(t, m.Pending())
}

func TestManual_CancelPreventsFire(t *testing.T) {
	m := NewManual(epoch)
	fired := false

	cancel := m.ScheduleOnce(time.Second, func() { fired = true })
	cancel()
	cancel()

	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManual_CancelAfterFireIsHarmless(t *testing.T) {
	m := NewManual(epoch)
	count := 0

	cancel := m.ScheduleOnce(time.Second, func() { count++ })
	m.Advance(time.Second)
	require.Equal(t, 1, count)

	cancel()
	m.Advance(time.Second)
	assert.Equal(t, 1, count)
}

func TestManual_NestedScheduleWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	var at []time.Duration

	m.ScheduleOnce(500*time.Millisecond, func() {
		at = append(at, m.Now().Sub(epoch))
		m.ScheduleOnce(time.Second, func() {
			at = append(at, m.Now().Sub(epoch))
		})
	})

	m.Advance(2 * time.Second)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond}, at)
}

func TestReal_CancelStopsTimer(t *testing.T) {
	fired := make(chan struct{}, 1)
	cancel := Real{}.ScheduleOnce(50*time.Millisecond, func() { fired <- struct{}{} })
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(150 * time.Millisecond):
	}
}
