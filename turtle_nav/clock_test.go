package turtle_nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockTicker(t *testing.T) {
	c := NewManualClock(t0)
	tk := c.NewTicker(100 * time.Millisecond)
	assert.Equal(t, 1, c.Tickers())

	c.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticked before the period elapsed")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case now := <-tk.C():
		assert.Equal(t, t0.Add(100*time.Millisecond), now)
	default:
		t.Fatal("expected a tick")
	}
	assert.Equal(t, t0.Add(100*time.Millisecond), c.Now())

	tk.Stop()
	assert.Equal(t, 0, c.Tickers())
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClockTicker(t *testing.T) {
	var c Clock = RealClock{}
	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case now := <-tk.C():
		assert.False(t, now.IsZero())
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}
