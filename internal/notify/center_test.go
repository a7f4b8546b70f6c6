package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCenter_PushAndRecent(t *testing.T) {
	c := NewCenter(0, zap.NewNop())

	first := c.Push(LevelSuccess, "3 invoices approved")
	second := c.Push(LevelError, "Bulk action failed")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	recent := c.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "3 invoices approved", recent[0].Message)
	assert.Equal(t, LevelError, recent[1].Level)
}

func TestCenter_ExpiredToastsArePruned(t *testing.T) {
	c := NewCenter(time.Millisecond, zap.NewNop())
	c.Push(LevelInfo, "old")
	time.Sleep(5 * time.Millisecond)
	assert.Empty(t, c.Recent())
}

func TestCenter_SubscriberReceivesToasts(t *testing.T) {
	c := NewCenter(0, zap.NewNop())
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Push(LevelWarning, "Duplicate invoice detected")

	select {
	case toast := <-ch:
		assert.Equal(t, LevelWarning, toast.Level)
		assert.Equal(t, "Duplicate invoice detected", toast.Message)
	case <-time.After(time.Second):
		t.Fatal("no toast delivered")
	}
}

func TestCenter_CanceledSubscriberStopsReceiving(t *testing.T) {
	c := NewCenter(0, zap.NewNop())
	ch, cancel := c.Subscribe()
	cancel()

	c.Push(LevelInfo, "after cancel")
	select {
	case <-ch:
		t.Fatal("canceled subscriber still receives")
	default:
	}
}

func TestCenter_SlowSubscriberDoesNotBlockPush(t *testing.T) {
	c := NewCenter(0, zap.NewNop())
	_, cancel := c.Subscribe()
	defer cancel()

	// Fill well past the channel buffer; Push must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Push(LevelInfo, "burst")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked on a slow subscriber")
	}
}
