package monitor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet_AddAndContains(t *testing.T) {
	s := NewSeenSet(time.Minute)
	now := time.UnixMilli(1_000_000)

	assert.False(t, s.Contains("a", now))
	assert.True(t, s.Add("a", now))
	assert.False(t, s.Add("a", now.Add(30*time.Second)))
	assert.True(t, s.Contains("a", now.Add(time.Minute)))
	assert.False(t, s.Contains("a", now.Add(time.Minute+time.Millisecond)))
}

func TestSeenSet_ReAddAfterExpiry(t *testing.T) {
	s := NewSeenSet(time.Minute)
	now := time.UnixMilli(0)

	assert.True(t, s.Add("a", now))
	later := now.Add(2 * time.Minute)
	assert.True(t, s.Add("a", later))

	// Evicting the first entry must not drop the re-added key.
	s.Evict(later)
	assert.True(t, s.Contains("a", later))
	assert.Equal(t, 1, s.Len())
}

func TestSeenSet_Evict(t *testing.T) {
	s := NewSeenSet(time.Minute)
	base := time.UnixMilli(0)

	s.Add("old", base)
	s.Add("new", base.Add(50*time.Second))
	assert.Equal(t, 2, s.Len())

	s.Evict(base.Add(70 * time.Second))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Contains("old", base.Add(70*time.Second)))
	assert.True(t, s.Contains("new", base.Add(70*time.Second)))
}

func TestSeenSet_ConcurrentAddHasOneWinner(t *testing.T) {
	s := NewSeenSet(time.Hour)
	now := time.Now()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("sig", now) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestSeenSet_Compacts(t *testing.T) {
	s := NewSeenSet(time.Millisecond)
	base := time.UnixMilli(0)
	for i := 0; i < 5000; i++ {
		s.Add(string(rune('a'+i%26))+time.Duration(i).String(), base)
	}
	s.Evict(base.Add(time.Second))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.head)
	assert.Empty(t, s.q)
}
