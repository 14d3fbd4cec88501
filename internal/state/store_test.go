package state

import (
	"sync"
	"testing"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EmptyUntilFirstSet(t *testing.T) {
	s := NewStore()

	r, ok := s.Get()
	assert.False(t, ok)
	assert.Equal(t, domain.Reading{}, r)
}

func TestStore_ReturnsLatest(t *testing.T) {
	s := NewStore()

	for i := 1; i <= 50; i++ {
		want := domain.Reading{Value: 60 + i, SensorContactDetected: "true", Timestamp: int64(1000 + i)}
		s.Set(want)

		got, ok := s.Get()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestStore_CopyIsolation(t *testing.T) {
	s := NewStore()
	s.Set(domain.Reading{Value: 72, SensorContactDetected: "true", Timestamp: 1000})

	r, _ := s.Get()
	r.Value = 999

	again, _ := s.Get()
	assert.Equal(t, 72, again.Value)
}

func TestStore_ConcurrentReadersSingleWriter(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last int64
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, ok := s.Get()
				if !ok {
					continue
				}
				// Single writer with increasing timestamps: a reader never goes back.
				assert.GreaterOrEqual(t, r.Timestamp, last)
				last = r.Timestamp
			}
		}()
	}

	for i := range 1000 {
		s.Set(domain.Reading{Value: i, Timestamp: int64(i)})
	}
	close(stop)
	wg.Wait()

	r, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, 999, r.Value)
}
