package window

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shadow/internal/ratelimit/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type InMemoryWindowStoreSuite struct {
	suite.Suite
	store *InMemoryWindowStore
}

func TestInMemoryWindowStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryWindowStoreSuite))
}

func (s *InMemoryWindowStoreSuite) SetupTest() {
	s.store = NewInMemoryWindowStore()
}

func (s *InMemoryWindowStoreSuite) TestUpdate() {
	s.Run("creates window lazily", func() {
		var created models.RateWindow
		s.store.Update("ip:lazy", func(w *models.RateWindow) {
			created = *w
			w.Restart(t0, time.Minute)
			w.Count++
		})
		s.True(created.ResetAt.IsZero())

		got, ok := s.store.Get("ip:lazy")
		s.Require().True(ok)
		s.Equal(1, got.Count)
		s.Equal(t0.Add(time.Minute), got.ResetAt)
	})

	s.Run("mutations persist across calls", func() {
		for range 3 {
			s.store.Update("ip:persist", func(w *models.RateWindow) {
				if w.ResetAt.IsZero() {
					w.Restart(t0, time.Minute)
				}
				w.Count++
			})
		}
		got, ok := s.store.Get("ip:persist")
		s.Require().True(ok)
		s.Equal(3, got.Count)
	})
}

func (s *InMemoryWindowStoreSuite) TestGetMissing() {
	_, ok := s.store.Get("ip:missing")
	s.False(ok)
}

func (s *InMemoryWindowStoreSuite) TestDelete() {
	s.store.Update("ip:gone", func(w *models.RateWindow) { w.Restart(t0, time.Minute) })
	s.Equal(1, s.store.Len())

	s.store.Delete("ip:gone")
	s.store.Delete("ip:gone")
	s.Equal(0, s.store.Len())
}

func (s *InMemoryWindowStoreSuite) TestSweep() {
	for i := range 10 {
		key := fmt.Sprintf("ip:expired:%d", i)
		s.store.Update(key, func(w *models.RateWindow) { w.Restart(t0, time.Second) })
	}
	for i := range 5 {
		key := fmt.Sprintf("ip:live:%d", i)
		s.store.Update(key, func(w *models.RateWindow) { w.Restart(t0, time.Hour) })
	}
	s.Equal(15, s.store.Len())

	removed := s.store.Sweep(t0.Add(time.Minute))
	s.Equal(10, removed)
	s.Equal(5, s.store.Len())

	for i := range 5 {
		_, ok := s.store.Get(fmt.Sprintf("ip:live:%d", i))
		s.True(ok, "live window %d must survive the sweep", i)
	}
}

func (s *InMemoryWindowStoreSuite) TestConcurrentSameKey() {
	const workers = 200
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			s.store.Update("ip:contended", func(w *models.RateWindow) {
				if w.ResetAt.IsZero() {
					w.Restart(t0, time.Minute)
				}
				w.Count++
			})
		})
	}
	wg.Wait()

	got, ok := s.store.Get("ip:contended")
	s.Require().True(ok)
	s.Equal(workers, got.Count)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryWindowStoreSuite) TestSweepDuringUpdates() {
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			key := fmt.Sprintf("ip:busy:%d", i)
			for range 20 {
				s.store.Update(key, func(w *models.RateWindow) {
					if w.ResetAt.IsZero() {
						w.Restart(t0, time.Hour)
					}
					w.Count++
				})
			}
		})
	}
	wg.Go(func() {
		for range 20 {
			s.store.Sweep(t0.Add(time.Minute))
		}
	})
	wg.Wait()

	s.Equal(50, s.store.Len())
	for i := range 50 {
		got, ok := s.store.Get(fmt.Sprintf("ip:busy:%d", i))
		s.Require().True(ok)
		s.Equal(20, got.Count)
	}
}
