package epoch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetireFreedAfterGuardsDepart(t *testing.T) {
	var freed atomic.Int32
	m := NewManager(0, 0, func(*Page) { freed.Add(1) })
	defer m.Stop()

	g := m.Enter()
	m.Retire(&Page{})
	assert.EqualValues(t, 0, freed.Load(), "page must not be freed while a guard from its epoch is live")

	g.Leave()
	assert.EqualValues(t, 1, freed.Load(), "page must be freed once the only blocking guard departs")
}

func TestRetireBlockedByOverlappingGuard(t *testing.T) {
	var freed atomic.Int32
	m := NewManager(0, 0, func(*Page) { freed.Add(1) })
	defer m.Stop()

	g1 := m.Enter()
	g2 := m.Enter()
	m.Retire(&Page{})

	g1.Leave()
	assert.EqualValues(t, 0, freed.Load(), "page must stay pinned while g2 is still active")

	g2.Leave()
	assert.EqualValues(t, 1, freed.Load())
}

func TestConcurrentEnterLeaveNeverFreesLivePage(t *testing.T) {
	var freed atomic.Int32
	m := NewManager(50, 1, func(*Page) { freed.Add(1) })
	defer m.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := m.Enter()
				time.Sleep(time.Microsecond)
				g.Leave()
			}
		}()
	}

	for i := 0; i < 200; i++ {
		m.Retire(&Page{})
		time.Sleep(100 * time.Microsecond)
	}
	close(stop)
	wg.Wait()
	m.Drain()
	assert.Greater(t, int(freed.Load()), 0, "at least some retired pages should have been freed")
}

func TestPoolReuseThenFreshAllocation(t *testing.T) {
	p, err := NewPool(16)
	require.NoError(t, err)
	defer p.Close()

	assert.Nil(t, p.TryAcquire(), "empty pool must report a miss")

	pg := &Page{Handle: "reuse-me"}
	p.Offer(pg)
	p.cache.Wait()

	got := p.TryAcquire()
	if got != nil {
		assert.Equal(t, "reuse-me", got.Handle)
	}
}
