// Package ordergroup runs tasks one at a time in the order they are added,
// whatever goroutine adds them.
package ordergroup

import (
	"sync"
)

type OrderGroup struct {
	mu   sync.Mutex
	last chan struct{}
	wg   sync.WaitGroup
}

func New() *OrderGroup {
	ready := make(chan struct{})
	close(ready)
	return &OrderGroup{last: ready}
}

// Do schedules f after every task added before it. The returned channel is
// closed once f has returned.
func (g *OrderGroup) Do(f func()) <-chan struct{} {
	done := make(chan struct{})
	g.mu.Lock()
	prev := g.last
	g.last = done
	g.wg.Add(1)
	g.mu.Unlock()
	go func() {
		defer g.wg.Done()
		<-prev
		f()
		close(done)
	}()
	return done
}

// Wait blocks until every task added so far has finished.
func (g *OrderGroup) Wait() {
	g.wg.Wait()
}
