package local

import "sync"

// hub is shared by every Backend of a cluster.
type hub struct {
	mu     sync.Mutex
	rounds map[string]*round
}

type round struct {
	posted  []interface{}
	arrived int
	left    int
	ready   chan struct{}
}

// exchange posts x as the contribution of member rank of a round of size n
// and returns every contribution in member order once all have arrived.
func (h *hub) exchange(key string, n, rank int, x interface{}) []interface{} {
	h.mu.Lock()
	r, ok := h.rounds[key]
	if !ok {
		r = &round{
			posted: make([]interface{}, n),
			left:   n,
			ready:  make(chan struct{}),
		}
		h.rounds[key] = r
	}
	r.posted[rank] = x
	r.arrived++
	if r.arrived == n {
		close(r.ready)
	}
	h.mu.Unlock()

	<-r.ready

	h.mu.Lock()
	r.left--
	if r.left == 0 {
		delete(h.rounds, key)
	}
	h.mu.Unlock()
	return r.posted
}
