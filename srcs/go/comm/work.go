package comm

import (
	"sync/atomic"

	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/pkg/errors"
)

var ErrWorkConsumed = errors.New("work already waited")

// Work is the handle of a collective that may still be running. Its result
// must not be read before Wait returns, and Wait may be called only once.
type Work[T any] struct {
	done     <-chan struct{}
	consumed int32
	result   T
	err      error
}

func failed[T any](err error) *Work[T] {
	done := make(chan struct{})
	close(done)
	return &Work[T]{done: done, err: err}
}

// Wait blocks until the operation completes and returns its result.
// Subsequent calls return ErrWorkConsumed.
func (w *Work[T]) Wait() (T, error) {
	if !atomic.CompareAndSwapInt32(&w.consumed, 0, 1) {
		var zero T
		return zero, ErrWorkConsumed
	}
	<-w.done
	return w.result, w.err
}

// Done is closed once the operation completes.
func (w *Work[T]) Done() <-chan struct{} {
	return w.done
}

func submit[T any](reg Registry, m parallel.Mode, name string, f func(Group) (T, error)) *Work[T] {
	g, err := reg.Group(m)
	if err != nil {
		return failed[T](errors.Wrapf(err, "%s over %s group", name, m))
	}
	w := &Work[T]{}
	w.done = reg.Queue(m).Do(func() {
		w.result, w.err = f(g)
		if w.err != nil {
			log.Debugf("%s over %s group failed: %v", name, m, w.err)
			w.err = errors.Wrapf(w.err, "%s over %s group", name, m)
		}
	})
	return w
}
