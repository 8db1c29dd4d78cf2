package utils

import "context"

// Poll calls f until it returns true or ctx is done.
// It returns the number of failed attempts and whether f eventually succeeded.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	for i := 0; ; i++ {
		if f() {
			return i, true
		}
		select {
		case <-ctx.Done():
			return i + 1, false
		default:
		}
	}
}
