package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// StallDetector reports to a writer every period until stopped.
type StallDetector struct {
	name  string
	w     io.Writer
	begin time.Time
	tk    *time.Ticker
	done  chan struct{}
	quit  chan struct{}
	once  sync.Once
}

// InstallStallDetector starts a StallDetector reporting to stderr.
func InstallStallDetector(name string, period time.Duration) *StallDetector {
	return newStallDetector(name, period, os.Stderr)
}

func newStallDetector(name string, period time.Duration, w io.Writer) *StallDetector {
	s := &StallDetector{
		name:  name,
		w:     w,
		begin: time.Now(),
		tk:    time.NewTicker(period),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
	go s.watch()
	return s
}

func (s *StallDetector) watch() {
	defer close(s.quit)
	var stalled bool
	for {
		select {
		case <-s.tk.C:
			stalled = true
			fmt.Fprintf(s.w, "%s stalled for %s\n", s.name, time.Since(s.begin))
		case <-s.done:
			if stalled {
				fmt.Fprintf(s.w, "%s recovered after %s\n", s.name, time.Since(s.begin))
			}
			return
		}
	}
}

// Stop waits for the last report and may be called more than once.
func (s *StallDetector) Stop() time.Duration {
	s.once.Do(func() {
		s.tk.Stop()
		close(s.done)
	})
	<-s.quit
	return time.Since(s.begin)
}
