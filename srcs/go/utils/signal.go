package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// Trap calls f in the background on the first SIGINT or SIGTERM.
func Trap(f func(os.Signal)) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() { f(<-ch) }()
}
