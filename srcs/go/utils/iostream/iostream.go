// Package iostream fans the output of worker processes out to the console
// and to log files.
package iostream

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/utils/xterm"
)

const maxLine = 1 << 20

// Sink is a destination for the two output streams of one process.
type Sink struct {
	Out io.Writer
	Err io.Writer
}

// Console tags every line with name before printing it to our own stdout
// and stderr.
func Console(name string, c xterm.Color) Sink {
	if c == nil {
		c = xterm.NoColor
	}
	tag := c.S(name)
	return Sink{
		Out: &tagged{tag: "[" + tag + "::stdout] ", w: os.Stdout},
		Err: &tagged{tag: "[" + tag + "::" + xterm.Warn.S("stderr") + "] ", w: os.Stderr},
	}
}

// Files writes to <prefix>.stdout.log and <prefix>.stderr.log. A file is
// only created once something is written to it.
func Files(prefix string) Sink {
	return Sink{
		Out: &deferredFile{name: prefix + ".stdout.log"},
		Err: &deferredFile{name: prefix + ".stderr.log"},
	}
}

// For returns the sinks of a process: the console when verbose, and files
// under logDir when it is set.
func For(name string, c xterm.Color, verbose bool, logDir string) []Sink {
	var sinks []Sink
	if verbose {
		sinks = append(sinks, Console(name, c))
	}
	if logDir != "" {
		sinks = append(sinks, Files(filepath.Join(logDir, strings.ReplaceAll(name, "/", "-"))))
	}
	return sinks
}

// Pump copies stdout and stderr line by line to every sink. The returned
// group must be waited before the process owning the readers is waited,
// or its last lines may be lost.
func Pump(stdout, stderr io.Reader, sinks ...Sink) *sync.WaitGroup {
	outs := make([]io.Writer, len(sinks))
	errs := make([]io.Writer, len(sinks))
	for i, s := range sinks {
		outs[i], errs[i] = s.Out, s.Err
	}
	var wg sync.WaitGroup
	for _, p := range []struct {
		r  io.Reader
		ws []io.Writer
	}{{stdout, outs}, {stderr, errs}} {
		wg.Add(1)
		go func(r io.Reader, ws []io.Writer) {
			defer wg.Done()
			Lines(r, ws...)
		}(p.r, p.ws)
	}
	return &wg
}

// Lines copies r to every writer, one complete line per Write call.
func Lines(r io.Reader, ws ...io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLine)
	var line []byte
	for sc.Scan() {
		line = append(append(line[:0], sc.Bytes()...), '\n')
		for _, w := range ws {
			w.Write(line)
		}
	}
	return sc.Err()
}

type tagged struct {
	tag string
	w   io.Writer
}

func (t *tagged) Write(p []byte) (int, error) {
	if _, err := io.WriteString(t.w, t.tag+string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

type deferredFile struct {
	mu   sync.Mutex
	name string
	f    *os.File
	err  error
}

func (d *deferredFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil && d.err == nil {
		if d.err = os.MkdirAll(filepath.Dir(d.name), 0o755); d.err == nil {
			d.f, d.err = os.Create(d.name)
		}
	}
	if d.err != nil {
		return 0, d.err
	}
	return d.f.Write(p)
}
