// Package profile aggregates the durations of named operations.
package profile

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lsds/shardcomm/srcs/go/utils"
)

var now = time.Now

type stat struct {
	count int64
	bytes int64
	min   time.Duration
	max   time.Duration
	total time.Duration
}

func (s stat) mean() time.Duration { return s.total / time.Duration(s.count) }

// Profiler is safe for concurrent use.
type Profiler struct {
	mu    sync.Mutex
	stats map[string]*stat
}

func New() *Profiler {
	return &Profiler{stats: make(map[string]*stat)}
}

type Scope struct {
	name     string
	bytes    int64
	begin    time.Time
	profiler *Profiler
}

// Profile starts timing one call of name, which moves bytes bytes.
func (p *Profiler) Profile(name string, bytes int64) *Scope {
	return &Scope{name: name, bytes: bytes, begin: now(), profiler: p}
}

func (s *Scope) Done() time.Duration {
	d := now().Sub(s.begin)
	s.profiler.add(s.name, s.bytes, d)
	return d
}

func (p *Profiler) add(name string, bytes int64, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[name]
	if !ok {
		s = &stat{min: d, max: d}
		p.stats[name] = s
	}
	s.count++
	s.bytes += bytes
	s.total += d
	if d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

// Mean returns the mean duration of name, or false if it was never profiled.
func (p *Profiler) Mean(name string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[name]
	if !ok {
		return 0, false
	}
	return s.mean(), true
}

// WriteSummary writes one row per name, slowest total first.
func (p *Profiler) WriteSummary(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for name := range p.stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return p.stats[names[i]].total > p.stats[names[j]].total })
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("name", "count", "mean", "min", "max", "total", "rate")
	for _, name := range names {
		s := p.stats[name]
		t.Row(name,
			fmt.Sprintf("%d", s.count),
			s.mean().String(),
			s.min.String(),
			s.max.String(),
			s.total.String(),
			utils.ShowRate(utils.Rate(s.bytes, s.total)),
		)
	}
	fmt.Fprintln(w, t.Render())
}
