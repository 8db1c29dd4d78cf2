// Package proc describes worker processes and how to start them.
package proc

import (
	"maps"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Envs maps variable names to values.
type Envs map[string]string

// Merge returns a new Envs; later maps win on shared keys.
func Merge(es ...Envs) Envs {
	m := make(Envs)
	for _, e := range es {
		maps.Copy(m, e)
	}
	return m
}

// Parse reads KEY=VALUE pairs in the form of os.Environ. Entries without
// '=' are skipped.
func Parse(kvs []string) Envs {
	m := make(Envs, len(kvs))
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// Environ lists e as sorted KEY=VALUE pairs.
func (e Envs) Environ() []string {
	kvs := make([]string, 0, len(e))
	for k, v := range e {
		kvs = append(kvs, k+"="+v)
	}
	slices.Sort(kvs)
	return kvs
}

// Proc is one worker: what to run, with which environment, and where.
type Proc struct {
	Name    string
	Prog    string
	Args    []string
	Envs    Envs
	IPv4    uint32
	PubAddr string
	LogDir  string
}

// Cmd runs p locally with our own environment overlaid by p.Envs.
func (p Proc) Cmd() *exec.Cmd {
	cmd := exec.Command(p.Prog, p.Args...)
	cmd.Env = Merge(Parse(os.Environ()), p.Envs).Environ()
	return cmd
}

// Script is a shell command line that runs p with p.Envs on another host.
func (p Proc) Script() string {
	var b strings.Builder
	b.WriteString("env")
	for _, kv := range p.Envs.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		b.WriteString(" \\\n\t" + k + "=" + strconv.Quote(v))
	}
	b.WriteString(" \\\n\t" + p.Prog)
	for _, a := range p.Args {
		b.WriteString(" \\\n\t" + strconv.Quote(a))
	}
	b.WriteString("\n")
	return b.String()
}
