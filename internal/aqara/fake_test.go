package aqara

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"
)

type fakeShell struct {
	dialect shell.Dialect
	run     func(cmd string) string

	mu       sync.Mutex
	props    map[string]string
	dumps    []map[string]string
	commands []string
	sets     []string
}

func newFakeShell(dialect shell.Dialect, run func(cmd string) string) *fakeShell {
	return &fakeShell{
		dialect: dialect,
		run:     run,
		props:   map[string]string{},
	}
}

func (f *fakeShell) Host() string {
	return "192.0.2.10"
}

func (f *fakeShell) Dialect() shell.Dialect {
	return f.dialect
}

func (f *fakeShell) Run(ctx context.Context, command string) string {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	run := f.run
	f.mu.Unlock()
	if run == nil {
		return ""
	}
	return run(command)
}

func (f *fakeShell) RunWithTimeout(ctx context.Context, command string, timeout time.Duration) string {
	return f.Run(ctx, command)
}

func (f *fakeShell) GetProperty(ctx context.Context, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "getprop "+key)
	return f.props[key]
}

func (f *fakeShell) SetProperty(ctx context.Context, key string, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, key+"="+value)
	f.props[key] = value
}

// DumpProperties hands out the queued dumps in order, then the live
// property map.
func (f *fakeShell) DumpProperties(ctx context.Context) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, "getprop ")
	if len(f.dumps) > 0 {
		d := f.dumps[0]
		f.dumps = f.dumps[1:]
		return d
	}
	cp := make(map[string]string, len(f.props))
	for k, v := range f.props {
		cp[k] = v
	}
	return cp
}

func (f *fakeShell) Connected() bool {
	return true
}

func (f *fakeShell) Close() error {
	return nil
}

func (f *fakeShell) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeShell) propertyWrites() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sets...)
}

func (f *fakeShell) count(prefix string) int {
	n := 0
	for _, c := range f.received() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
