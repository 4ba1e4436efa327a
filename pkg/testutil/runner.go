// Package testutil provides shared test doubles for the provisioning core.
package testutil

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is an in-memory command.Runner. Behaviour is scripted per
// command line; every invocation is recorded for assertions.
type FakeRunner struct {
	mu sync.Mutex

	// Calls records every invocation as "name arg1 arg2 ...".
	Calls []string

	// Errs maps a command line (or bare command name) to the error its
	// execution should return.
	Errs map[string]error

	// Outputs maps a command line (or bare command name) to the stdout
	// Output should return.
	Outputs map[string]string

	// Missing lists program names Lookup reports as unavailable.
	Missing map[string]bool
}

// NewFakeRunner returns an empty FakeRunner where every command succeeds
// and every program is available.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Errs:    make(map[string]error),
		Outputs: make(map[string]string),
		Missing: make(map[string]bool),
	}
}

func (f *FakeRunner) record(name string, args []string) string {
	line := name
	if len(args) > 0 {
		line = name + " " + strings.Join(args, " ")
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, line)
	f.mu.Unlock()
	return line
}

func (f *FakeRunner) lookup(line, name string) (string, error) {
	if err, ok := f.Errs[line]; ok {
		return f.Outputs[line], err
	}
	if err, ok := f.Errs[name]; ok {
		return f.Outputs[name], err
	}
	if out, ok := f.Outputs[line]; ok {
		return out, nil
	}
	return f.Outputs[name], nil
}

// Run implements command.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := f.record(name, args)
	_, err := f.lookup(line, name)
	return err
}

// Output implements command.Runner.
func (f *FakeRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line := f.record(name, args)
	return f.lookup(line, name)
}

// RunAs implements command.Runner.
func (f *FakeRunner) RunAs(ctx context.Context, username string, name string, args ...string) error {
	full := append([]string{"-u", username, "--", name}, args...)
	return f.Run(ctx, "runuser", full...)
}

// Lookup implements command.Runner.
func (f *FakeRunner) Lookup(name string) bool {
	return !f.Missing[name]
}

// CalledWith reports whether any recorded invocation starts with prefix.
func (f *FakeRunner) CalledWith(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}
