package shell

import (
	"context"
	"strings"
	"sync"
)

// Call is one command recorded by Fake.
type Call struct {
	Line  string
	Stdin []byte
}

type fakeResponse struct {
	result Result
	err    error
}

// Fake is a Runner for tests. Responses are registered per command-line
// prefix; the longest matching prefix wins. Several responses registered
// for the same prefix are returned in order, the last one repeating.
// Unmatched commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]fakeResponse
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string][]fakeResponse)}
}

// On registers stdout for commands starting with prefix.
func (f *Fake) On(prefix, stdout string) *Fake {
	return f.add(prefix, fakeResponse{result: Result{Stdout: stdout}})
}

// OnError registers a failing exit for commands starting with prefix.
func (f *Fake) OnError(prefix string, exitCode int, stderr string) *Fake {
	res := Result{Stderr: stderr, ExitCode: exitCode}
	return f.add(prefix, fakeResponse{result: res, err: &ExitError{Command: prefix, Result: &res}})
}

func (f *Fake) add(prefix string, r fakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = append(f.responses[prefix], r)
	return f
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	return f.RunWithInput(ctx, nil, name, args...)
}

// RunWithInput implements Runner.
func (f *Fake) RunWithInput(ctx context.Context, stdin []byte, name string, args ...string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Line: line, Stdin: stdin})

	best := ""
	found := false
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && (!found || len(prefix) > len(best)) {
			best, found = prefix, true
		}
	}
	if !found {
		return &Result{}, nil
	}

	queue := f.responses[best]
	r := queue[0]
	if len(queue) > 1 {
		f.responses[best] = queue[1:]
	}
	res := r.result
	return &res, r.err
}

// Calls returns the recorded command lines.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.Line
	}
	return lines
}

// Call returns the i-th recorded call.
func (f *Fake) Call(i int) Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// Called reports whether any command started with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, l := range f.Calls() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// Count returns how many commands started with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, l := range f.Calls() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
