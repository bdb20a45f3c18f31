// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
	"github.com/xkilldash9x/scalpel-report/internal/observability"
)

const narratedChunk = `1. (High) SQL Injection
A. Understanding the vulnerability
The login form concatenates **user input** into a query.`

// fakeLLM answers every generation request with the same text or error.
type fakeLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	closed bool
}

func (f *fakeLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeLLM) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLLM) factory() clientFactory {
	return func(context.Context, config.LLMRouterConfig, *zap.Logger) (schemas.LLMClient, error) {
		return f, nil
	}
}

type memSource []schemas.RawFinding

func (m memSource) RawFindings(context.Context) ([]schemas.RawFinding, error) {
	return m, nil
}

// stubSourceProvider hands out a fixed source and records its use.
type stubSourceProvider struct {
	source   schemas.FindingSource
	err      error
	opts     generateOptions
	cleanups int
}

func (s *stubSourceProvider) Create(_ context.Context, _ config.Interface, opts generateOptions) (schemas.FindingSource, func(), error) {
	s.opts = opts
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.source, func() { s.cleanups++ }, nil
}

// resetForTest isolates a command run from the environment: quiet logging,
// no pacing delay and no ambient config file.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	t.Setenv("SCALPEL_LOGGER_LEVEL", "fatal")
	t.Setenv("SCALPEL_REPORT_PACING_DELAY", "0s")
	t.Setenv("SCALPEL_DATABASE_URL", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs the command tree with args and returns its stdout.
func executeCommand(t *testing.T, deps dependencies, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeFindings writes a generic JSON findings file and returns its path.
func writeFindings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const highFindingJSON = `[
  {"title": "SQL Injection", "severity": "HIGH", "description": "Unsanitized input reaches a query.",
   "remediation": "Use parameterized queries.", "url": "https://app.example.com/login"},
  {"title": "sql  injection", "severity": "high", "url": "https://app.example.com/search"}
]`

var errBoom = errors.New("boom")
