package lsp_test

import (
	"context"
	"sync"
	"testing"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/lsp"
)

// mockClient records published diagnostics and log messages instead of
// speaking JSON-RPC over a real connection. Embedding the protocol.Client
// interface satisfies every method the tests don't care about; only the
// ones exercised here are overridden.
type mockClient struct {
	protocol.Client

	mu          sync.Mutex
	diagnostics map[protocol.DocumentURI][]protocol.Diagnostic
}

func (m *mockClient) PublishDiagnostics(_ context.Context, params *protocol.PublishDiagnosticsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.diagnostics == nil {
		m.diagnostics = make(map[protocol.DocumentURI][]protocol.Diagnostic)
	}
	m.diagnostics[params.URI] = params.Diagnostics
	return nil
}

func (m *mockClient) LogMessage(_ context.Context, _ *protocol.LogMessageParams) error {
	return nil
}

func (m *mockClient) diagnosticsFor(uri protocol.DocumentURI) []protocol.Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diagnostics[uri]
}

// newTestServer builds a Server with no compiler binary configured, so
// diagnostics publishing is a no-op and every test exercises the
// CST/Index/Resolver path in isolation.
func newTestServer(t *testing.T) (*lsp.Server, *mockClient) {
	t.Helper()

	logger := zap.NewNop()
	client := &mockClient{}
	cfg := gren.DefaultServerConfig()
	cfg.CompilerBinary = ""

	server := lsp.NewServer(client, logger, cfg)

	return server, client
}
