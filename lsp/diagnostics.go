package lsp

import (
	"context"
	"errors"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/compiler"
)

// publishDiagnostics compiles the document through the compiler collaborator
// and publishes the decoded report as LSP diagnostics (spec.md §4.6.9, §6).
// A missing or timed-out compiler disables diagnostics for this publish
// rather than surfacing an error to the client (spec.md §7).
func (s *Server) publishDiagnostics(ctx context.Context, uri gren.URI, text string) {
	projectDir, modulePath := s.projectModulePath(uri)

	report, err := s.compilerCache.Compile(ctx, uri, []byte(text), projectDir, modulePath)
	if err != nil {
		var missing *gren.CompilerMissingError
		var timeout *gren.CompilerTimeoutError
		if errors.As(err, &missing) || errors.As(err, &timeout) {
			s.logger.Debug("diagnostics skipped", zap.String("uri", string(uri)), zap.Error(err))
			return
		}
		s.logger.Warn("compile failed", zap.String("uri", string(uri)), zap.Error(err))
		return
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(report.Diagnostics)+len(report.GlobalErrors))

	for _, d := range report.Diagnostics {
		if d.Path != "" && d.Path != modulePath {
			continue
		}
		diagnostics = append(diagnostics, convertDiagnostic(d))
	}

	for _, g := range report.GlobalErrors {
		if g.Path != "" && g.Path != modulePath {
			continue
		}
		diagnostics = append(diagnostics, convertGlobalError(g))
	}

	if err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: diagnostics,
	}); err != nil {
		s.logger.Error("failed to publish diagnostics", zap.String("uri", string(uri)), zap.Error(err))
	}
}

// convertDiagnostic converts a compiler.Diagnostic (1-based line/column)
// into an LSP protocol.Diagnostic (0-based).
func convertDiagnostic(d compiler.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    regionToRange(d.Region),
		Severity: convertSeverity(d.Severity),
		Source:   "gren",
		Code:     d.Title,
		Message:  d.Message,
	}
}

// convertGlobalError converts a compiler.GlobalError, which carries no
// region, into a diagnostic anchored at the start of the document.
func convertGlobalError(g compiler.GlobalError) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 0},
		},
		Severity: convertSeverity(g.Severity),
		Source:   "gren",
		Code:     g.Title,
		Message:  g.Message,
	}
}

func convertSeverity(sev compiler.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case compiler.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityError
	}
}

// regionToRange converts a compiler.Region's 1-based positions to LSP's
// 0-based protocol.Range, clamping at zero so a malformed report never
// underflows.
func regionToRange(r compiler.Region) protocol.Range {
	return protocol.Range{
		Start: positionToLSP(r.Start),
		End:   positionToLSP(r.End),
	}
}

func positionToLSP(p compiler.Position) protocol.Position {
	line := uint32(0)
	if p.Line > 0 {
		line = p.Line - 1
	}
	col := uint32(0)
	if p.Column > 0 {
		col = p.Column - 1
	}
	return protocol.Position{Line: line, Character: col}
}
