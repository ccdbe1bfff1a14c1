package lsp

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// traceHandler logs entry and exit of a handler, tagging both lines with a
// per-invocation request id so concurrent handler runs can be told apart
// in the log (spec.md §5's concurrency requirement makes interleaved
// handler logs the common case, not the exception).
func (s *Server) traceHandler(name string) func() {
	start := time.Now()
	requestID := uuid.NewString()

	s.logger.Debug(">>> handler start", zap.String("handler", name), zap.String("request_id", requestID))
	return func() {
		s.logger.Debug("<<< handler end",
			zap.String("handler", name),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)))
	}
}
