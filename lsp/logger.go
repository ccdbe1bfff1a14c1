package lsp

import (
	"context"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// lspLogCore is a zapcore.Core that mirrors log entries to the client via
// window/logMessage, so server-side logging shows up in whatever log
// viewer the editor exposes (spec.md §4.8's logging requirement).
type lspLogCore struct {
	client    protocol.Client
	level     zapcore.Level
	encoder   zapcore.Encoder
	fields    []zapcore.Field
	mu        sync.Mutex
	ctx       context.Context
	cancelCtx context.CancelFunc

	// logQueue ensures async, non-blocking log delivery
	logQueue chan logEntry
}

type logEntry struct {
	level   protocol.MessageType
	message string
}

// lspLogEncoderConfig is the console encoder config for window/logMessage
// bodies: level and timestamp are dropped since MessageType already carries
// the level and the client timestamps the notification on arrival.
func lspLogEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLSPLogger builds a *zap.Logger that tees every entry to both the LSP
// client (via window/logMessage) and fallbackCore (typically stderr), so a
// disconnected client never silences the log.
func NewLSPLogger(client protocol.Client, fallbackCore zapcore.Core, level zapcore.Level) *zap.Logger {
	ctx, cancel := context.WithCancel(context.Background())

	lspCore := &lspLogCore{
		client:    client,
		level:     level,
		encoder:   zapcore.NewConsoleEncoder(lspLogEncoderConfig()),
		ctx:       ctx,
		cancelCtx: cancel,
		logQueue:  make(chan logEntry, 100), // buffer for burst handling
	}

	go lspCore.logSender()

	return zap.New(zapcore.NewTee(lspCore, fallbackCore))
}

// logSender processes the log queue and sends to LSP client asynchronously.
func (c *lspLogCore) logSender() {
	for {
		select {
		case entry := <-c.logQueue:
			// Send to LSP client (ignore errors - client may be disconnected)
			_ = c.client.LogMessage(c.ctx, &protocol.LogMessageParams{
				Type:    entry.level,
				Message: entry.message,
			})
		case <-c.ctx.Done():
			return
		}
	}
}

// Close stops the log sender goroutine.
func (c *lspLogCore) Close() {
	c.cancelCtx()
}

// Enabled implements zapcore.Core.
func (c *lspLogCore) Enabled(level zapcore.Level) bool {
	return level >= c.level
}

// With implements zapcore.Core.
func (c *lspLogCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &lspLogCore{
		client:    c.client,
		level:     c.level,
		encoder:   c.encoder.Clone(),
		fields:    append(c.fields, fields...),
		ctx:       c.ctx,
		cancelCtx: c.cancelCtx,
		logQueue:  c.logQueue,
	}
	return clone
}

// Check implements zapcore.Core.
func (c *lspLogCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

// Write implements zapcore.Core.
func (c *lspLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Encode the message
	buf, err := c.encoder.EncodeEntry(entry, append(c.fields, fields...))
	if err != nil {
		return err
	}

	message := strings.TrimSpace(buf.String())
	buf.Free()

	select {
	case c.logQueue <- logEntry{level: messageTypeForLevel(entry.Level), message: message}:
	default:
		// queue full (buffer size 100); drop rather than block the caller.
	}

	return nil
}

// messageTypeForLevel maps a zap level to the LSP MessageType window/logMessage expects.
func messageTypeForLevel(level zapcore.Level) protocol.MessageType {
	switch level {
	case zapcore.DebugLevel:
		return protocol.MessageTypeLog
	case zapcore.InfoLevel:
		return protocol.MessageTypeInfo
	case zapcore.WarnLevel:
		return protocol.MessageTypeWarning
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return protocol.MessageTypeError
	default:
		return protocol.MessageTypeInfo
	}
}

// Sync implements zapcore.Core.
func (c *lspLogCore) Sync() error {
	return nil
}
