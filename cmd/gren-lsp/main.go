// Command gren-lsp is a Language Server Protocol server for the gren
// language.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/lsp"
)

var (
	compilerFlag = flag.String("compiler", "", "gren compiler binary (overrides config/env; empty keeps the config/env value)")
	debugFlag    = flag.Bool("debug", false, "Enable debug logging")
	logfileFlag  = flag.String("logfile", "", "Log file path (in addition to LSP window/logMessage)")
	traceFlag    = flag.Bool("trace", false, "Enable trace logging (very verbose)")
)

func main() {
	flag.Parse()

	var level zapcore.Level
	switch {
	case *traceFlag, *debugFlag:
		level = zapcore.DebugLevel
	default:
		level = zapcore.InfoLevel
	}

	stderrConfig := zap.NewDevelopmentConfig()
	stderrConfig.OutputPaths = []string{"stderr"}
	stderrConfig.ErrorOutputPaths = []string{"stderr"}
	stderrConfig.Level = zap.NewAtomicLevelAt(level)

	startupLogger, err := stderrConfig.Build()
	if err != nil {
		panic(err)
	}

	startupLogger.Info("Starting gren-lsp server",
		zap.Bool("debug", *debugFlag),
		zap.Bool("trace", *traceFlag),
		zap.String("logfile", *logfileFlag))

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		startupLogger.Warn("stdin is a terminal, not a pipe — gren-lsp expects to be launched by an editor over stdio, not run directly")
	}

	cwd, err := os.Getwd()
	if err != nil {
		startupLogger.Error("failed to resolve working directory", zap.Error(err))
		os.Exit(1)
	}

	cfg, err := gren.LoadServerConfig(cwd)
	if err != nil {
		startupLogger.Warn("failed to load workspace settings, using defaults", zap.Error(err))
		cfg = gren.DefaultServerConfig()
	}
	if *compilerFlag != "" {
		cfg.CompilerBinary = *compilerFlag
	}

	ctx := context.Background()

	err = run(ctx, startupLogger, os.Stdin, os.Stdout, cfg, level, *logfileFlag)
	if err != nil {
		if errors.Is(err, io.EOF) {
			startupLogger.Info("Client disconnected")
			return
		}
		if err.Error() == "closed" {
			startupLogger.Info("Connection closed")
			return
		}
		startupLogger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, startupLogger *zap.Logger, in io.Reader, out io.Writer, cfg gren.ServerConfig, level zapcore.Level, logfile string) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	client := protocol.ClientDispatcher(conn, startupLogger)

	var stderrCore zapcore.Core
	if logfile != "" {
		file, err := os.OpenFile(logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			startupLogger.Warn("Failed to open logfile, falling back to stderr", zap.Error(err))
			stderrCore = createStderrCore(level)
		} else {
			stderrCore = zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(file),
				level,
			)
		}
	} else {
		stderrCore = createStderrCore(level)
	}

	logger := lsp.NewLSPLogger(client, stderrCore, level)
	logger.Info("LSP connection established, logging to window/logMessage")

	server := lsp.NewServer(client, logger, cfg)

	conn.Go(ctx, protocol.ServerHandler(server, nil))

	<-conn.Done()

	return conn.Err()
}

func createStderrCore(level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
}

// readWriteCloser wraps separate reader/writer into io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
