package gren

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default tuning values, overridden by environment variables and finally by
// the workspace settings file (SPEC_FULL.md's AMBIENT STACK configuration
// layer).
const (
	DefaultClosedDocumentCapacity = 100
	DefaultCompletionLimit        = 200
	DefaultWorkspaceSymbolLimit   = 200
	DefaultCompilerTimeoutSeconds = 30
	DefaultCompilerBinary         = "gren"
)

// Environment variable names read by LoadServerConfig.
const (
	EnvCacheDir        = "GREN_LSP_CACHE_DIR"
	EnvCompilerBinary  = "GREN_LSP_COMPILER"
	EnvCompilerTimeout = "GREN_LSP_COMPILER_TIMEOUT_SECONDS"
	EnvClosedDocCap    = "GREN_LSP_CLOSED_DOC_CAPACITY"
	EnvCompletionLimit = "GREN_LSP_COMPLETION_LIMIT"
	EnvWorkspaceSymLim = "GREN_LSP_WORKSPACE_SYMBOL_LIMIT"
)

// DefaultSettingsNames are the workspace settings filenames searched for,
// nearest directory first, in the style of the teacher's DefaultConfigNames.
var DefaultSettingsNames = []string{".gren-lsp.yaml", ".gren-lsp.yml"}

// ServerConfig holds the server's tunable knobs: a cache directory setting,
// how large the Document Store's closed-document LRU is, which compiler binary the
// compiler collaborator shells out to, and the completion/search result
// caps enforced by the resolver and the Symbol Index respectively.
type ServerConfig struct {
	// CacheDir is read from the settings file and GREN_LSP_CACHE_DIR and
	// defaults to ".gren-lsp". The server does not consult it: the Symbol
	// Index is opened at <workspace>/.cache/symbols.db.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// CompilerBinary is the name or path of the external compiler used by
	// the compiler collaborator for diagnostics. Empty means diagnostics
	// are disabled; the server degrades rather than failing
	// (CompilerMissingError).
	CompilerBinary string `yaml:"compilerBinary,omitempty"`

	// CompilerTimeoutSeconds bounds a single compile invocation.
	CompilerTimeoutSeconds int `yaml:"compilerTimeoutSeconds,omitempty"`

	// ClosedDocumentCapacity is the Document Store's closed-document LRU
	// size.
	ClosedDocumentCapacity int `yaml:"closedDocumentCapacity,omitempty"`

	// CompletionLimit caps the number of completion items returned per
	// request.
	CompletionLimit int `yaml:"completionLimit,omitempty"`

	// WorkspaceSymbolLimit caps workspace/symbol search results.
	WorkspaceSymbolLimit int `yaml:"workspaceSymbolLimit,omitempty"`

	// BestEffortRenameValidation enables pre-rename compiler validation of
	// the rewritten tree when a compiler is configured; when false, or when
	// no compiler is live, rename proceeds on syntactic checks alone.
	BestEffortRenameValidation bool `yaml:"bestEffortRenameValidation,omitempty"`
}

// DefaultServerConfig returns the built-in defaults before environment or
// workspace-settings overrides are applied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		CacheDir:                   ".gren-lsp",
		CompilerBinary:             DefaultCompilerBinary,
		CompilerTimeoutSeconds:     DefaultCompilerTimeoutSeconds,
		ClosedDocumentCapacity:     DefaultClosedDocumentCapacity,
		CompletionLimit:            DefaultCompletionLimit,
		WorkspaceSymbolLimit:       DefaultWorkspaceSymbolLimit,
		BestEffortRenameValidation: true,
	}
}

// LoadServerConfig assembles a ServerConfig by layering, in increasing
// priority: built-in defaults, the nearest workspace settings file found by
// walking up from root, then environment variables.
func LoadServerConfig(root string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if path, err := FindSettingsFile(root); err == nil {
		fileCfg, err := LoadSettingsFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = mergeSettings(cfg, fileCfg)
	}

	applyEnv(&cfg)

	return cfg, nil
}

func mergeSettings(base, override ServerConfig) ServerConfig {
	if override.CacheDir != "" {
		base.CacheDir = override.CacheDir
	}
	if override.CompilerBinary != "" {
		base.CompilerBinary = override.CompilerBinary
	}
	if override.CompilerTimeoutSeconds != 0 {
		base.CompilerTimeoutSeconds = override.CompilerTimeoutSeconds
	}
	if override.ClosedDocumentCapacity != 0 {
		base.ClosedDocumentCapacity = override.ClosedDocumentCapacity
	}
	if override.CompletionLimit != 0 {
		base.CompletionLimit = override.CompletionLimit
	}
	if override.WorkspaceSymbolLimit != 0 {
		base.WorkspaceSymbolLimit = override.WorkspaceSymbolLimit
	}
	base.BestEffortRenameValidation = override.BestEffortRenameValidation

	return base
}

func applyEnv(cfg *ServerConfig) {
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(EnvCompilerBinary); v != "" {
		cfg.CompilerBinary = v
	}
	if v := os.Getenv(EnvCompilerTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CompilerTimeoutSeconds = n
		}
	}
	if v := os.Getenv(EnvClosedDocCap); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ClosedDocumentCapacity = n
		}
	}
	if v := os.Getenv(EnvCompletionLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CompletionLimit = n
		}
	}
	if v := os.Getenv(EnvWorkspaceSymLim); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkspaceSymbolLimit = n
		}
	}
}

// FindSettingsFile searches for a workspace settings file starting from dir
// and walking up, mirroring the teacher's FindConfig.
func FindSettingsFile(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for d := absDir; ; {
		for _, name := range DefaultSettingsNames {
			path := filepath.Join(d, name)

			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(d)
		if parent == d {
			return "", os.ErrNotExist
		}

		d = parent
	}
}

// LoadSettingsFile loads a ServerConfig overlay from a specific path.
func LoadSettingsFile(path string) (ServerConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return ServerConfig{}, err
	}

	// BestEffortRenameValidation starts at its default so a settings file
	// that omits the key doesn't switch validation off in mergeSettings.
	cfg := ServerConfig{BestEffortRenameValidation: true}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, err
	}

	return cfg, nil
}
