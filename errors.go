package gren

import "fmt"

// VersionInvalidError reports an out-of-order document version, per
// spec.md §4.3 and §7. It carries structured context so handlers can
// surface {current, expected, received} to the client without
// re-deriving it.
type VersionInvalidError struct {
	URI      URI
	Current  int32
	Expected int32
	Received int32
}

func (e *VersionInvalidError) Error() string {
	return fmt.Sprintf("version invalid for %s: current=%d expected=%d received=%d",
		e.URI, e.Current, e.Expected, e.Received)
}

// AlreadyOpenError reports an open() call for a URI that is already open.
type AlreadyOpenError struct{ URI URI }

func (e *AlreadyOpenError) Error() string { return fmt.Sprintf("already open: %s", e.URI) }

// NotOpenError reports an operation against a URI that isn't open.
type NotOpenError struct{ URI URI }

func (e *NotOpenError) Error() string { return fmt.Sprintf("not open: %s", e.URI) }

// IndexUnavailableError marks the Symbol Index as unusable (during
// initialization or after corruption). Engines catch this and degrade to
// empty results rather than failing the request (spec.md §7).
type IndexUnavailableError struct{ Cause error }

func (e *IndexUnavailableError) Error() string { return fmt.Sprintf("index unavailable: %v", e.Cause) }
func (e *IndexUnavailableError) Unwrap() error  { return e.Cause }

// ResolveAmbiguousError marks that resolution produced more than one
// candidate symbol for a name; engines return all candidates rather than
// treating this as a failure (spec.md §7).
type ResolveAmbiguousError struct {
	Name       string
	Candidates []Symbol
}

func (e *ResolveAmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous resolution for %q: %d candidates", e.Name, len(e.Candidates))
}

// RenameConflictError rejects a rename whose target name already exists
// in the same scope (spec.md §4.6.7 step 2).
type RenameConflictError struct {
	OldName, NewName string
	ConflictingURI   URI
}

func (e *RenameConflictError) Error() string {
	return fmt.Sprintf("renaming %q to %q conflicts with an existing declaration in %s",
		e.OldName, e.NewName, e.ConflictingURI)
}

// RenameInvalidNameError rejects a rename whose new name violates lexical
// convention or is a reserved word (spec.md §4.6.7 step 1).
type RenameInvalidNameError struct {
	NewName string
	Reason  string
}

func (e *RenameInvalidNameError) Error() string {
	return fmt.Sprintf("invalid rename target %q: %s", e.NewName, e.Reason)
}

// CompilerMissingError marks that no compiler binary is configured or
// live; diagnostics are disabled but the rest of the server keeps
// operating (spec.md §6, §7).
type CompilerMissingError struct{ Path string }

func (e *CompilerMissingError) Error() string {
	if e.Path == "" {
		return "compiler binary not configured"
	}
	return fmt.Sprintf("compiler binary %q failed its liveness probe", e.Path)
}

// CompilerTimeoutError marks that the compiler subprocess was killed
// after exceeding its timeout (spec.md §5, §7).
type CompilerTimeoutError struct{ URI URI }

func (e *CompilerTimeoutError) Error() string {
	return fmt.Sprintf("compiler timed out diagnosing %s", e.URI)
}

// NotReadyError rejects a request that arrived before the server
// completed its initialize/initialized handshake (spec.md §4.8).
type NotReadyError struct{}

func (e *NotReadyError) Error() string { return "server not initialized" }
