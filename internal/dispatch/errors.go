package dispatch

import (
	"errors"
	"fmt"

	"warden/internal/tree"
)

var (
	ErrEmptyRuleID   = errors.New("rule id is empty")
	ErrNoKinds       = errors.New("rule subscribes to no node kinds")
	ErrInvalidKind   = errors.New("rule subscribes to an invalid node kind")
	ErrDuplicateRule = errors.New("rule id already registered")
	// ErrFrozen: Register was called after the first Run.
	ErrFrozen = errors.New("dispatcher is frozen")
)

// ConfigError is a fatal setup error: the rule set is unusable and no unit
// should be scanned with it.
type ConfigError struct {
	Rule string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("dispatch: %v", e.Err)
	}
	return fmt.Sprintf("dispatch: rule %q: %v", e.Rule, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Fault is a recovered panic from one rule callback.
type Fault struct {
	Rule  string
	Node  tree.NodeID
	Value any
	Stack []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("rule %s panicked at node %d: %v", f.Rule, f.Node, f.Value)
}
