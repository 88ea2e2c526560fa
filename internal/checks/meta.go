package checks

import (
	"strings"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
)

// Meta describes a check for listings and reports.
type Meta struct {
	Key         string        `json:"key"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Severity    diag.Severity `json:"severity"`
	Tags        []string      `json:"tags"`
}

// Check is a dispatchable rule with metadata.
type Check interface {
	dispatch.SeverityRule
	Meta() Meta
}

const keyPrefix = "warden:"

// Key builds the rule id of a check name.
func Key(name string) string { return keyPrefix + name }

// ShortName strips the key prefix.
func ShortName(key string) string { return strings.TrimPrefix(key, keyPrefix) }

// base carries the parts every check shares.
type base struct {
	meta  Meta
	kinds []tree.Kind
}

func (b *base) ID() string              { return b.meta.Key }
func (b *base) Kinds() []tree.Kind      { return b.kinds }
func (b *base) Severity() diag.Severity { return b.meta.Severity }
func (b *base) Meta() Meta              { return b.meta }

// sentence joins message parts that share one anchor. The reporter keeps
// one finding per anchor, so a check that derives several conditions for
// the same node reports them together.
func sentence(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
