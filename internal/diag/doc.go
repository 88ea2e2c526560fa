// Package diag defines the finding model shared by the engine, the checks and
// the output layers.
//
// A Finding is anchored to a tree node: Rule names the check, Node is the
// anchor, Primary is the anchor's span, Message is owned entirely by the
// rule. Reporters never rewrite messages.
//
// Rules emit through a Reporter. The dispatcher always puts a DedupReporter
// in front of the sink, so that a (rule, unit, anchor) triple is reported at
// most once per traversal even when several rules or several visits
// re-derive the same condition. LockedReporter serializes submissions when
// co-interested rules run concurrently within one node visit.
//
// Bag is the bounded in-memory sink used by the driver; it sorts findings by
// position, severity (desc) and rule so output order does not depend on
// scheduling.
//
// Rendering lives in internal/diagfmt; FormatGoldenFindings here is the one
// stable text form used by tests and fixtures.
package diag
