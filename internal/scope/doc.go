// Package scope answers structural questions about where a node sits:
// which method or class encloses it, which statement of which block holds
// it, and whether some statement before or after it in an enclosing
// sequential scope satisfies a predicate.
//
// All queries ascend parent indices and are bounded by tree depth. None of
// them builds a control-flow graph: "precedes" means "appears earlier in an
// enclosing block", not "dominates".
package scope
