package checks

import (
	"strings"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/scope"
	"warden/internal/tree"
)

const msgUnhandledThrows = "Methods declaring exceptions must handle them or rely on centralized handling such as @ControllerAdvice."

// exceptionHandling flags methods that declare exceptions and never catch.
type exceptionHandling struct{ base }

func newExceptionHandling() *exceptionHandling {
	return &exceptionHandling{base{
		meta: Meta{
			Key:         Key("ExceptionHandling"),
			Name:        "Declared exceptions must be handled",
			Description: "A method with a throws clause should handle exceptions locally or delegate to a central handler.",
			Severity:    diag.SevMajor,
			Tags:        []string{"error-handling"},
		},
		kinds: []tree.Kind{tree.KindMethod},
	}}
}

func (r *exceptionHandling) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	md, ok := t.Method(id)
	// abstract and interface methods have nothing to handle with
	if !ok || len(md.Throws) == 0 || !md.Body.IsValid() {
		return
	}
	if _, _, ok := scope.Direct(t, md.Body, scope.OfKind(tree.KindTry)); ok {
		return
	}
	c.Report(id, msgUnhandledThrows)
}

const (
	msgGenericCatch = "Avoid using generic exception types like 'Exception' or 'Throwable'. Prefer more specific exceptions."
	sfxNestedTry    = "This catch block contains nested try-catch blocks. Consider handling exceptions more specifically."
	sfxCleanup      = "Ensure that exceptions in resource handling or cleanup contexts are handled appropriately."
	sfxSwallowed    = "Avoid swallowing exceptions without logging or handling them."
	sfxRethrown     = "If exceptions are rethrown, ensure that they are properly documented or wrapped."
	sfxBroad        = "Avoid broad exception handling that can mask other issues."
)

// genericCatch flags catch clauses for Exception or Throwable and explains
// what the handler does with them.
type genericCatch struct {
	base
	s GenericCatchSettings
}

func newGenericCatch(s GenericCatchSettings) *genericCatch {
	return &genericCatch{
		base: base{
			meta: Meta{
				Key:         Key("AvoidGenericException"),
				Name:        "Avoid catching generic exceptions",
				Description: "Catching Exception or Throwable hides the failures a handler was not written for.",
				Severity:    diag.SevMajor,
				Tags:        []string{"error-handling", "best-practice"},
			},
			kinds: []tree.Kind{tree.KindTry},
		},
		s: s,
	}
}

func (r *genericCatch) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	td, ok := t.Try(id)
	if !ok {
		return
	}
	for _, catch := range td.Catches {
		cd, ok := t.Catch(catch)
		if !ok {
			continue
		}
		anchor, generic := r.caughtGeneric(t, cd.Param)
		if !generic {
			continue
		}
		c.Report(anchor, r.message(t, cd.Block))
	}
}

// caughtGeneric returns the node to report on and whether the caught type is
// one of the generic ones. An unresolved type is not reported.
func (r *genericCatch) caughtGeneric(t *tree.Tree, param tree.NodeID) (tree.NodeID, bool) {
	vd, ok := t.Variable(param)
	if !ok {
		return tree.NoNodeID, false
	}
	if t.Valid(vd.TypeRef) {
		if is, known := typedAs(t, vd.TypeRef, false, r.s.Types...); known {
			return vd.TypeRef, is
		}
	}
	is, _ := typedAs(t, param, false, r.s.Types...)
	if t.Valid(vd.TypeRef) {
		return vd.TypeRef, is
	}
	return param, is
}

func (r *genericCatch) message(t *tree.Tree, block tree.NodeID) string {
	bd, _ := t.Block(block)
	parts := []string{msgGenericCatch}
	if anyStatement(t, bd.Stmts, scope.OfKind(tree.KindTry)) {
		parts = append(parts, sfxNestedTry)
	}
	if anyStatement(t, bd.Stmts, r.cleanupCall) {
		parts = append(parts, sfxCleanup)
	}
	throws := anyStatement(t, bd.Stmts, scope.OfKind(tree.KindThrow))
	if !throws && !anyStatement(t, bd.Stmts, scope.CallSelectContains("log")) {
		parts = append(parts, sfxSwallowed)
	}
	if throws {
		parts = append(parts, sfxRethrown)
	}
	// every generic catch is broad
	parts = append(parts, sfxBroad)
	return sentence(parts...)
}

func (r *genericCatch) cleanupCall(t *tree.Tree, stmt tree.NodeID) bool {
	call, _, ok := scope.StatementCall(t, stmt)
	if !ok || t.Kind(stmt) != tree.KindExprStmt {
		return false
	}
	callee := tree.CalleeString(t, call)
	for _, w := range r.s.Cleanup {
		if strings.Contains(callee, w) {
			return true
		}
	}
	return false
}
