package checks

import (
	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/scope"
	"warden/internal/tree"
)

const (
	msgEntryPointStatus = "Ensure 'sendError' method uses HTTP status 401 for unauthorized errors."
	msgEntryPointLog    = "Ensure that exceptions are logged using a logger."
)

// entryPoint checks that an authentication entry point answers 401 and
// logs the failure.
type entryPoint struct {
	base
	s        EntryPointSettings
	errorLog string
}

func newEntryPoint(s EntryPointSettings, errorLog string) *entryPoint {
	return &entryPoint{
		base: base{
			meta: Meta{
				Key:         Key("SecureAuthEntryPoint"),
				Name:        "Authentication entry points answer 401",
				Description: "commence sends HTTP 401 and logs the authentication failure.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security", "authentication"},
			},
			kinds: []tree.Kind{tree.KindClass},
		},
		s:        s,
		errorLog: errorLog,
	}
}

func (r *entryPoint) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	if is, _ := typedAs(t, id, true, r.s.Interface); !is {
		return
	}
	for _, m := range memberMethods(t, id, r.s.Method) {
		md, _ := t.Method(m)
		bd, ok := t.Block(md.Body)
		if !ok {
			continue
		}
		for _, s := range bd.Stmts {
			call, cd, ok := scope.StatementCall(t, s)
			if !ok || cd.Name != r.s.SendError {
				continue
			}
			if len(cd.Args) == 0 || tree.ExprString(t, cd.Args[0]) != r.s.Status {
				c.Report(call, msgEntryPointStatus)
				continue
			}
			if !anyStatement(t, bd.Stmts, scope.CallSelectContains(r.errorLog)) {
				c.Report(m, msgEntryPointLog)
			}
		}
	}
}
