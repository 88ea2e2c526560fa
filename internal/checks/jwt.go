package checks

import (
	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/scope"
	"warden/internal/tree"
)

const (
	msgJwtNotLogged  = "Ensure that exceptions during JWT validation are logged."
	msgJwtWeakKeying = "Ensure that a secure key is used for JWT validation."
)

// jwtValidation checks the token validation method of the JWT utility class.
type jwtValidation struct {
	base
	s        JWTSettings
	errorLog string
}

func newJWTValidation(s JWTSettings, errorLog string) *jwtValidation {
	return &jwtValidation{
		base: base{
			meta: Meta{
				Key:         Key("JwtUtils"),
				Name:        "JWT validation must log and use a secure key",
				Description: "Token validation logs its failures and derives the signing key securely.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security", "jwt"},
			},
			kinds: []tree.Kind{tree.KindClass},
		},
		s:        s,
		errorLog: errorLog,
	}
}

func (r *jwtValidation) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	if is, _ := typedAs(t, id, false, r.s.UtilityTypes...); !is {
		return
	}
	for _, m := range memberMethods(t, id, r.s.Method) {
		md, _ := t.Method(m)
		stmts := flatStatements(t, md.Body)
		var notLogged, weakKey string
		if !anyStatement(t, stmts, scope.CallSelectContains(r.errorLog)) {
			notLogged = msgJwtNotLogged
		}
		if !callInside(t, stmts, r.s.SecureKey) {
			weakKey = msgJwtWeakKeying
		}
		if msg := sentence(notLogged, weakKey); msg != "" {
			c.Report(m, msg)
		}
	}
}
