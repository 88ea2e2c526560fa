package checks

import (
	"slices"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
)

const msgUnvalidatedInput = "Input parameters must be validated with @Valid or an equivalent validation annotation."

// inputValidation flags request-bound parameters without @Valid.
type inputValidation struct {
	base
	s InputSettings
}

func newInputValidation(s InputSettings) *inputValidation {
	return &inputValidation{
		base: base{
			meta: Meta{
				Key:         Key("InputValidation"),
				Name:        "Request input must be validated",
				Description: "Parameters bound from the request carry a validation annotation.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security", "input-validation"},
			},
			kinds: []tree.Kind{tree.KindMethod},
		},
		s: s,
	}
}

func (r *inputValidation) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	md, ok := t.Method(id)
	if !ok {
		return
	}
	for _, p := range md.Params {
		anns, known := annotationsOf(t, p)
		if !known {
			continue
		}
		if hasAny(anns, r.s.Sources) && !hasAny(anns, r.s.Valid) {
			c.Report(p, msgUnvalidatedInput)
		}
	}
}

// annotationsOf returns the qualified annotation names of a variable, from
// its symbol when resolved, else from resolved annotation nodes. known is
// false when neither source says anything.
func annotationsOf(t *tree.Tree, v tree.NodeID) (names []string, known bool) {
	if sym := t.Symbol(v); sym != nil {
		for _, a := range sym.Annotations {
			names = append(names, a.QualifiedName)
		}
		return names, true
	}
	vd, ok := t.Variable(v)
	if !ok {
		return nil, false
	}
	if len(vd.Annotations) == 0 {
		return nil, true
	}
	for _, a := range vd.Annotations {
		if sym := t.Symbol(a); sym != nil && sym.QualifiedName != "" {
			names = append(names, sym.QualifiedName)
			known = true
		} else if q := t.TypeQualifiedName(a); q != "" {
			names = append(names, q)
			known = true
		}
	}
	return names, known
}

func hasAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
