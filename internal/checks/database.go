package checks

import (
	"slices"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
)

const msgSaveInLoop = "Avoid saving entities inside loops. Use batch updates to improve performance."

// saveInLoop flags repository saves issued once per loop iteration. Nested
// loops visit the same call twice; the reporter keeps one finding. The loop
// header counts too, so a save in a condition or update is flagged.
type saveInLoop struct {
	base
	save []string
}

func newSaveInLoop(s DatabaseSettings) *saveInLoop {
	return &saveInLoop{
		base: base{
			meta: Meta{
				Key:         Key("InefficientDatabaseCalls"),
				Name:        "Avoid database saves in loops",
				Description: "Saving entities one by one inside a loop issues a query per iteration.",
				Severity:    diag.SevMajor,
				Tags:        []string{"performance", "database"},
			},
			kinds: []tree.Kind{tree.KindFor, tree.KindForEach, tree.KindWhile},
		},
		save: s.Save,
	}
}

func (r *saveInLoop) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	if _, ok := t.Loop(id); !ok {
		return
	}
	for _, call := range t.Collect(id, tree.KindCall) {
		if cd, _ := t.Call(call); slices.Contains(r.save, cd.Name) {
			c.Report(call, msgSaveInLoop)
		}
	}
}
