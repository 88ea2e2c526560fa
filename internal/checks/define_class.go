package checks

import (
	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
)

const (
	unsafeType      = "sun.misc.Unsafe"
	msgUnsafeDefine = "It is recommended to use the method java.lang.invoke.MethodHandles.Lookup.defineClass instead sun.misc.Unsafe.defineClass"
)

// defineClass flags calls to sun.misc.Unsafe.defineClass.
type defineClass struct{ base }

func newDefineClass() *defineClass {
	return &defineClass{base{
		meta: Meta{
			Key:         Key("DefineClass"),
			Name:        "Avoid sun.misc.Unsafe.defineClass",
			Description: "Unsafe.defineClass is unsupported; MethodHandles.Lookup.defineClass replaces it.",
			Severity:    diag.SevCritical,
			Tags:        []string{"bug"},
		},
		kinds: []tree.Kind{tree.KindCall},
	}}
}

func (r *defineClass) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	cd, ok := t.Call(id)
	if !ok || cd.Name != "defineClass" {
		return
	}
	sym := t.Symbol(id)
	if sym == nil || !c.Symbols().Is(sym.Owner, unsafeType) {
		return
	}
	c.Report(id, msgUnsafeDefine)
}
