package checks

import (
	"slices"
	"strings"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/scope"
	"warden/internal/tree"
)

const (
	msgSaveUnvalidated   = "Ensure file validation (type, size, content) and scanning are performed before saving."
	msgUploadUnvalidated = "Uploaded files must be validated (type, size, content) and scanned for malware."
)

// fileUpload flags persisting or assigning uploaded files that were not
// validated first.
type fileUpload struct {
	base
	s UploadSettings
}

func newFileUpload(s UploadSettings) *fileUpload {
	return &fileUpload{
		base: base{
			meta: Meta{
				Key:         Key("FileUploadSecurity"),
				Name:        "Uploaded files must be validated",
				Description: "Uploaded files are checked for type, size, content and malware before they are stored.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security", "upload"},
			},
			kinds: []tree.Kind{tree.KindCall, tree.KindAssign},
		},
		s: s,
	}
}

func (r *fileUpload) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	switch t.Kind(id) {
	case tree.KindCall:
		cd, _ := t.Call(id)
		if !slices.Contains(r.s.Save, cd.Name) {
			return
		}
		if !scope.Preceding(t, id, scope.CallNamed(r.s.Validate...)) {
			c.Report(id, msgSaveUnvalidated)
		}
	case tree.KindAssign:
		ad, _ := t.Assign(id)
		vc, ok := t.Call(ad.Value)
		if !ok || slices.Contains(r.s.Validate, vc.Name) {
			return
		}
		typ, st := t.TypeOf(ad.Target)
		if st != tree.FactResolved {
			return
		}
		if strings.Contains(strings.ToLower(c.Symbols().TypeName(typ)), "file") {
			c.Report(ad.Value, msgUploadUnvalidated)
		}
	}
}
