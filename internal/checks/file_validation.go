package checks

import (
	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/lifetime"
	"warden/internal/scope"
	"warden/internal/tree"
)

const (
	msgFileNotValidated = "File should be validated before processing."
	msgFileNotClosed    = "File should be closed after processing."
)

// fileValidation flags stream acquisitions that are neither validated nor
// released within their method.
type fileValidation struct {
	base
	validate []string
	tracker  *lifetime.Tracker
}

func newFileValidation(s FileValidationSettings) *fileValidation {
	return &fileValidation{
		base: base{
			meta: Meta{
				Key:         Key("FileValidationAndClosure"),
				Name:        "Files must be validated and closed",
				Description: "Opened files should be validated before processing and closed afterwards.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security"},
			},
			kinds: []tree.Kind{tree.KindCall},
		},
		validate: s.Validate,
		tracker:  lifetime.New(s.Open, s.Close),
	}
}

func (r *fileValidation) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	if !r.tracker.IsAcquisition(t, id) {
		return
	}
	validated := false
	if body, ok := scope.MethodBody(t, id); ok {
		_, _, validated = scope.Direct(t, body, scope.CallNamed(r.validate...))
	}
	var notValidated, notClosed string
	if !validated {
		notValidated = msgFileNotValidated
	}
	if !r.tracker.IsReleased(t, id) {
		notClosed = msgFileNotClosed
	}
	if msg := sentence(notValidated, notClosed); msg != "" {
		c.Report(id, msg)
	}
}
