package checks

import (
	"cmp"
	"fmt"
	"slices"

	"warden/internal/dispatch"
)

// Builtin returns every check configured with s, in catalog order.
func Builtin(s Settings) []Check {
	return []Check{
		newFileValidation(s.FileValidation),
		newHTTPStatus(s.HTTPStatus),
		newExceptionHandling(),
		newGenericCatch(s.GenericCatch),
		newDefineClass(),
		newFileUpload(s.Upload),
		newSaveInLoop(s.Database),
		newInputValidation(s.Input),
		newJWTValidation(s.JWT, s.ErrorLogCallee),
		newPasswordEncoder(s.Password),
		newEntryPoint(s.EntryPoint, s.ErrorLogCallee),
	}
}

// Select filters checks by key or short name. An empty enable list keeps
// everything; disable always wins. Unknown names are an error so a typo in
// the configuration does not silently turn a rule off.
func Select(all []Check, enable, disable []string) ([]Check, error) {
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c.ID()] = true
	}
	norm := func(list []string) (map[string]bool, error) {
		out := make(map[string]bool, len(list))
		for _, n := range list {
			key := n
			if !known[key] {
				key = Key(n)
			}
			if !known[key] {
				return nil, fmt.Errorf("unknown rule %q", n)
			}
			out[key] = true
		}
		return out, nil
	}
	on, err := norm(enable)
	if err != nil {
		return nil, err
	}
	off, err := norm(disable)
	if err != nil {
		return nil, err
	}
	var out []Check
	for _, c := range all {
		if off[c.ID()] || (len(on) > 0 && !on[c.ID()]) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Register adds checks to d in order.
func Register(d *dispatch.Dispatcher, list []Check) error {
	for _, c := range list {
		if err := d.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Metas lists the metadata of checks sorted by key.
func Metas(list []Check) []Meta {
	out := make([]Meta, 0, len(list))
	for _, c := range list {
		out = append(out, c.Meta())
	}
	slices.SortFunc(out, func(a, b Meta) int { return cmp.Compare(a.Key, b.Key) })
	return out
}
