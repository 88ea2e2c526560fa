package checks

import (
	"fmt"
	"slices"
	"strings"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
)

const (
	msgWeakEncoder         = "The encoder %s is considered weak or insecure. Use a secure password encoder such as BCryptPasswordEncoder or Argon2PasswordEncoder."
	msgUnrecognizedEncoder = "Unrecognized password encoder. Consider using a secure password encoder such as BCryptPasswordEncoder."
	msgWeakHash            = "Avoid using weak hashing methods such as %s. Use secure hashing algorithms like SHA-256 or stronger."
	msgCriticalAuth        = "In critical authentication methods, ensure the use of secure password encoders like BCryptPasswordEncoder."
)

// passwordEncoder flags weak password encoders, weak hash calls and
// authentication calls on owners without a secure encoder.
type passwordEncoder struct {
	base
	s PasswordSettings
}

func newPasswordEncoder(s PasswordSettings) *passwordEncoder {
	return &passwordEncoder{
		base: base{
			meta: Meta{
				Key:         Key("PasswordEncoder"),
				Name:        "Use a secure password encoder",
				Description: "Passwords are hashed with BCrypt, Argon2, PBKDF2 or SCrypt encoders.",
				Severity:    diag.SevCritical,
				Tags:        []string{"security", "authentication"},
			},
			kinds: []tree.Kind{tree.KindNewClass, tree.KindCall},
		},
		s: s,
	}
}

func (r *passwordEncoder) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	switch t.Kind(id) {
	case tree.KindNewClass:
		r.checkNew(c, t, id)
	case tree.KindCall:
		r.checkCall(c, t, id)
	}
}

func (r *passwordEncoder) checkNew(c *dispatch.Context, t *tree.Tree, id tree.NodeID) {
	typ, st := t.TypeOf(id)
	if st != tree.FactResolved || !c.Symbols().IsSubtypeOf(typ, r.s.Interface) {
		return
	}
	name := c.Symbols().TypeName(typ)
	switch {
	case slices.Contains(r.s.Weak, name):
		c.Reportf(id, msgWeakEncoder, name)
	case !slices.Contains(r.s.Secure, name):
		c.Report(id, msgUnrecognizedEncoder)
	}
}

func (r *passwordEncoder) checkCall(c *dispatch.Context, t *tree.Tree, id tree.NodeID) {
	cd, _ := t.Call(id)
	var weakHash, critical string
	if slices.Contains(r.s.WeakHash, cd.Name) {
		weakHash = fmt.Sprintf(msgWeakHash, cd.Name)
	}
	if r.isCritical(cd.Name) && r.ownerLacksSecureEncoder(c, t, id) {
		critical = msgCriticalAuth
	}
	if msg := sentence(weakHash, critical); msg != "" {
		c.Report(id, msg)
	}
}

func (r *passwordEncoder) isCritical(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range r.s.Critical {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// ownerLacksSecureEncoder looks up the encoder member on the type declaring
// the called method. Without a resolved method there is no verdict.
func (r *passwordEncoder) ownerLacksSecureEncoder(c *dispatch.Context, t *tree.Tree, call tree.NodeID) bool {
	sym := t.Symbol(call)
	if sym == nil || !sym.Owner.IsValid() {
		return false
	}
	tab := c.Symbols()
	member, ok := tab.LookupMember(sym.Owner, r.s.Member)
	if !ok {
		return true
	}
	ms := tab.Symbol(member)
	if ms == nil {
		return true
	}
	return !slices.Contains(r.s.Secure, tab.TypeName(ms.DeclaredType))
}
