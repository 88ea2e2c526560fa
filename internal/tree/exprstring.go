package tree

import "strings"

// ExprString renders an expression roughly as it appears in source, e.g.
// `logger.error("x", e)` or `HttpServletResponse.SC_UNAUTHORIZED`. Statements
// and declarations render as their kind in angle brackets.
func ExprString(t *Tree, id NodeID) string {
	var sb strings.Builder
	writeExpr(&sb, t, id)
	return sb.String()
}

// CalleeString renders the method select part of a call (`logger.error`).
// Non-calls render as ExprString.
func CalleeString(t *Tree, id NodeID) string {
	c, ok := t.Call(id)
	if !ok {
		return ExprString(t, id)
	}
	if !c.Receiver.IsValid() {
		return c.Name
	}
	return ExprString(t, c.Receiver) + "." + c.Name
}

func writeExpr(sb *strings.Builder, t *Tree, id NodeID) {
	switch t.Kind(id) {
	case KindIdent, KindTypeRef:
		sb.WriteString(t.Name(id))
	case KindLiteral:
		d, _ := t.Literal(id)
		sb.WriteString(d.Text)
	case KindSelect:
		d, _ := t.Select(id)
		writeExpr(sb, t, d.Target)
		sb.WriteByte('.')
		sb.WriteString(d.Name)
	case KindCall:
		d, _ := t.Call(id)
		sb.WriteString(CalleeString(t, id))
		writeArgs(sb, t, d.Args)
	case KindNewClass:
		d, _ := t.NewClass(id)
		sb.WriteString("new ")
		writeExpr(sb, t, d.TypeRef)
		writeArgs(sb, t, d.Args)
	case KindAssign:
		d, _ := t.Assign(id)
		writeExpr(sb, t, d.Target)
		sb.WriteString(" = ")
		writeExpr(sb, t, d.Value)
	case KindAnnotation:
		d, _ := t.Annotation(id)
		sb.WriteByte('@')
		sb.WriteString(d.Name)
		if len(d.Args) > 0 {
			writeArgs(sb, t, d.Args)
		}
	case KindLambda:
		d, _ := t.Lambda(id)
		sb.WriteByte('(')
		for i, p := range d.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.Name(p))
		}
		sb.WriteString(") -> ")
		if t.Kind(d.Body) == KindBlock {
			sb.WriteString("{...}")
		} else {
			writeExpr(sb, t, d.Body)
		}
	case KindInvalid:
	default:
		sb.WriteByte('<')
		sb.WriteString(t.Kind(id).String())
		sb.WriteByte('>')
	}
}

func writeArgs(sb *strings.Builder, t *Tree, args []NodeID) {
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, t, a)
	}
	sb.WriteByte(')')
}
