package unitio

import "golang.org/x/text/unicode/norm"

// normalize puts every identifier of the document into NFC so that names
// written with combining sequences compare equal to precomposed ones.
func (d *UnitDoc) normalize() {
	nfc := norm.NFC.String
	for i := range d.Types {
		d.Types[i].Name = nfc(d.Types[i].Name)
		d.Types[i].QualifiedName = nfc(d.Types[i].QualifiedName)
	}
	for i := range d.Symbols {
		s := &d.Symbols[i]
		s.Name = nfc(s.Name)
		s.QualifiedName = nfc(s.QualifiedName)
		for j := range s.Annotations {
			s.Annotations[j].QualifiedName = nfc(s.Annotations[j].QualifiedName)
		}
	}
	walkDoc(d.Root, func(n *NodeDoc) bool {
		n.Name = nfc(n.Name)
		return true
	})
}
