package tree

// NodeID indexes a node in its tree's arena (1-based).
type NodeID uint32

// NoNodeID marks an absent node (no parent, no else-branch, ...).
const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }
