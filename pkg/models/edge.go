package models

// WorkflowEdge is a directed connector between two nodes.
type WorkflowEdge struct {
	ID        string `json:"id"                  validate:"required"`
	Source    string `json:"source"              validate:"required"` // References WorkflowNode.ID
	Target    string `json:"target"              validate:"required"` // References WorkflowNode.ID
	Label     string `json:"label,omitempty"`
	Condition string `json:"condition,omitempty"` // Evaluated by the host engine, opaque here
}

// Clone returns a copy of the edge.
func (e *WorkflowEdge) Clone() *WorkflowEdge {
	if e == nil {
		return nil
	}

	clone := *e

	return &clone
}

// Touches reports whether the edge starts or ends at nodeID.
func (e *WorkflowEdge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}
