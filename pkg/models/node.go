// Package models defines the workflow template graph: nodes, edges and their configuration.
package models

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// NodeType identifies the kind of step a node represents.
type NodeType string

const (
	NodeTypeStart        NodeType = "start"
	NodeTypeApproval     NodeType = "approval"
	NodeTypeTask         NodeType = "task"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeEnd          NodeType = "end"
	NodeTypeNotification NodeType = "notification"
	NodeTypeAssignment   NodeType = "assignment"
)

// ErrUnknownNodeType is returned when a node type is outside the closed set.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeTypes lists every node type in palette order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeStart,
		NodeTypeApproval,
		NodeTypeTask,
		NodeTypeCondition,
		NodeTypeNotification,
		NodeTypeAssignment,
		NodeTypeEnd,
	}
}

// Valid reports whether t belongs to the closed set of node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeApproval, NodeTypeTask, NodeTypeCondition,
		NodeTypeEnd, NodeTypeNotification, NodeTypeAssignment:
		return true
	default:
		return false
	}
}

// NodeStatus is the runtime status written by an external execution engine.
type NodeStatus string

const (
	NodeStatusPending    NodeStatus = "pending"
	NodeStatusInProgress NodeStatus = "in_progress"
	NodeStatusCompleted  NodeStatus = "completed"
	NodeStatusRejected   NodeStatus = "rejected"
)

// Position is a coordinate in canvas space (zoom = 1.0).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode represents a single step in a workflow template.
type WorkflowNode struct {
	ID          string      `json:"id"                    validate:"required"`
	Type        NodeType    `json:"type"                  validate:"required"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Position    Position    `json:"position"`
	Config      NodeConfig  `json:"config"`
	Status      *NodeStatus `json:"status,omitempty"`
}

type workflowNodeJSON struct {
	ID          string          `json:"id"`
	Type        NodeType        `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Position    Position        `json:"position"`
	Config      json.RawMessage `json:"config,omitempty"`
	Status      *NodeStatus     `json:"status,omitempty"`
}

// UnmarshalJSON decodes the config variant selected by the node type.
func (n *WorkflowNode) UnmarshalJSON(data []byte) error {
	var raw workflowNodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	config, err := DecodeConfig(raw.Type, raw.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	*n = WorkflowNode{
		ID:          raw.ID,
		Type:        raw.Type,
		Title:       raw.Title,
		Description: raw.Description,
		Position:    raw.Position,
		Config:      config,
		Status:      raw.Status,
	}

	return nil
}

// Clone returns a deep copy of the node.
func (n *WorkflowNode) Clone() *WorkflowNode {
	if n == nil {
		return nil
	}

	clone := *n
	if n.Config != nil {
		clone.Config = n.Config.clone()
	}

	if n.Status != nil {
		status := *n.Status
		clone.Status = &status
	}

	return &clone
}

// NewNode creates a node of the given type with its default title and configuration.
func NewNode(id string, nodeType NodeType, position Position) (*WorkflowNode, error) {
	config, err := DefaultConfig(nodeType)
	if err != nil {
		return nil, err
	}

	return &WorkflowNode{
		ID:       id,
		Type:     nodeType,
		Title:    PaletteEntryFor(nodeType).Title,
		Position: position,
		Config:   config,
	}, nil
}
