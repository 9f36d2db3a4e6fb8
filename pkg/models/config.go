package models

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
)

// ErrInvalidConfigPatch is returned when a config patch does not fit the node's config variant.
var ErrInvalidConfigPatch = errors.New("invalid config patch")

const defaultDeadlineDays = 3

// NodeConfig is the per-type configuration of a node. Each node type has
// exactly one variant; the variant set is closed to this package.
type NodeConfig interface {
	NodeType() NodeType
	Shared() CommonConfig
	clone() NodeConfig
	common() *CommonConfig
}

// CommonConfig holds the fields every node type carries.
type CommonConfig struct {
	DataSources      []DataSource `json:"data_sources,omitempty"`
	AutoAdvance      bool         `json:"auto_advance"`
	ParallelBranches []string     `json:"parallel_branches,omitempty"`
}

// Shared returns the common part of a config variant.
func (c CommonConfig) Shared() CommonConfig {
	return c
}

func (c *CommonConfig) common() *CommonConfig {
	return c
}

// normalize drops empty lists so that an absent list and an empty one compare equal.
func (c *CommonConfig) normalize() {
	if len(c.DataSources) == 0 {
		c.DataSources = nil
	}

	if len(c.ParallelBranches) == 0 {
		c.ParallelBranches = nil
	}
}

func (c CommonConfig) cloneCommon() CommonConfig {
	return CommonConfig{
		DataSources:      slices.Clone(c.DataSources),
		AutoAdvance:      c.AutoAdvance,
		ParallelBranches: slices.Clone(c.ParallelBranches),
	}
}

// Assignment carries who owns a human step and how long they have.
type Assignment struct {
	Assignee     string `json:"assignee"`
	Role         string `json:"role"`
	DeadlineDays int    `json:"deadline_days"`
}

type StartConfig struct {
	CommonConfig
}

func (c *StartConfig) NodeType() NodeType { return NodeTypeStart }

func (c *StartConfig) clone() NodeConfig {
	return &StartConfig{CommonConfig: c.cloneCommon()}
}

type EndConfig struct {
	CommonConfig
}

func (c *EndConfig) NodeType() NodeType { return NodeTypeEnd }

func (c *EndConfig) clone() NodeConfig {
	return &EndConfig{CommonConfig: c.cloneCommon()}
}

type ApprovalConfig struct {
	CommonConfig
	Assignment

	ApprovalRequired bool `json:"approval_required"`
}

func (c *ApprovalConfig) NodeType() NodeType { return NodeTypeApproval }

func (c *ApprovalConfig) clone() NodeConfig {
	return &ApprovalConfig{
		CommonConfig:     c.cloneCommon(),
		Assignment:       c.Assignment,
		ApprovalRequired: c.ApprovalRequired,
	}
}

type TaskConfig struct {
	CommonConfig
	Assignment
}

func (c *TaskConfig) NodeType() NodeType { return NodeTypeTask }

func (c *TaskConfig) clone() NodeConfig {
	return &TaskConfig{CommonConfig: c.cloneCommon(), Assignment: c.Assignment}
}

type AssignmentConfig struct {
	CommonConfig
	Assignment
}

func (c *AssignmentConfig) NodeType() NodeType { return NodeTypeAssignment }

func (c *AssignmentConfig) clone() NodeConfig {
	return &AssignmentConfig{CommonConfig: c.cloneCommon(), Assignment: c.Assignment}
}

// ConditionConfig holds the branch expression evaluated by the host engine.
type ConditionConfig struct {
	CommonConfig

	Condition string `json:"condition"`
}

func (c *ConditionConfig) NodeType() NodeType { return NodeTypeCondition }

func (c *ConditionConfig) clone() NodeConfig {
	return &ConditionConfig{CommonConfig: c.cloneCommon(), Condition: c.Condition}
}

type NotificationConfig struct {
	CommonConfig

	Message string `json:"message"`
}

func (c *NotificationConfig) NodeType() NodeType { return NodeTypeNotification }

func (c *NotificationConfig) clone() NodeConfig {
	return &NotificationConfig{CommonConfig: c.cloneCommon(), Message: c.Message}
}

// DefaultConfig returns the configuration a freshly placed node of the given type starts with.
func DefaultConfig(nodeType NodeType) (NodeConfig, error) {
	switch nodeType {
	case NodeTypeStart:
		return &StartConfig{}, nil
	case NodeTypeEnd:
		return &EndConfig{}, nil
	case NodeTypeApproval:
		return &ApprovalConfig{
			Assignment:       Assignment{DeadlineDays: defaultDeadlineDays},
			ApprovalRequired: true,
		}, nil
	case NodeTypeTask:
		return &TaskConfig{Assignment: Assignment{DeadlineDays: defaultDeadlineDays}}, nil
	case NodeTypeAssignment:
		return &AssignmentConfig{Assignment: Assignment{DeadlineDays: defaultDeadlineDays}}, nil
	case NodeTypeCondition:
		return &ConditionConfig{}, nil
	case NodeTypeNotification:
		return &NotificationConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}
}

func emptyConfig(nodeType NodeType) (NodeConfig, error) {
	switch nodeType {
	case NodeTypeStart:
		return &StartConfig{}, nil
	case NodeTypeEnd:
		return &EndConfig{}, nil
	case NodeTypeApproval:
		return &ApprovalConfig{}, nil
	case NodeTypeTask:
		return &TaskConfig{}, nil
	case NodeTypeAssignment:
		return &AssignmentConfig{}, nil
	case NodeTypeCondition:
		return &ConditionConfig{}, nil
	case NodeTypeNotification:
		return &NotificationConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}
}

// DecodeConfig decodes raw JSON into the variant for nodeType. A missing
// config yields the type's defaults.
func DecodeConfig(nodeType NodeType, raw []byte) (NodeConfig, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultConfig(nodeType)
	}

	config, err := emptyConfig(nodeType)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trimmed, config); err != nil {
		return nil, fmt.Errorf("failed to decode %s config: %w", nodeType, err)
	}

	config.common().normalize()

	if err := validateDataSources(config.Shared().DataSources); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyConfigPatch shallow-merges patch (keyed by JSON field name) into a
// copy of config. The original is left untouched.
func ApplyConfigPatch(config NodeConfig, patch map[string]any) (NodeConfig, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: node has no config", ErrInvalidConfigPatch)
	}

	fields, err := ConfigFields(config)
	if err != nil {
		return nil, err
	}

	for key, value := range patch {
		if _, known := fields[key]; !known && !isCommonField(key) {
			return nil, fmt.Errorf("%w: %s config has no field %q", ErrInvalidConfigPatch, config.NodeType(), key)
		}

		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigPatch, err)
	}

	next, err := emptyConfig(config.NodeType())
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(merged))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigPatch, err)
	}

	next.common().normalize()

	if err := validateDataSources(next.Shared().DataSources); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigPatch, err)
	}

	return next, nil
}

// ConfigFields returns the config variant as a map keyed by JSON field name.
func ConfigFields(config NodeConfig) (map[string]any, error) {
	encoded, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode config fields: %w", err)
	}

	return fields, nil
}

// omitempty hides these from the encoded map when they are empty.
func isCommonField(key string) bool {
	return key == "data_sources" || key == "parallel_branches"
}

// CloneConfig returns a deep copy of a config variant.
func CloneConfig(config NodeConfig) NodeConfig {
	if config == nil {
		return nil
	}

	return config.clone()
}
