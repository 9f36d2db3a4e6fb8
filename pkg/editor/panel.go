package editor

import (
	"fmt"

	"github.com/dukex/flowdesk/pkg/models"
)

// PanelKind says what the property panel is showing.
type PanelKind string

const (
	PanelNone PanelKind = "none"
	PanelNode PanelKind = "node"
	PanelEdge PanelKind = "edge"
)

// FieldKind tells the view which input to draw.
type FieldKind string

const (
	FieldText        FieldKind = "text"
	FieldTextArea    FieldKind = "textarea"
	FieldNumber      FieldKind = "number"
	FieldCheckbox    FieldKind = "checkbox"
	FieldMultiSelect FieldKind = "multiselect"
	FieldTags        FieldKind = "tags"
)

// Field is one row of the property panel.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Value    any       `json:"value"`
	Options  []string  `json:"options,omitempty"`
	Editable bool      `json:"editable"`
}

// PanelView is the property panel for the current selection.
type PanelView struct {
	Kind     PanelKind       `json:"kind"`
	EntityID string          `json:"entity_id,omitempty"`
	NodeType models.NodeType `json:"node_type,omitempty"`
	Editable bool            `json:"editable"`
	Fields   []Field         `json:"fields"`
}

type fieldSpec struct {
	key   string
	label string
	kind  FieldKind
}

var (
	nodeBaseFields = []fieldSpec{
		{key: "title", label: "Title", kind: FieldText},
		{key: "description", label: "Description", kind: FieldTextArea},
	}
	assignmentFields = []fieldSpec{
		{key: "assignee", label: "Assignee", kind: FieldText},
		{key: "role", label: "Role", kind: FieldText},
		{key: "deadline_days", label: "Deadline (days)", kind: FieldNumber},
	}
	commonConfigFields = []fieldSpec{
		{key: "data_sources", label: "Data sources", kind: FieldMultiSelect},
		{key: "auto_advance", label: "Auto advance", kind: FieldCheckbox},
		{key: "parallel_branches", label: "Parallel branches", kind: FieldTags},
	}
	edgeFields = []fieldSpec{
		{key: "label", label: "Label", kind: FieldText},
		{key: "condition", label: "Condition", kind: FieldText},
	}
)

// configFieldSpecs returns the type-specific section of a node panel.
func configFieldSpecs(nodeType models.NodeType) []fieldSpec {
	var specs []fieldSpec

	switch nodeType {
	case models.NodeTypeApproval:
		specs = append(specs, assignmentFields...)
		specs = append(specs, fieldSpec{key: "approval_required", label: "Approval required", kind: FieldCheckbox})
	case models.NodeTypeTask, models.NodeTypeAssignment:
		specs = append(specs, assignmentFields...)
	case models.NodeTypeCondition:
		specs = append(specs, fieldSpec{key: "condition", label: "Condition", kind: FieldText})
	case models.NodeTypeNotification:
		specs = append(specs, fieldSpec{key: "message", label: "Notification text", kind: FieldTextArea})
	case models.NodeTypeStart, models.NodeTypeEnd:
	}

	return append(specs, commonConfigFields...)
}

// Panel builds the property panel for the current selection.
func (e *Editor) Panel() PanelView {
	editable := !e.opts.readOnly

	if node, ok := e.graph.node(e.selection.NodeID); ok {
		return e.nodePanel(node, editable)
	}

	if edge, ok := e.graph.edge(e.selection.EdgeID); ok {
		fields := make([]Field, 0, len(edgeFields))
		values := map[string]any{"label": edge.Label, "condition": edge.Condition}

		for _, spec := range edgeFields {
			fields = append(fields, newField(spec, values[spec.key], editable))
		}

		return PanelView{Kind: PanelEdge, EntityID: edge.ID, Editable: editable, Fields: fields}
	}

	return PanelView{Kind: PanelNone, Editable: editable, Fields: []Field{}}
}

func (e *Editor) nodePanel(node *models.WorkflowNode, editable bool) PanelView {
	values, err := models.ConfigFields(node.Config)
	if err != nil {
		e.opts.logger.Error("Failed to read node config", "node_id", node.ID, "error", err)

		values = map[string]any{}
	}

	values["title"] = node.Title
	values["description"] = node.Description

	specs := append(append([]fieldSpec{}, nodeBaseFields...), configFieldSpecs(node.Type)...)

	fields := make([]Field, 0, len(specs))
	for _, spec := range specs {
		fields = append(fields, newField(spec, values[spec.key], editable))
	}

	return PanelView{
		Kind:     PanelNode,
		EntityID: node.ID,
		NodeType: node.Type,
		Editable: editable,
		Fields:   fields,
	}
}

func newField(spec fieldSpec, value any, editable bool) Field {
	field := Field{Key: spec.key, Label: spec.label, Kind: spec.kind, Value: value, Editable: editable}

	switch spec.kind {
	case FieldMultiSelect:
		for _, entry := range models.DataSourceCatalog() {
			field.Options = append(field.Options, string(entry.ID))
		}

		if value == nil {
			field.Value = []string{}
		}
	case FieldTags:
		if value == nil {
			field.Value = []string{}
		}
	case FieldText, FieldTextArea, FieldNumber, FieldCheckbox:
	}

	return field
}

// CommitField writes one panel field of the selected entity. Each commit that
// changes a value records exactly one history entry.
func (e *Editor) CommitField(key string, value any) error {
	if e.opts.readOnly {
		return nil
	}

	if node, ok := e.graph.node(e.selection.NodeID); ok {
		return e.commitNodeField(node, key, value)
	}

	if edge, ok := e.graph.edge(e.selection.EdgeID); ok {
		text, isString := value.(string)
		if !isString {
			return opError("CommitField", edge.ID, fmt.Errorf("%w: %s must be a string", ErrInvalidFieldValue, key))
		}

		switch key {
		case "label":
			return e.UpdateEdgeField(edge.ID, EdgePatch{Label: &text})
		case "condition":
			return e.UpdateEdgeField(edge.ID, EdgePatch{Condition: &text})
		default:
			return opError("CommitField", edge.ID, fmt.Errorf("%w: %q", ErrUnknownField, key))
		}
	}

	return opError("CommitField", "", ErrNothingSelected)
}

func (e *Editor) commitNodeField(node *models.WorkflowNode, key string, value any) error {
	switch key {
	case "title", "description":
		text, isString := value.(string)
		if !isString {
			return opError("CommitField", node.ID, fmt.Errorf("%w: %s must be a string", ErrInvalidFieldValue, key))
		}

		if key == "title" {
			return e.UpdateNodeField(node.ID, NodePatch{Title: &text})
		}

		return e.UpdateNodeField(node.ID, NodePatch{Description: &text})
	}

	for _, spec := range configFieldSpecs(node.Type) {
		if spec.key == key {
			return e.UpdateNodeConfig(node.ID, map[string]any{key: value})
		}
	}

	return opError("CommitField", node.ID, fmt.Errorf("%w: %q for %s node", ErrUnknownField, key, node.Type))
}
