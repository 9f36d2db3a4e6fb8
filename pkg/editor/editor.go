// Package editor implements the workflow graph editor: the node/edge store,
// undo/redo history, pointer interactions, selection and property panel.
//
// An Editor is not safe for concurrent use. Hosts that share one across
// goroutines must serialise calls.
package editor

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/google/uuid"
)

// SaveFunc receives the template produced by an explicit save.
type SaveFunc func(ctx context.Context, template *models.WorkflowTemplate) error

// ExportFunc signals the host to serialise the current state externally.
type ExportFunc func(ctx context.Context) error

// LoadPolicy decides what happens to malformed templates on load.
type LoadPolicy string

const (
	// LoadSanitize drops dangling edges and duplicate ids.
	LoadSanitize LoadPolicy = "sanitize"
	// LoadStrict rejects the whole template.
	LoadStrict LoadPolicy = "strict"
)

// Selection points at the selected node or edge; at most one is set.
type Selection struct {
	NodeID string `json:"node_id,omitempty"`
	EdgeID string `json:"edge_id,omitempty"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.NodeID == "" && s.EdgeID == ""
}

type options struct {
	readOnly     bool
	loadPolicy   LoadPolicy
	policies     []EdgePolicy
	session      models.SessionContext
	onSave       SaveFunc
	onExport     ExportFunc
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
	historyLimit int
}

// Option configures an Editor.
type Option func(*options)

func WithReadOnly(readOnly bool) Option {
	return func(o *options) { o.readOnly = readOnly }
}

func WithLoadPolicy(policy LoadPolicy) Option {
	return func(o *options) { o.loadPolicy = policy }
}

// WithEdgePolicies installs validation hooks run by AddEdge.
func WithEdgePolicies(policies ...EdgePolicy) Option {
	return func(o *options) { o.policies = append(o.policies, policies...) }
}

func WithSession(session models.SessionContext) Option {
	return func(o *options) { o.session = session }
}

func WithOnSave(fn SaveFunc) Option {
	return func(o *options) { o.onSave = fn }
}

func WithOnExport(fn ExportFunc) Option {
	return func(o *options) { o.onExport = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHistoryLimit bounds the undo stack; the oldest entries go first.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// Editor holds one workflow graph being edited.
type Editor struct {
	meta      models.WorkflowTemplate // Nodes and Edges unused; the store owns the graph
	graph     *graphStore
	history   *History
	selection Selection
	drag      dragState
	zoom      float64
	opts      options
}

// New returns an editor over an empty graph.
func New(opts ...Option) *Editor {
	editor, _ := Load(nil, opts...)

	return editor
}

// Load returns an editor initialised from template. A nil template starts empty.
// The template is copied; later changes to it do not affect the editor.
func Load(template *models.WorkflowTemplate, opts ...Option) (*Editor, error) {
	o := options{
		loadPolicy: LoadSanitize,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	editor := &Editor{
		graph: newGraphStore(),
		zoom:  DefaultZoom,
		opts:  o,
	}

	if template != nil {
		editor.meta = *template
		editor.meta.Nodes = nil
		editor.meta.Edges = nil

		if err := editor.loadGraph(template); err != nil {
			return nil, err
		}
	}

	editor.history = NewHistory(editor.graph.snapshot(), o.historyLimit)

	return editor, nil
}

func (e *Editor) loadGraph(template *models.WorkflowTemplate) error {
	strict := e.opts.loadPolicy == LoadStrict
	logger := e.opts.logger.With("template_id", template.ID)

	for _, source := range template.Nodes {
		if source == nil {
			continue
		}

		node := source.Clone()

		if !node.Type.Valid() {
			return opError("Load", node.ID, ErrUnknownNodeType)
		}

		if _, exists := e.graph.node(node.ID); exists || node.ID == "" {
			if strict {
				return opError("Load", node.ID, ErrDuplicateNodeID)
			}

			logger.Warn("Dropping node with duplicate or empty id", "node_id", node.ID)

			continue
		}

		if node.Config == nil || node.Config.NodeType() != node.Type {
			if node.Config != nil && strict {
				return opError("Load", node.ID, ErrConfigMismatch)
			}

			config, err := models.DefaultConfig(node.Type)
			if err != nil {
				return opError("Load", node.ID, err)
			}

			node.Config = config
		}

		e.graph.putNode(node)
	}

	for _, source := range template.Edges {
		if source == nil {
			continue
		}

		edge := source.Clone()

		if _, exists := e.graph.edge(edge.ID); exists || edge.ID == "" {
			if strict {
				return opError("Load", edge.ID, ErrDuplicateEdgeID)
			}

			logger.Warn("Dropping edge with duplicate or empty id", "edge_id", edge.ID)

			continue
		}

		_, sourceOK := e.graph.node(edge.Source)
		_, targetOK := e.graph.node(edge.Target)

		if !sourceOK || !targetOK {
			if strict {
				return opError("Load", edge.ID, ErrDanglingEdge)
			}

			logger.Warn("Dropping dangling edge", "edge_id", edge.ID, "source", edge.Source, "target", edge.Target)

			continue
		}

		e.graph.putEdge(edge)
	}

	return nil
}

// ReadOnly reports whether mutations are suppressed.
func (e *Editor) ReadOnly() bool {
	return e.opts.readOnly
}

// SetReadOnly toggles read-only mode. Entering it ends any drag without committing.
func (e *Editor) SetReadOnly(readOnly bool) {
	e.opts.readOnly = readOnly
	if readOnly {
		e.drag = dragState{}
	}
}

// Session returns the session context the editor was opened with.
func (e *Editor) Session() models.SessionContext {
	return e.opts.session
}

// Nodes returns a copy of the nodes in insertion order.
func (e *Editor) Nodes() []*models.WorkflowNode {
	return models.CloneNodes(e.graph.orderedNodes())
}

// Edges returns a copy of the edges in insertion order.
func (e *Editor) Edges() []*models.WorkflowEdge {
	return models.CloneEdges(e.graph.orderedEdges())
}

func (e *Editor) Node(id string) (*models.WorkflowNode, bool) {
	node, ok := e.graph.node(id)

	return node.Clone(), ok
}

func (e *Editor) Edge(id string) (*models.WorkflowEdge, bool) {
	edge, ok := e.graph.edge(id)

	return edge.Clone(), ok
}

// Selection returns the current selection.
func (e *Editor) Selection() Selection {
	return e.selection
}

// History exposes the undo stack for inspection.
func (e *Editor) History() *History {
	return e.history
}

// Template wraps the current graph into a template without bumping the version.
func (e *Editor) Template() *models.WorkflowTemplate {
	template := e.meta.Clone()
	template.Nodes = e.Nodes()
	template.Edges = e.Edges()

	return template
}

func (e *Editor) record() {
	e.history.Record(e.graph.snapshot())
}

// AddNode places a node of nodeType at (x, y) in canvas space. In read-only
// mode it does nothing and returns nil, nil.
func (e *Editor) AddNode(nodeType models.NodeType, x, y float64) (*models.WorkflowNode, error) {
	if e.opts.readOnly {
		return nil, nil
	}

	node, err := models.NewNode(e.opts.newID(), nodeType, models.Position{X: x, Y: y})
	if err != nil {
		return nil, opError("AddNode", "", err)
	}

	e.graph.putNode(node)
	e.record()

	return node.Clone(), nil
}

// DeleteNode removes a node and every edge that references it.
func (e *Editor) DeleteNode(id string) error {
	if e.opts.readOnly {
		return nil
	}

	removedEdges, ok := e.graph.removeNode(id)
	if !ok {
		return opError("DeleteNode", id, ErrNodeNotFound)
	}

	if e.selection.NodeID == id {
		e.selection = Selection{}
	}

	for _, edgeID := range removedEdges {
		if e.selection.EdgeID == edgeID {
			e.selection = Selection{}
		}
	}

	if e.drag.nodeID == id {
		e.drag = dragState{}
	}

	e.record()

	return nil
}

// AddEdge connects source to target after every configured edge policy accepts it.
func (e *Editor) AddEdge(source, target, label string) (*models.WorkflowEdge, error) {
	if e.opts.readOnly {
		return nil, nil
	}

	if _, ok := e.graph.node(source); !ok {
		return nil, opError("AddEdge", source, ErrNodeNotFound)
	}

	if _, ok := e.graph.node(target); !ok {
		return nil, opError("AddEdge", target, ErrNodeNotFound)
	}

	for _, policy := range e.opts.policies {
		if err := policy(e.graph, source, target); err != nil {
			return nil, opError("AddEdge", "", err)
		}
	}

	edge := &models.WorkflowEdge{
		ID:     e.opts.newID(),
		Source: source,
		Target: target,
		Label:  label,
	}

	e.graph.putEdge(edge)
	e.record()

	return edge.Clone(), nil
}

func (e *Editor) DeleteEdge(id string) error {
	if e.opts.readOnly {
		return nil
	}

	if !e.graph.removeEdge(id) {
		return opError("DeleteEdge", id, ErrEdgeNotFound)
	}

	if e.selection.EdgeID == id {
		e.selection = Selection{}
	}

	e.record()

	return nil
}

// UpdateNodePosition moves a node without recording history. Drags use it
// on every pointer move.
func (e *Editor) UpdateNodePosition(id string, x, y float64) error {
	if e.opts.readOnly {
		return nil
	}

	node, ok := e.graph.node(id)
	if !ok {
		return opError("UpdateNodePosition", id, ErrNodeNotFound)
	}

	node.Position = models.Position{X: x, Y: y}

	return nil
}

// NodePatch holds the node fields a commit may change; nil means unchanged.
type NodePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateNodeField merges patch into the node and records one history entry
// when something changed.
func (e *Editor) UpdateNodeField(id string, patch NodePatch) error {
	if e.opts.readOnly {
		return nil
	}

	node, ok := e.graph.node(id)
	if !ok {
		return opError("UpdateNodeField", id, ErrNodeNotFound)
	}

	changed := false

	if patch.Title != nil && *patch.Title != node.Title {
		node.Title = *patch.Title
		changed = true
	}

	if patch.Description != nil && *patch.Description != node.Description {
		node.Description = *patch.Description
		changed = true
	}

	if changed {
		e.record()
	}

	return nil
}

// UpdateNodeConfig merges patch, keyed by config JSON field names, into the node's config.
func (e *Editor) UpdateNodeConfig(id string, patch map[string]any) error {
	if e.opts.readOnly {
		return nil
	}

	node, ok := e.graph.node(id)
	if !ok {
		return opError("UpdateNodeConfig", id, ErrNodeNotFound)
	}

	next, err := models.ApplyConfigPatch(node.Config, patch)
	if err != nil {
		return opError("UpdateNodeConfig", id, err)
	}

	if reflect.DeepEqual(next, node.Config) {
		return nil
	}

	node.Config = next
	e.record()

	return nil
}

// EdgePatch holds the edge fields a commit may change; nil means unchanged.
type EdgePatch struct {
	Label     *string `json:"label,omitempty"`
	Condition *string `json:"condition,omitempty"`
}

func (e *Editor) UpdateEdgeField(id string, patch EdgePatch) error {
	if e.opts.readOnly {
		return nil
	}

	edge, ok := e.graph.edge(id)
	if !ok {
		return opError("UpdateEdgeField", id, ErrEdgeNotFound)
	}

	changed := false

	if patch.Label != nil && *patch.Label != edge.Label {
		edge.Label = *patch.Label
		changed = true
	}

	if patch.Condition != nil && *patch.Condition != edge.Condition {
		edge.Condition = *patch.Condition
		changed = true
	}

	if changed {
		e.record()
	}

	return nil
}

// Undo restores the previous snapshot. It reports whether anything changed.
func (e *Editor) Undo() bool {
	if e.opts.readOnly {
		return false
	}

	snapshot, ok := e.history.Undo()
	if !ok {
		return false
	}

	e.apply(snapshot)

	return true
}

// Redo re-applies the next snapshot. It reports whether anything changed.
func (e *Editor) Redo() bool {
	if e.opts.readOnly {
		return false
	}

	snapshot, ok := e.history.Redo()
	if !ok {
		return false
	}

	e.apply(snapshot)

	return true
}

func (e *Editor) apply(snapshot Snapshot) {
	e.drag = dragState{}
	e.graph.restore(snapshot)

	if e.selection.NodeID != "" {
		if _, ok := e.graph.node(e.selection.NodeID); !ok {
			e.selection = Selection{}
		}
	}

	if e.selection.EdgeID != "" {
		if _, ok := e.graph.edge(e.selection.EdgeID); !ok {
			e.selection = Selection{}
		}
	}
}

// Save hands the current graph to the save callback as the next template
// version. The editor adopts the new version only when the callback
// succeeds; its error is returned unchanged. Save does nothing in read-only mode.
func (e *Editor) Save(ctx context.Context) (*models.WorkflowTemplate, error) {
	if e.opts.readOnly {
		return nil, nil
	}

	template := e.Template()
	template.Version = e.meta.Version + 1
	template.UpdatedAt = e.opts.now()

	if !e.opts.session.Anonymous() {
		template.UpdatedBy = e.opts.session.UserID
	}

	if template.CreatedAt.IsZero() {
		template.CreatedAt = template.UpdatedAt
	}

	if e.opts.onSave != nil {
		if err := e.opts.onSave(ctx, template.Clone()); err != nil {
			return nil, err
		}
	}

	e.meta.Version = template.Version
	e.meta.UpdatedAt = template.UpdatedAt
	e.meta.UpdatedBy = template.UpdatedBy
	e.meta.CreatedAt = template.CreatedAt

	return template, nil
}

// Export asks the host to serialise the current state.
func (e *Editor) Export(ctx context.Context) error {
	if e.opts.onExport == nil {
		return nil
	}

	return e.opts.onExport(ctx)
}

// State is a read-only summary of the editor for hosts and views.
type State struct {
	Template     *models.WorkflowTemplate `json:"template"`
	Selection    Selection                `json:"selection"`
	Zoom         float64                  `json:"zoom"`
	ReadOnly     bool                     `json:"read_only"`
	Dragging     string                   `json:"dragging,omitempty"`
	CanUndo      bool                     `json:"can_undo"`
	CanRedo      bool                     `json:"can_redo"`
	HistoryIndex int                      `json:"history_index"`
	HistoryLen   int                      `json:"history_len"`
}

func (e *Editor) State() State {
	return State{
		Template:     e.Template(),
		Selection:    e.selection,
		Zoom:         e.zoom,
		ReadOnly:     e.opts.readOnly,
		Dragging:     e.drag.nodeID,
		CanUndo:      e.history.CanUndo(),
		CanRedo:      e.history.CanRedo(),
		HistoryIndex: e.history.Index(),
		HistoryLen:   e.history.Len(),
	}
}
