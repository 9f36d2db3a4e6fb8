package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/eventbus"
	"github.com/dukex/flowdesk/pkg/events"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSessionTTL   = 30 * time.Minute
	DefaultReapSchedule = "@every 1m"
)

// SessionsConfig tunes the session host.
type SessionsConfig struct {
	TTL          time.Duration // Idle time after which a session is reaped
	ReapSchedule string        // Cron spec for the reaper
	HistoryLimit int           // Undo depth per session; 0 is unbounded
	LoadPolicy   editor.LoadPolicy
}

type session struct {
	mu         sync.Mutex // Serialises editor calls
	id         string
	templateID string
	user       models.SessionContext
	readOnly   bool
	openedAt   time.Time
	lastUsed   time.Time
	editor     *editor.Editor
	ended      bool // Set under mu once the session leaves the map
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID         string                `json:"id"`
	TemplateID string                `json:"template_id"`
	User       models.SessionContext `json:"user"`
	ReadOnly   bool                  `json:"read_only"`
	OpenedAt   time.Time             `json:"opened_at"`
	LastUsed   time.Time             `json:"last_used"`
}

// Sessions hosts editors, one per open session. Each session's editor is
// only touched while its lock is held.
type Sessions struct {
	templates *Template
	eventBus  eventbus.EventPublisher
	logger    *slog.Logger
	config    SessionsConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	cron     *cron.Cron
}

func NewSessions(templates *Template, eventBus eventbus.EventPublisher, logger *slog.Logger, config SessionsConfig) *Sessions {
	if config.TTL <= 0 {
		config.TTL = DefaultSessionTTL
	}

	if config.ReapSchedule == "" {
		config.ReapSchedule = DefaultReapSchedule
	}

	if config.LoadPolicy == "" {
		config.LoadPolicy = editor.LoadSanitize
	}

	return &Sessions{
		templates: templates,
		eventBus:  eventBus,
		logger:    logger.With("module", "sessions"),
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]*session),
	}
}

// OpenRequest opens an editor on a stored template, or on a new empty
// template named Name when TemplateID is empty.
type OpenRequest struct {
	TemplateID   string              `json:"template_id"`
	Name         string              `json:"name"          validate:"required_without=TemplateID,omitempty,min=3"`
	Type         models.TemplateType `json:"type"          validate:"omitempty,oneof=onboarding offboarding promotion custom"`
	ReadOnly     bool                `json:"read_only"`
	EdgePolicies []string            `json:"edge_policies" validate:"dive,oneof=self_loops duplicates cycles from_end"`

	Session models.SessionContext `json:"-"`
}

func (s *Sessions) Open(ctx context.Context, req OpenRequest) (*SessionInfo, error) {
	if err := s.templates.validator.Struct(req); err != nil {
		return nil, NewValidationError("Open", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	policies, err := editor.PoliciesByName(req.EdgePolicies)
	if err != nil {
		return nil, NewValidationError("Open", "INVALID_EDGE_POLICY", err.Error(), err)
	}

	var template *models.WorkflowTemplate

	if req.TemplateID != "" {
		template, err = s.templates.FetchByID(ctx, req.TemplateID)
	} else {
		kind := req.Type
		if kind == "" {
			kind = models.TemplateTypeCustom
		}

		template, err = s.templates.Create(ctx, req.Session, &models.WorkflowTemplate{
			Name:     req.Name,
			Type:     kind,
			IsActive: true,
		})
	}

	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &session{
		id:         uuid.New().String(),
		templateID: template.ID,
		user:       req.Session,
		readOnly:   req.ReadOnly,
		openedAt:   now,
		lastUsed:   now,
	}

	sess.editor, err = editor.Load(template,
		editor.WithReadOnly(req.ReadOnly),
		editor.WithLoadPolicy(s.config.LoadPolicy),
		editor.WithEdgePolicies(policies...),
		editor.WithSession(req.Session),
		editor.WithHistoryLimit(s.config.HistoryLimit),
		editor.WithLogger(s.logger.With("session_id", sess.id)),
		editor.WithOnSave(func(ctx context.Context, template *models.WorkflowTemplate) error {
			return s.templates.SaveGraph(ctx, req.Session, template)
		}),
		editor.WithOnExport(func(ctx context.Context) error {
			return s.publishExport(ctx, sess)
		}),
	)
	if err != nil {
		return nil, NewValidationError("Open", "INVALID_TEMPLATE", err.Error(), err)
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session opened",
		"session_id", sess.id, "template_id", template.ID, "user_id", req.Session.UserID, "read_only", req.ReadOnly)

	event := events.SessionOpened{
		BaseEvent: events.NewBaseEvent(events.SessionOpenedEvent, template.ID),
		SessionID: sess.id,
		ReadOnly:  req.ReadOnly,
	}
	event.UserID = req.Session.UserID
	publishEvent(ctx, s.logger, s.eventBus, template.ID, event)

	info := sess.info()

	return &info, nil
}

func (s *Sessions) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errSessionNotFound("Session", id)
	}

	return sess, nil
}

func errSessionNotFound(op, id string) error {
	return &ServiceError{Op: op, Code: "SESSION_NOT_FOUND", Message: "session " + id + " not found", Err: ErrSessionNotFound}
}

func (s *Sessions) Get(id string) (*SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.ended {
		return nil, errSessionNotFound("Session", id)
	}

	info := sess.info()

	return &info, nil
}

// List returns the open sessions, optionally only those on templateID.
func (s *Sessions) List(templateID string) []SessionInfo {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))

	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(all))

	for _, sess := range all {
		sess.mu.Lock()
		info := sess.info()
		sess.mu.Unlock()

		if templateID == "" || info.TemplateID == templateID {
			out = append(out, info)
		}
	}

	return out
}

// With runs fn against the session's editor while holding the session lock,
// and marks the session as used.
func (s *Sessions) With(ctx context.Context, id string, fn func(ctx context.Context, ed *editor.Editor) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Close or Reap may have won the race between lookup and Lock.
	if sess.ended {
		return errSessionNotFound("Session", id)
	}

	sess.lastUsed = s.now()

	return fn(ctx, sess.editor)
}

// Mutate is With for calls that change the graph: read-only sessions are
// refused with ErrReadOnlySession instead of running fn.
func (s *Sessions) Mutate(ctx context.Context, id string, fn func(ctx context.Context, ed *editor.Editor) error) error {
	return s.With(ctx, id, func(ctx context.Context, ed *editor.Editor) error {
		if ed.ReadOnly() {
			return &ServiceError{Op: "Mutate", Code: "READ_ONLY", Message: "session " + id + " is read-only", Err: ErrReadOnlySession}
		}

		return fn(ctx, ed)
	})
}

func (s *Sessions) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return errSessionNotFound("Close", id)
	}

	sess.mu.Lock()
	sess.ended = true
	sess.mu.Unlock()

	s.closed(ctx, sess, events.CloseReasonClosed)

	return nil
}

// Reap closes sessions idle for longer than the TTL at now. Sessions busy
// in With are skipped. It returns the number of sessions closed.
func (s *Sessions) Reap(ctx context.Context, now time.Time) int {
	var expired []*session

	s.mu.Lock()

	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}

		if now.Sub(sess.lastUsed) > s.config.TTL {
			delete(s.sessions, id)
			sess.ended = true
			expired = append(expired, sess)
		}

		sess.mu.Unlock()
	}

	s.mu.Unlock()

	for _, sess := range expired {
		s.closed(ctx, sess, events.CloseReasonExpired)
	}

	return len(expired)
}

// Start runs the reaper on the configured schedule until Stop.
func (s *Sessions) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(s.config.ReapSchedule, func() {
		if n := s.Reap(ctx, s.now()); n > 0 {
			s.logger.InfoContext(ctx, "reaped idle sessions", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reap schedule %q: %w", s.config.ReapSchedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.InfoContext(ctx, "session reaper started", "schedule", s.config.ReapSchedule, "ttl", s.config.TTL)

	return nil
}

// Stop halts the reaper and waits for a running reap to finish.
func (s *Sessions) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Sessions) closed(ctx context.Context, sess *session, reason string) {
	s.logger.InfoContext(ctx, "session closed", "session_id", sess.id, "template_id", sess.templateID, "reason", reason)

	event := events.SessionClosed{
		BaseEvent: events.NewBaseEvent(events.SessionClosedEvent, sess.templateID),
		SessionID: sess.id,
		Reason:    reason,
	}
	event.UserID = sess.user.UserID
	publishEvent(ctx, s.logger, s.eventBus, sess.templateID, event)
}

type exportFormatKey struct{}

// WithExportFormat sets the document format used by the export-requested
// event for calls made with ctx.
func WithExportFormat(ctx context.Context, format exchange.Format) context.Context {
	return context.WithValue(ctx, exportFormatKey{}, format)
}

func exportFormat(ctx context.Context) exchange.Format {
	if format, ok := ctx.Value(exportFormatKey{}).(exchange.Format); ok {
		return format
	}

	return exchange.FormatJSON
}

// publishExport runs inside With, so the editor is already locked.
func (s *Sessions) publishExport(ctx context.Context, sess *session) error {
	template := sess.editor.Template()
	format := exportFormat(ctx)

	document, err := exchange.Encode(template, format)
	if err != nil {
		return err
	}

	event := events.TemplateExportRequested{
		BaseEvent: events.NewBaseEvent(events.TemplateExportRequestedEvent, template.ID),
		SessionID: sess.id,
		Format:    string(format),
		Version:   template.Version,
		Document:  string(document),
	}
	event.UserID = sess.user.UserID

	if s.eventBus == nil {
		return nil
	}

	if err := s.eventBus.Publish(ctx, template.ID, event); err != nil {
		return fmt.Errorf("failed to publish export request: %w", err)
	}

	return nil
}

func (sess *session) info() SessionInfo {
	return SessionInfo{
		ID:         sess.id,
		TemplateID: sess.templateID,
		User:       sess.user,
		ReadOnly:   sess.readOnly,
		OpenedAt:   sess.openedAt,
		LastUsed:   sess.lastUsed,
	}
}

// IsSessionNotFound reports whether err means the session does not exist.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
