package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/eventbus"
	"github.com/dukex/flowdesk/pkg/events"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/otelhelper"
	"github.com/dukex/flowdesk/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Template manages stored workflow templates.
type Template struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
	writes      *keyedMutex // Per template id, around read-modify-write
}

// NewTemplate creates a template service. eventBus and tracer may be nil.
func NewTemplate(
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Template {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Template{
		persistence: persistence,
		eventBus:    eventBus,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		tracer:      tracer,
		logger:      logger.With("module", "template_service"),
		now:         func() time.Time { return time.Now().UTC() },
		writes:      newKeyedMutex(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Template) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListTemplatesRequest contains options for listing templates.
type ListTemplatesRequest struct {
	// Pagination
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	// Filtering
	Type   models.TemplateType `validate:"omitempty,oneof=onboarding offboarding promotion custom"`
	Owner  string
	Active *bool

	// Sorting
	SortBy    string `validate:"omitempty,oneof=created_at updated_at name"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
}

// ListTemplatesResponse contains the result of listing templates.
type ListTemplatesResponse struct {
	Templates   []*models.WorkflowTemplate `json:"templates"`
	TotalCount  int64                      `json:"total_count"`
	HasNextPage bool                       `json:"has_next_page"`
}

// List retrieves templates with filtering, sorting, and pagination.
func (s *Template) List(ctx context.Context, req ListTemplatesRequest) (*ListTemplatesResponse, error) {
	req.SortOrder = strings.ToLower(req.SortOrder)
	req.Owner = strings.TrimSpace(req.Owner)

	if err := s.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			switch fieldErrs[0].Field() {
			case "SortBy":
				return nil, NewValidationError("List", "INVALID_SORT_FIELD",
					fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, name", req.SortBy),
					ErrInvalidSortField)
			case "SortOrder":
				return nil, NewValidationError("List", "INVALID_SORT_ORDER",
					fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
					ErrInvalidSortOrder)
			}
		}

		return nil, NewValidationError("List", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	result, err := s.persistence.TemplateRepository().List(ctx, persistence.ListTemplatesOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Type:      req.Type,
		Owner:     req.Owner,
		Active:    req.Active,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSort) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return &ListTemplatesResponse{
		Templates:   result.Templates,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// FetchByID retrieves a template by its ID.
func (s *Template) FetchByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return s.persistence.TemplateRepository().GetByID(ctx, id)
}

// Create stores a new template. Missing ids are generated; the graph must
// reference only nodes it contains.
func (s *Template) Create(
	ctx context.Context,
	session models.SessionContext,
	template *models.WorkflowTemplate,
) (*models.WorkflowTemplate, error) {
	if template == nil {
		return nil, ErrTemplateNil
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "template.create",
		attribute.String(otelhelper.UserIDKey, session.UserID))
	defer span.End()

	template = template.Clone()

	if template.ID == "" {
		template.ID = uuid.New().String()
	}

	unlock := s.writes.Lock(template.ID)
	defer unlock()

	if _, err := s.persistence.TemplateRepository().GetByID(ctx, template.ID); err == nil {
		return nil, &ServiceError{Op: "Create", Code: "TEMPLATE_EXISTS", Err: ErrTemplateExists}
	} else if !persistence.IsTemplateNotFound(err) {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TemplateIDKey, template.ID))

	if template.Nodes == nil {
		template.Nodes = []*models.WorkflowNode{}
	}

	if template.Edges == nil {
		template.Edges = []*models.WorkflowEdge{}
	}

	if err := s.validate("Create", template); err != nil {
		return nil, err
	}

	now := s.now()
	template.CreatedAt = now
	template.UpdatedAt = now
	template.UpdatedBy = session.UserID

	if template.Version == 0 {
		template.Version = 1
	}

	if template.Owner == "" {
		template.Owner = session.UserID
	}

	if err := s.persistence.TemplateRepository().Save(ctx, template); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.publishSaved(ctx, session, template, true)

	return template, nil
}

// UpdateTemplateRequest patches template attributes. Nil fields are left
// unchanged; Metadata is merged into the stored metadata.
type UpdateTemplateRequest struct {
	Name        *string              `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string              `json:"description,omitempty"`
	Type        *models.TemplateType `json:"type,omitempty"        validate:"omitempty,oneof=onboarding offboarding promotion custom"`
	IsActive    *bool                `json:"is_active,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
}

// Update applies req to the stored template and bumps its version.
func (s *Template) Update(
	ctx context.Context,
	session models.SessionContext,
	id string,
	req UpdateTemplateRequest,
) (*models.WorkflowTemplate, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "template.update",
		attribute.String(otelhelper.TemplateIDKey, id))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("Update", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	unlock := s.writes.Lock(id)
	defer unlock()

	template, err := s.persistence.TemplateRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		template.Name = *req.Name
	}

	if req.Description != nil {
		template.Description = *req.Description
	}

	if req.Type != nil {
		template.Type = *req.Type
	}

	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if req.Metadata != nil {
		if template.Metadata == nil {
			template.Metadata = map[string]any{}
		}

		if err := mergo.Merge(&template.Metadata, req.Metadata, mergo.WithOverride); err != nil {
			return nil, NewValidationError("Update", "INVALID_METADATA", err.Error(), ErrInvalidRequest)
		}
	}

	template.Version++
	template.UpdatedAt = s.now()
	template.UpdatedBy = session.UserID

	if err := s.persistence.TemplateRepository().Save(ctx, template); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to update template: %w", err)
	}

	s.publishSaved(ctx, session, template, false)

	return template, nil
}

// SaveGraph stores a template produced by an editor save. template.Version
// must be exactly one past the stored version; a template that does not exist
// yet is accepted only as version 1.
func (s *Template) SaveGraph(
	ctx context.Context,
	session models.SessionContext,
	template *models.WorkflowTemplate,
) error {
	if template == nil {
		return ErrTemplateNil
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "template.save_graph",
		attribute.String(otelhelper.TemplateIDKey, template.ID),
		attribute.Int(otelhelper.TemplateVersionKey, template.Version))
	defer span.End()

	if template.ID == "" {
		return NewValidationError("SaveGraph", "MISSING_ID", "template id is required", ErrInvalidRequest)
	}

	unlock := s.writes.Lock(template.ID)
	defer unlock()

	created := false

	stored, err := s.persistence.TemplateRepository().GetByID(ctx, template.ID)

	switch {
	case persistence.IsTemplateNotFound(err):
		if template.Version != 1 {
			return err
		}

		created = true
	case err != nil:
		otelhelper.SetError(span, err)

		return err
	case stored.Version != template.Version-1:
		return &ServiceError{
			Op:      "SaveGraph",
			Code:    "VERSION_CONFLICT",
			Message: fmt.Sprintf("stored version is %d, editor saved from %d", stored.Version, template.Version-1),
			Err:     ErrVersionConflict,
		}
	default:
		template.CreatedAt = stored.CreatedAt
		template.Owner = stored.Owner
	}

	if err := s.validate("SaveGraph", template); err != nil {
		return err
	}

	if err := s.persistence.TemplateRepository().Save(ctx, template); err != nil {
		otelhelper.SetError(span, err)

		if errors.Is(err, persistence.ErrVersionConflict) {
			return &ServiceError{Op: "SaveGraph", Code: "VERSION_CONFLICT", Message: err.Error(), Err: ErrVersionConflict}
		}

		return fmt.Errorf("failed to save template graph: %w", err)
	}

	s.logger.InfoContext(ctx, "template graph saved",
		"template_id", template.ID, "version", template.Version, "user_id", session.UserID)
	s.publishSaved(ctx, session, template, created)

	return nil
}

// Delete removes a template.
func (s *Template) Delete(ctx context.Context, session models.SessionContext, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "template.delete",
		attribute.String(otelhelper.TemplateIDKey, id))
	defer span.End()

	if err := s.persistence.TemplateRepository().Delete(ctx, id); err != nil {
		return err
	}

	event := events.TemplateDeleted{BaseEvent: events.NewBaseEvent(events.TemplateDeletedEvent, id)}
	event.UserID = session.UserID
	s.publish(ctx, id, event)

	return nil
}

// Import decodes a template document and stores it as a new template.
func (s *Template) Import(
	ctx context.Context,
	session models.SessionContext,
	data []byte,
	format exchange.Format,
) (*models.WorkflowTemplate, error) {
	template, err := exchange.Decode(data, format)
	if err != nil {
		return nil, NewValidationError("Import", "INVALID_DOCUMENT", err.Error(), err)
	}

	template.ID = ""
	template.Version = 0
	template.Owner = ""

	return s.Create(ctx, session, template)
}

// Export encodes a stored template.
func (s *Template) Export(ctx context.Context, id string, format exchange.Format) ([]byte, error) {
	_, span := otelhelper.StartSpan(ctx, s.tracer, "template.export",
		attribute.String(otelhelper.TemplateIDKey, id),
		attribute.String(otelhelper.ExportFormatKey, string(format)))
	defer span.End()

	template, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return exchange.Encode(template, format)
}

// validate checks struct tags and graph integrity.
func (s *Template) validate(op string, template *models.WorkflowTemplate) error {
	if err := s.validator.Struct(template); err != nil {
		return NewValidationError(op, "INVALID_TEMPLATE", err.Error(), ErrInvalidRequest)
	}

	if _, err := editor.Load(template, editor.WithLoadPolicy(editor.LoadStrict)); err != nil {
		return NewValidationError(op, "INVALID_GRAPH", err.Error(), fmt.Errorf("%w: %w", ErrInvalidGraph, err))
	}

	return nil
}

func (s *Template) publishSaved(
	ctx context.Context,
	session models.SessionContext,
	template *models.WorkflowTemplate,
	created bool,
) {
	event := events.TemplateSaved{
		BaseEvent: events.NewBaseEvent(events.TemplateSavedEvent, template.ID),
		Name:      template.Name,
		Version:   template.Version,
		NodeCount: len(template.Nodes),
		EdgeCount: len(template.Edges),
		Created:   created,
	}
	event.UserID = session.UserID

	s.publish(ctx, template.ID, event)
}

func (s *Template) publish(ctx context.Context, key string, event eventbus.Event) {
	publishEvent(ctx, s.logger, s.eventBus, key, event)
}

// publishEvent logs and drops bus failures; a stored change is not rolled
// back because a notification could not be sent.
func publishEvent(ctx context.Context, logger *slog.Logger, bus eventbus.EventPublisher, key string, event eventbus.Event) {
	if bus == nil {
		return
	}

	if err := bus.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}
