// Package events defines the notifications published when templates and
// editor sessions change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic every flowdesk event is published on.
const Topic = "flowdesk.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Template lifecycle events.
	TemplateSavedEvent           EventType = "template.saved"
	TemplateDeletedEvent         EventType = "template.deleted"
	TemplateExportRequestedEvent EventType = "template.export_requested"

	// Editor session events.
	SessionOpenedEvent EventType = "session.opened"
	SessionClosedEvent EventType = "session.closed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TemplateID string         `json:"template_id"`
	UserID     string         `json:"user_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, templateID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TemplateID: templateID,
		Metadata:   make(map[string]any),
	}
}

// TemplateSaved is published after a template version is persisted.
type TemplateSaved struct {
	BaseEvent

	Name      string `json:"name"`
	Version   int    `json:"version"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Created   bool   `json:"created"`
}

func (e TemplateSaved) GetType() EventType {
	return TemplateSavedEvent
}

type TemplateDeleted struct {
	BaseEvent
}

func (e TemplateDeleted) GetType() EventType {
	return TemplateDeletedEvent
}

// TemplateExportRequested asks downstream consumers to serialise a template
// as the editor currently holds it.
type TemplateExportRequested struct {
	BaseEvent

	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Version   int    `json:"version"`
	Document  string `json:"document"`
}

func (e TemplateExportRequested) GetType() EventType {
	return TemplateExportRequestedEvent
}

type SessionOpened struct {
	BaseEvent

	SessionID string `json:"session_id"`
	ReadOnly  bool   `json:"read_only"`
}

func (e SessionOpened) GetType() EventType {
	return SessionOpenedEvent
}

// SessionClosed is published when a session is closed explicitly or reaped.
type SessionClosed struct {
	BaseEvent

	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

func (e SessionClosed) GetType() EventType {
	return SessionClosedEvent
}

// Session close reasons.
const (
	CloseReasonClosed  = "closed"
	CloseReasonExpired = "expired"
)

// New returns an empty value for eventType, ready to be unmarshalled into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case TemplateSavedEvent:
		return &TemplateSaved{}, true
	case TemplateDeletedEvent:
		return &TemplateDeleted{}, true
	case TemplateExportRequestedEvent:
		return &TemplateExportRequested{}, true
	case SessionOpenedEvent:
		return &SessionOpened{}, true
	case SessionClosedEvent:
		return &SessionClosed{}, true
	default:
		return nil, false
	}
}
