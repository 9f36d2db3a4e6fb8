// Package persistence provides the data storage abstraction layer for workflow templates.
package persistence

import (
	"context"

	"github.com/dukex/flowdesk/pkg/models"
)

type Persistence interface {
	TemplateRepository() TemplateRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// TemplateRepository stores workflow templates. GetByID and Delete return an
// error matching ErrTemplateNotFound for unknown ids.
type TemplateRepository interface {
	GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	Save(ctx context.Context, template *models.WorkflowTemplate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListTemplatesOptions) (*TemplateListResult, error)
}
