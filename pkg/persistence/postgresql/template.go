package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	json "github.com/goccy/go-json"
)

const selectTemplate = `
	SELECT
		id
	  , name
	  , description
	  , template_type
	  , nodes
	  , edges
	  , version
	  , is_active
	  , owner
	  , updated_by
	  , metadata
	  , created_at
	  , updated_at
	FROM workflow_templates
`

// TemplateRepository handles template-related database operations. Nodes and
// edges are stored as JSONB documents on the template row.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TemplateRepository) scanTemplate(row rowScanner) (*models.WorkflowTemplate, error) {
	var (
		template                  models.WorkflowTemplate
		nodes, edges, metadataRaw []byte
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Type,
		&nodes,
		&edges,
		&template.Version,
		&template.IsActive,
		&template.Owner,
		&template.UpdatedBy,
		&metadataRaw,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &template.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &template.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &template.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	template.CreatedAt = template.CreatedAt.UTC()
	template.UpdatedAt = template.UpdatedAt.UTC()

	return &template, nil
}

func (r *TemplateRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	templates := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := r.scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// GetAll returns all templates from the database.
func (r *TemplateRepository) GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return r.query(ctx, selectTemplate+" ORDER BY created_at DESC, id")
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	row := r.db.QueryRowContext(ctx, selectTemplate+" WHERE id = $1", id)

	template, err := r.scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return template, nil
}

// Save upserts a template row.
func (r *TemplateRepository) Save(ctx context.Context, template *models.WorkflowTemplate) error {
	nodes := template.Nodes
	if nodes == nil {
		nodes = []*models.WorkflowNode{}
	}

	edges := template.Edges
	if edges == nil {
		edges = []*models.WorkflowEdge{}
	}

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	// JSONB parameters go over the wire as text.
	var metadataJSON any
	if template.Metadata != nil {
		raw, err := json.Marshal(template.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		metadataJSON = string(raw)
	}

	upsert := `
		INSERT INTO workflow_templates (id, name, description, template_type, nodes, edges,
version, is_active, owner, updated_by, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			template_type = EXCLUDED.template_type,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			version = EXCLUDED.version,
			is_active = EXCLUDED.is_active,
			owner = EXCLUDED.owner,
			updated_by = EXCLUDED.updated_by,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		WHERE workflow_templates.version = EXCLUDED.version - 1
	`

	result, err := r.db.ExecContext(ctx, upsert,
		template.ID,
		template.Name,
		template.Description,
		template.Type,
		string(nodesJSON),
		string(edgesJSON),
		template.Version,
		template.IsActive,
		template.Owner,
		template.UpdatedBy,
		metadataJSON,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("Save", template.ID, persistence.ErrVersionConflict)
	}

	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
}

// List filters, sorts and pages templates in SQL.
func (r *TemplateRepository) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)

	where := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}

	if opts.Type != "" {
		where("template_type", opts.Type)
	}

	if opts.Owner != "" {
		where("owner", opts.Owner)
	}

	if opts.Active != nil {
		where("is_active", *opts.Active)
	}

	filter := ""
	if len(conditions) > 0 {
		filter = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int64

	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_templates"+filter, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	order := "ASC"
	if opts.SortOrder == "desc" {
		order = "DESC"
	}

	query := fmt.Sprintf("%s%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		selectTemplate, filter, sortColumns[opts.SortBy], order, order, len(args)+1, len(args)+2)

	templates, err := r.query(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, err
	}

	return &persistence.TemplateListResult{
		Templates:   templates,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(templates)) < totalCount,
	}, nil
}
