// Package redis provides Redis persistence for workflow templates.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "flowdesk:template:"
	indexKey  = "flowdesk:templates"
)

// Persistence implements persistence.Persistence over a Redis server.
type Persistence struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	templateRepo *TemplateRepository
}

// NewPersistence connects to the server named by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &Persistence{
		client:       client,
		logger:       logger,
		templateRepo: &TemplateRepository{client: client},
	}, nil
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// TemplateRepository keeps each template as a JSON string and the set of ids
// in an index set.
type TemplateRepository struct {
	client redis.UniversalClient
}

func (r *TemplateRepository) GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read template index: %w", err)
	}

	templates := make([]*models.WorkflowTemplate, 0, len(ids))
	if len(ids) == 0 {
		return templates, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a value; skip it.
			continue
		}

		var template models.WorkflowTemplate
		if err := json.Unmarshal([]byte(raw), &template); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template %s: %w", ids[i], err)
		}

		templates = append(templates, &template)
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch template %s: %w", id, err)
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}

	return &template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.WorkflowTemplate) error {
	data, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", template.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+template.ID, data, 0)
		pipe.SAdd(ctx, indexKey, template.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keyPrefix+id)
		pipe.SRem(ctx, indexKey, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

func (r *TemplateRepository) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return persistence.ListInMemory(all, opts)
}
