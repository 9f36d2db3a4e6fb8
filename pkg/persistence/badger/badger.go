// Package badger provides embedded key-value persistence for workflow templates
// on top of BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	json "github.com/goccy/go-json"
)

const (
	templatePrefix = "template:"
	inMemory       = "memory"
)

// Persistence implements persistence.Persistence over a BadgerDB instance.
type Persistence struct {
	db           *badgerdb.DB
	templateRepo *TemplateRepository
}

// NewPersistence opens the database named by a badger:// URL. badger://memory
// keeps everything in memory.
func NewPersistence(logger *slog.Logger, databaseURL string) (*Persistence, error) {
	dir := strings.TrimPrefix(databaseURL, "badger://")

	opts := badgerdb.DefaultOptions(dir)
	if dir == inMemory || dir == "" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.WithLogger(&slogAdapter{logger: logger}).WithLoggingLevel(badgerdb.WARNING)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Persistence{db: db, templateRepo: &TemplateRepository{db: db}}, nil
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

// HealthCheck fails once the database has been closed.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if p.db.IsClosed() {
		return errors.New("badger database is closed")
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	return nil
}

// TemplateRepository stores each template as JSON under template:<id>.
type TemplateRepository struct {
	db *badgerdb.DB
}

func templateKey(id string) []byte {
	return []byte(templatePrefix + id)
}

func (r *TemplateRepository) GetAll(_ context.Context) ([]*models.WorkflowTemplate, error) {
	templates := make([]*models.WorkflowTemplate, 0)

	err := r.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(templatePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var template models.WorkflowTemplate

			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &template)
			})
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}

			templates = append(templates, &template)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan templates: %w", err)
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate

	err := r.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(templateKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &template)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch template %s: %w", id, err)
	}

	return &template, nil
}

func (r *TemplateRepository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	data, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", template.ID, err)
	}

	err = r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(templateKey(template.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	err := r.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(templateKey(id)); err != nil {
			return err
		}

		return txn.Delete(templateKey(id))
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
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

// slogAdapter routes badger's printf-style logs into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
