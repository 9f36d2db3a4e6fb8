package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	json "github.com/goccy/go-json"
)

const templatesDir = "templates"

// TemplateRepository stores one JSON file per template under <root>/templates.
type TemplateRepository struct {
	root string
	mu   sync.RWMutex
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{root: root}
}

func (tr *TemplateRepository) dir() string {
	return path.Join(tr.root, templatesDir)
}

// filePath rejects ids that would escape the templates directory.
func (tr *TemplateRepository) filePath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid template id %q", id)
	}

	return filepath.Clean(path.Join(tr.dir(), id+".json")), nil
}

// GetAll returns every stored template.
func (tr *TemplateRepository) GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(tr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.WorkflowTemplate, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		templateID := strings.TrimSuffix(file, ".json")

		template, err := tr.read(templateID)
		if err != nil {
			if persistence.IsTemplateNotFound(err) {
				continue
			}

			return nil, err
		}

		templates = append(templates, template)
	}

	return templates, nil
}

// GetByID retrieves a template by its ID from the file system.
func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	return tr.read(id)
}

func (tr *TemplateRepository) read(id string) (*models.WorkflowTemplate, error) {
	filePath, err := tr.filePath(id)
	if err != nil {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to fetch template %s: %w", id, err)
	}

	var template models.WorkflowTemplate

	if err := json.Unmarshal(body, &template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}

	return &template, nil
}

// Save writes the template atomically through a temporary file.
func (tr *TemplateRepository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	filePath, err := tr.filePath(template.ID)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if err := os.MkdirAll(tr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", template.ID, err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write template %s: %w", template.ID, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to replace template %s: %w", template.ID, err)
	}

	return nil
}

// Delete removes a template by its ID.
func (tr *TemplateRepository) Delete(_ context.Context, id string) error {
	filePath, err := tr.filePath(id)
	if err != nil {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	err = os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	return nil
}

// List returns paginated and filtered templates with in-memory operations.
func (tr *TemplateRepository) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	all, err := tr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return persistence.ListInMemory(all, opts)
}
