package persistence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dukex/flowdesk/pkg/models"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListTemplatesOptions filters, sorts and pages a template listing.
type ListTemplatesOptions struct {
	Limit     int
	Offset    int
	Type      models.TemplateType
	Owner     string
	Active    *bool
	SortBy    string // created_at, updated_at or name
	SortOrder string // asc or desc
}

// TemplateListResult is one page of templates.
type TemplateListResult struct {
	Templates   []*models.WorkflowTemplate `json:"templates"`
	TotalCount  int64                      `json:"total_count"`
	HasNextPage bool                       `json:"has_next_page"`
}

var allowedSorts = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// Normalize applies defaults and validates sort parameters against the allowlist.
func (o ListTemplatesOptions) Normalize() (ListTemplatesOptions, error) {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	o.SortOrder = strings.ToLower(o.SortOrder)

	if !allowedSorts[o.SortBy] {
		return o, fmt.Errorf("%w: field %q", ErrInvalidSort, o.SortBy)
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return o, fmt.Errorf("%w: order %q", ErrInvalidSort, o.SortOrder)
	}

	return o, nil
}

// Matches reports whether template passes the filters in o.
func (o ListTemplatesOptions) Matches(template *models.WorkflowTemplate) bool {
	if o.Type != "" && template.Type != o.Type {
		return false
	}

	if o.Owner != "" && template.Owner != o.Owner {
		return false
	}

	if o.Active != nil && template.IsActive != *o.Active {
		return false
	}

	return true
}

// ListInMemory filters, sorts and pages templates for backends without a query language.
func ListInMemory(templates []*models.WorkflowTemplate, opts ListTemplatesOptions) (*TemplateListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowTemplate, 0, len(templates))

	for _, template := range templates {
		if opts.Matches(template) {
			filtered = append(filtered, template)
		}
	}

	sortTemplates(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &TemplateListResult{
			Templates:   make([]*models.WorkflowTemplate, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return &TemplateListResult{
		Templates:   filtered[opts.Offset:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(filtered),
	}, nil
}

// sortTemplates sorts templates in-place based on the specified field and order.
// Ties fall back to the id so pages are stable.
func sortTemplates(templates []*models.WorkflowTemplate, sortBy, sortOrder string) {
	sort.SliceStable(templates, func(i, j int) bool {
		a, b := templates[i], templates[j]

		var cmp int

		switch sortBy {
		case "updated_at":
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		case "name":
			cmp = strings.Compare(a.Name, b.Name)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}

		if cmp == 0 {
			cmp = strings.Compare(a.ID, b.ID)
		}

		if sortOrder == "desc" {
			return cmp > 0
		}

		return cmp < 0
	})
}
