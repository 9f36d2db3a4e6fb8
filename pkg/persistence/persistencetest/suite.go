// Package persistencetest holds the behaviour every persistence backend must share.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTemplateRepositoryTests exercises a TemplateRepository. newPersistence
// must return an empty store each time it is called.
func RunTemplateRepositoryTests(t *testing.T, newPersistence func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("save and get", func(t *testing.T) {
		repo := newPersistence(t).TemplateRepository()
		ctx := context.Background()

		tpl := testutil.CreateTestTemplate()
		require.NoError(t, repo.Save(ctx, tpl))

		got, err := repo.GetByID(ctx, tpl.ID)
		require.NoError(t, err)
		AssertTemplateEqual(t, tpl, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		repo := newPersistence(t).TemplateRepository()
		ctx := context.Background()

		tpl := testutil.CreateTestTemplate()
		require.NoError(t, repo.Save(ctx, tpl))

		tpl.Name = "Renamed onboarding"
		tpl.Version = 2
		tpl.Nodes = tpl.Nodes[:2]
		tpl.Edges = tpl.Edges[:1]
		require.NoError(t, repo.Save(ctx, tpl))

		got, err := repo.GetByID(ctx, tpl.ID)
		require.NoError(t, err)
		AssertTemplateEqual(t, tpl, got)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newPersistence(t).TemplateRepository()

		_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.True(t, persistence.IsTemplateNotFound(err), "got %v", err)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newPersistence(t).TemplateRepository()
		ctx := context.Background()

		tpl := testutil.CreateTestTemplate()
		require.NoError(t, repo.Save(ctx, tpl))
		require.NoError(t, repo.Delete(ctx, tpl.ID))

		_, err := repo.GetByID(ctx, tpl.ID)
		assert.True(t, persistence.IsTemplateNotFound(err))

		err = repo.Delete(ctx, tpl.ID)
		assert.True(t, persistence.IsTemplateNotFound(err))
	})

	t.Run("list", func(t *testing.T) {
		repo := newPersistence(t).TemplateRepository()
		ctx := context.Background()
		base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		for i, kind := range []models.TemplateType{
			models.TemplateTypeOnboarding,
			models.TemplateTypeOffboarding,
			models.TemplateTypeOnboarding,
		} {
			tpl := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) {
				tpl.Type = kind
				tpl.CreatedAt = base.AddDate(0, 0, i)
				tpl.UpdatedAt = tpl.CreatedAt
			})
			require.NoError(t, repo.Save(ctx, tpl))
		}

		page, err := repo.List(ctx, persistence.ListTemplatesOptions{Type: models.TemplateTypeOnboarding, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.TotalCount)
		assert.True(t, page.HasNextPage)
		require.Len(t, page.Templates, 1)
		assert.True(t, page.Templates[0].CreatedAt.Equal(base.AddDate(0, 0, 2)))

		_, err = repo.List(ctx, persistence.ListTemplatesOptions{SortBy: "nodes"})
		assert.ErrorIs(t, err, persistence.ErrInvalidSort)
	})
}

// AssertTemplateEqual compares templates, treating timestamps as instants.
func AssertTemplateEqual(t *testing.T, want, got *models.WorkflowTemplate) {
	t.Helper()

	require.NotNil(t, got)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.IsActive, got.IsActive)
	assert.Equal(t, want.Owner, got.Owner)
	assert.Equal(t, want.UpdatedBy, got.UpdatedBy)
	assert.Equal(t, want.Metadata, got.Metadata)
	assert.Equal(t, want.Nodes, got.Nodes)
	assert.Equal(t, want.Edges, got.Edges)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", want.UpdatedAt, got.UpdatedAt)
}
