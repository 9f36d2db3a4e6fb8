package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/persistence"
	"github.com/dukex/flowdesk/pkg/persistence/persistencetest"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	// Test with regular path
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	t.Parallel()

	p := NewPersistence("./test-data")
	assert.NoError(t, p.Close(t.Context()))
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.ErrorIs(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestTemplateRepository(t *testing.T) {
	t.Parallel()

	persistencetest.RunTemplateRepositoryTests(t, func(t *testing.T) persistence.Persistence {
		t.Helper()

		return NewPersistence(t.TempDir())
	})
}

func TestTemplateRepository_FileLayout(t *testing.T) {
	t.Parallel()

	testDir := t.TempDir()
	repo := NewTemplateRepository(testDir)

	tpl := testutil.CreateTestTemplate()
	require.NoError(t, repo.Save(t.Context(), tpl))

	assert.FileExists(t, filepath.Join(testDir, "templates", tpl.ID+".json"))
	assert.NoFileExists(t, filepath.Join(testDir, "templates", tpl.ID+".json.tmp"))
}

func TestTemplateRepository_RejectsPathIDs(t *testing.T) {
	t.Parallel()

	repo := NewTemplateRepository(t.TempDir())

	tpl := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) { tpl.ID = "../escape" })
	assert.Error(t, repo.Save(t.Context(), tpl))

	_, err := repo.GetByID(t.Context(), "../../etc/passwd")
	assert.True(t, persistence.IsTemplateNotFound(err))
}
