package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func writeDocument(t *testing.T, dir, name string, template *models.WorkflowTemplate, format exchange.Format) string {
	t.Helper()

	data, err := exchange.Encode(template, format)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		path    string
		want    exchange.Format
		wantErr bool
	}{
		{name: "yaml extension", path: "a.yaml", want: exchange.FormatYAML},
		{name: "yml extension", path: "a.yml", want: exchange.FormatYAML},
		{name: "json extension", path: "a.json", want: exchange.FormatJSON},
		{name: "flag wins", flag: "yaml", path: "a.json", want: exchange.FormatYAML},
		{name: "unknown extension", path: "a.xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := formatFor(tt.flag, tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, exchange.ErrUnknownFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	valid := writeDocument(t, dir, "valid.yaml", testutil.CreateTestTemplate(), exchange.FormatYAML)
	require.NoError(t, validateFile("", valid))

	dangling := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) {
		tpl.Edges = append(tpl.Edges, &models.WorkflowEdge{ID: "ghost", Source: "review", Target: "nowhere"})
	})
	broken := writeDocument(t, dir, "broken.json", dangling, exchange.FormatJSON)
	require.Error(t, validateFile("", broken))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{"name": 3}`), 0o600))
	require.ErrorIs(t, validateFile("", garbage), exchange.ErrInvalidDocument)
}

func TestImportExportCommands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	databaseURL := "file://" + filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	source := writeDocument(t, dir, "onboarding.yaml", testutil.CreateTestTemplate(), exchange.FormatYAML)

	run := func(args ...string) (string, error) {
		var out bytes.Buffer

		root := &cli.Command{
			Name:     "flowdesk",
			Writer:   &out,
			Commands: []*cli.Command{NewImportCommand(), NewListCommand()},
		}

		err := root.Run(context.Background(), append([]string{"flowdesk"}, args...))

		return out.String(), err
	}

	out, err := run("import", "--database-url", databaseURL, "--owner", "hr-1", source)
	require.NoError(t, err)
	assert.Contains(t, out, `Imported "Test Onboarding"`)

	out, err = run("list", "--database-url", databaseURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Onboarding")
	assert.Contains(t, out, "onboarding")
}
