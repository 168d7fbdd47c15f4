package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/storage/localfs"
)

func newPickerFixture(t *testing.T, templates map[string]string) (*Picker, *localfs.Provider) {
	t.Helper()

	root := t.TempDir()
	if templates != nil {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "templates"), 0755))
		for name, body := range templates {
			require.NoError(t, os.WriteFile(filepath.Join(root, "templates", name), []byte(body), 0644))
		}
	}

	provider, err := localfs.NewProvider(root, arbor.NewLogger())
	require.NoError(t, err)

	picker := NewPicker(common.TemplatesConfig{FolderName: "templates", DefaultName: "standard.md"}, arbor.NewLogger())
	return picker, provider
}

func TestPickerPreferredMatchIsCaseInsensitive(t *testing.T) {
	picker, provider := newPickerFixture(t, map[string]string{
		"standard.md": "# Standard",
		"Zettel.md":   "# Zettel",
	})

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "zettel")
	require.NoError(t, err)
	assert.Equal(t, "Zettel", sel.Name)
	assert.Equal(t, "# Zettel", sel.Body)
	assert.Equal(t, "preferred", sel.Source)
	assert.True(t, sel.PreferredHonored("zettel"))
}

func TestPickerPreferredWithExtension(t *testing.T) {
	picker, provider := newPickerFixture(t, map[string]string{
		"standard.md": "# Standard",
		"notes.md":    "# Notes",
	})

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "notes", sel.Name)
	assert.Equal(t, "preferred", sel.Source)
}

func TestPickerFallsBackToDefault(t *testing.T) {
	picker, provider := newPickerFixture(t, map[string]string{
		"standard.md": "# Standard",
		"other.md":    "# Other",
	})

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "missing")
	require.NoError(t, err)
	assert.Equal(t, "standard", sel.Name)
	assert.Equal(t, "default", sel.Source)
	assert.False(t, sel.PreferredHonored("missing"))
}

func TestPickerFallsBackToFirstTemplate(t *testing.T) {
	picker, provider := newPickerFixture(t, map[string]string{
		"zettel.md": "# Zettel",
		"aaa.md":    "# AAA",
	})

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "")
	require.NoError(t, err)
	assert.Equal(t, "aaa", sel.Name)
	assert.Equal(t, "first", sel.Source)
}

func TestPickerBuiltinWhenFolderEmpty(t *testing.T) {
	picker, provider := newPickerFixture(t, nil)

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "anything")
	require.NoError(t, err)
	assert.Equal(t, "builtin", sel.Source)
	assert.Equal(t, "standard", sel.Name)
	assert.Contains(t, sel.Body, "shortTitle:")

	// The folder was created on the way through
	item, err := provider.GetItemByID(context.Background(), "templates")
	require.NoError(t, err)
	assert.True(t, item.IsFolder)
}

func TestPickerIgnoresNonMarkdownFiles(t *testing.T) {
	picker, provider := newPickerFixture(t, map[string]string{
		"readme.txt": "not a template",
	})

	sel, err := picker.Pick(context.Background(), provider, localfs.RootID, "")
	require.NoError(t, err)
	assert.Equal(t, "builtin", sel.Source)
}
