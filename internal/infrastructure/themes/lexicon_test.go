package themes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLexiconFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "themes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLexiconLoad(t *testing.T) {
	path := writeLexiconFile(t, `
themes:
  justice:
    - justice
    - law
    - fairness
  memory:
    - memory
    - remembrance
`)
	lexicon, err := NewLexicon(path)
	require.NoError(t, err)

	themes := lexicon.Themes()
	require.Len(t, themes, 2)
	require.Equal(t, []string{"fairness", "justice", "law"}, themes["justice"])
	require.Equal(t, []string{"fairness", "justice", "law", "memory", "remembrance"}, lexicon.Keywords())
}

func TestLexiconNormalizesCase(t *testing.T) {
	path := writeLexiconFile(t, `
themes:
  Justice:
    - " Law "
    - JUSTICE
`)
	lexicon, err := NewLexicon(path)
	require.NoError(t, err)
	require.Equal(t, []string{"justice", "law"}, lexicon.Themes()["justice"])
}

func TestLexiconRejectsEmptyThemes(t *testing.T) {
	path := writeLexiconFile(t, "themes: {}\n")
	_, err := NewLexicon(path)
	require.Error(t, err)
}

func TestLexiconRejectsThemeWithoutKeywords(t *testing.T) {
	path := writeLexiconFile(t, `
themes:
  justice: []
`)
	_, err := NewLexicon(path)
	require.Error(t, err)
}

func TestLexiconReloadSwapsAtomically(t *testing.T) {
	path := writeLexiconFile(t, `
themes:
  justice:
    - justice
`)
	lexicon, err := NewLexicon(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
themes:
  nature:
    - nature
    - wilderness
`), 0o600))
	require.NoError(t, lexicon.Reload())
	require.Equal(t, []string{"nature", "wilderness"}, lexicon.Keywords())

	// A broken rewrite must keep the previous snapshot intact.
	require.NoError(t, os.WriteFile(path, []byte("themes: {}\n"), 0o600))
	require.Error(t, lexicon.Reload())
	require.Equal(t, []string{"nature", "wilderness"}, lexicon.Keywords())
}

func TestLexiconMissingFile(t *testing.T) {
	_, err := NewLexicon(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
