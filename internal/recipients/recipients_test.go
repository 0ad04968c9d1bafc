package recipients

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullMapping(t *testing.T) {
	path := writeBook(t, `{
		"to": {"fiu@bank": ["team@bank.example"], "fiu@lender": ["ops@lender.example"]},
		"cc": {"fiu@bank": ["lead@bank.example"], "default": ["reports@example.com"]}
	}`)

	b, err := Load(path)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"fiu@bank", "fiu@lender"}, b.Entities())

	to, cc := b.For("fiu@bank")
	require.Equal(t, []string{"team@bank.example"}, to)
	require.Equal(t, []string{"lead@bank.example"}, cc)

	// Unmapped CC falls back to the file default.
	_, cc = b.For("fiu@lender")
	require.Equal(t, []string{"reports@example.com"}, cc)
}

func TestFor_BuiltInDefaultCC(t *testing.T) {
	path := writeBook(t, `{"to": {"fiu@bank": ["team@bank.example"]}}`)
	b, err := Load(path)
	require.NoError(t, err)

	_, cc := b.For("fiu@bank")
	require.Equal(t, DefaultCC, cc)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	_, err = Load(writeBook(t, "{not json"))
	require.Error(t, err)
}
