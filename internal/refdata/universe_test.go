package refdata

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUniverse(t *testing.T) {
	path := t.TempDir() + "/universe.txt"
	content := "# liquor\n600519.SH\n000858.SZ\n\n600519.SH\n  601318.SH  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	symbols, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"600519.SH", "000858.SZ", "601318.SH"}, symbols)
}

func TestLoadUniverseEmpty(t *testing.T) {
	path := t.TempDir() + "/universe.txt"
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))

	_, err := LoadUniverse(path)
	assert.Error(t, err)
}

func TestLoadUniverseMissingFile(t *testing.T) {
	_, err := LoadUniverse(t.TempDir() + "/absent.txt")
	assert.Error(t, err)
}
