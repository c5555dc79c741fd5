package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTickerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("# watchlist\nACME\n\n  othr  \n#skip\nTHRD\n"), 0o644))

	tickers, err := readTickerFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "othr", "THRD"}, tickers)
}

func TestReadTickerFile_Missing(t *testing.T) {
	_, err := readTickerFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestDedupeTickers(t *testing.T) {
	got := dedupeTickers([]string{"acme", "ACME", " othr ", "", "THRD", "othr"})
	assert.Equal(t, []string{"ACME", "OTHR", "THRD"}, got)
}
