package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/infrastructure/sqlite"
)

const recordsJSON = `[
	{"id":"bt-1","name":"Buffalo Trace Bourbon","brand":"Buffalo Trace","price":29.99},
	{"id":"bt-2","name":"Buffalo Trace Bourbon 750ml","brand":"Buffalo Trace","price":29.99,"description":"Vanilla, mint and molasses."},
	{"id":"hg-1","name":"Hendrick's Gin","brand":"Hendrick's","type":"Gin","price":34.99}
]`

func resetFlags() {
	dbPath, verbose = "", false
	importFromCatalog = false
	analyzeInput, analyzeSource, analyzeExportDir, analyzeYAML = "", "", "", false
	applySource, applyConfirm = sourceStore, false
	compareBrandA, compareBrandB = "", ""
	reviewLimit = 50
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecordsFile(t *testing.T) {
	records, err := loadRecordsFile(writeRecords(t, recordsJSON))
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = loadRecordsFile(writeRecords(t, `{"records":[{"id":"a","name":"Weller"}]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Weller", records[0].Name)

	_, err = loadRecordsFile(writeRecords(t, "  "))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = loadRecordsFile(writeRecords(t, "[{"))
	assert.Error(t, err)

	_, err = loadRecordsFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveSource(t *testing.T) {
	_, err := execute(t, "compare", "a", "b")
	require.NoError(t, err)

	src, db, err := resolveSource("", "records.json")
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, fileSource{}, src)

	_, _, err = resolveSource(sourceFile, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, _, err = resolveSource("ftp", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	cfg.Catalog.BaseURL = ""
	_, _, err = resolveSource(sourceCatalog, "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestImportAnalyzeApply(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "spirits.db")
	reports := filepath.Join(dir, "reports")

	out, err := execute(t, "import", writeRecords(t, recordsJSON), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 records")

	out, err = execute(t, "analyze", "--db", db, "--export-dir", reports)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry-Run Deduplication")
	assert.Contains(t, out, "Records analyzed:     3")
	assert.Contains(t, out, "Auto-merge:           1")

	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	_, err = execute(t, "apply", "--db", db, "--export-dir", reports)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	out, err = execute(t, "apply", "--db", db, "--export-dir", reports, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Live Deduplication")
	assert.Contains(t, out, "Merges applied:       1")

	store, err := sqlite.Open(db, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	remaining, err := store.FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestAnalyzeFromFile(t *testing.T) {
	reports := t.TempDir()
	out, err := execute(t, "analyze", "--input", writeRecords(t, recordsJSON), "--export-dir", reports, "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "-report-")

	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestCompareCommand(t *testing.T) {
	out, err := execute(t, "compare", "Buffalo Trace Bourbon", "Buffalo Trace Bourbon 750ml",
		"--brand-a", "Buffalo Trace", "--brand-b", "Buffalo Trace")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Similarity ===")
	assert.Contains(t, out, "jaro-winkler")
	assert.Contains(t, out, "merge")

	out, err = execute(t, "compare", "Buffalo Trace Bourbon", "Hendrick's Gin")
	require.NoError(t, err)
	assert.Contains(t, out, "no match")

	_, err = execute(t, "compare", "only one")
	assert.Error(t, err)
}

func TestReviewCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spirits.db")
	_, err := execute(t, "import", writeRecords(t, recordsJSON), "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "review", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No pairs awaiting review")

	store, err := sqlite.Open(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(context.Background(), domain.ReviewItem{
		IDA: "hg-1", IDB: "bt-1", Score: 0.72, Confidence: domain.ConfidenceMedium,
		Details: "names differ", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	out, err = execute(t, "review", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1 pairs awaiting review")
	assert.Contains(t, out, "bt-1|hg-1")
	assert.Contains(t, out, "Hendrick's Gin")
	assert.Contains(t, out, "names differ")

	out, err = execute(t, "review", "resolve", "hg-1", "bt-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "resolved bt-1|hg-1")

	out, err = execute(t, "review", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No pairs awaiting review")

	_, err = execute(t, "review", "resolve", "hg-1", "bt-1", "--db", db)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}
