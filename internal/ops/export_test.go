package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mnemo/internal/config"
	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/errors"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func seedUserData(t *testing.T, app *App) {
	t.Helper()
	ctx := context.Background()
	_, err := app.Teach(ctx, TeachInput{Code: "11", Word: "꼬깔"})
	require.NoError(t, err)
	_, err = app.Teach(ctx, TeachInput{Code: "7", Word: "새"})
	require.NoError(t, err)
	require.NoError(t, app.Store.UpsertKeyword(ctx, db.Keyword{Code: "115", Word: "거구", UserID: "local", Rank: 1}))
}

func TestExport_DefaultPath(t *testing.T) {
	app := newTestApp(t)
	seedUserData(t, app)

	out, err := app.Export(context.Background(), ExportInput{})
	require.NoError(t, err)
	assert.Equal(t, app.Paths.ExportsDir, filepath.Dir(out.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(out.Path), "keywords-local-"))
	assert.Equal(t, 1, out.Keywords)
	assert.Equal(t, 2, out.CustomWords)

	lines := readLines(t, out.Path)
	require.Len(t, lines, 4)
	assert.Equal(t, true, lines[0]["_mnemo_export"])
	assert.Equal(t, ExportSchemaVersion, lines[0]["schema_version"])
	assert.Equal(t, RecordKeyword, lines[1]["type"])
	assert.Equal(t, "거구", lines[1]["word"])
	assert.Equal(t, RecordCustomWord, lines[2]["type"])

	info, err := os.Stat(out.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(app.Paths.ExportsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestExport_IncludeGlobal(t *testing.T) {
	app := newTestApp(t)
	out, err := app.Export(context.Background(), ExportInput{IncludeGlobal: true})
	require.NoError(t, err)
	assert.Greater(t, out.Keywords, 30, "seeded global rows")
	assert.Zero(t, out.CustomWords)
}

func TestExport_RejectsUnsafePath(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Export(context.Background(), ExportInput{Path: filepath.Join(t.TempDir(), "out.jsonl")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = app.Export(context.Background(), ExportInput{Path: filepath.Join(app.Paths.ExportsDir, "out.json")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExport_OverwritesExisting(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(app.Paths.ExportsDir, "fixed.jsonl")
	require.NoError(t, os.MkdirAll(app.Paths.ExportsDir, 0700))
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0600))

	_, err := app.Export(context.Background(), ExportInput{Path: path})
	require.NoError(t, err)
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, true, lines[0]["_mnemo_export"])
}

// importApp returns an app whose allowed paths include dir.
func importApp(t *testing.T, dir string) *App {
	return newTestApp(t, func(c *config.Config) { c.AllowedPaths = []string{dir} })
}

func exportTo(t *testing.T, app *App, dir string) string {
	t.Helper()
	app.Paths.AllowedDirs = append(app.Paths.AllowedDirs, dir)
	path := filepath.Join(dir, "backup.jsonl")
	_, err := app.Export(context.Background(), ExportInput{Path: path})
	require.NoError(t, err)
	return path
}

func TestImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := newTestApp(t)
	seedUserData(t, src)
	path := exportTo(t, src, dir)

	dst := importApp(t, dir)
	ctx := context.Background()
	out, err := dst.Import(ctx, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 3, out.Imported)

	taught, err := dst.ListTaught(ctx)
	require.NoError(t, err)
	require.Len(t, taught, 2)

	res, err := dst.Lookup(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, "꼬깔", res.Chunks[0].Candidates[0])

	res, err = dst.Lookup(ctx, "115")
	require.NoError(t, err)
	assert.Equal(t, []string{"거구", "고구마"}, res.Chunks[0].Candidates)
}

func TestImport_ErrorModeIsAtomic(t *testing.T) {
	dir := t.TempDir()
	src := newTestApp(t)
	seedUserData(t, src)
	path := exportTo(t, src, dir)

	dst := importApp(t, dir)
	ctx := context.Background()
	_, err := dst.Teach(ctx, TeachInput{Code: "7", Word: "새"})
	require.NoError(t, err)

	out, err := dst.Import(ctx, ImportInput{Path: path, Mode: ImportModeError})
	require.NoError(t, err)
	assert.Zero(t, out.Imported)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "COLLISION", out.Errors[0].Code)

	taught, err := dst.ListTaught(ctx)
	require.NoError(t, err)
	assert.Len(t, taught, 1, "nothing imported")
	exists, err := dst.Store.KeywordExists(ctx, db.Keyword{Kind: db.Kind3Digit, Code: "115", Word: "거구", UserID: "local"})
	require.NoError(t, err)
	assert.False(t, exists, "keyword row rolled back")
}

func TestImport_SkipAndReplace(t *testing.T) {
	dir := t.TempDir()
	src := newTestApp(t)
	seedUserData(t, src)
	path := exportTo(t, src, dir)

	dst := importApp(t, dir)
	ctx := context.Background()
	_, err := dst.Teach(ctx, TeachInput{Code: "7", Word: "새"})
	require.NoError(t, err)

	out, err := dst.Import(ctx, ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, 1, out.Skipped)

	out, err = dst.Import(ctx, ImportInput{Path: path, Mode: ImportModeReplace})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Imported)
	assert.Zero(t, out.Skipped)

	taught, err := dst.ListTaught(ctx)
	require.NoError(t, err)
	assert.Len(t, taught, 2, "replace does not duplicate")
}

func TestImport_ReownsRecords(t *testing.T) {
	dir := t.TempDir()
	src := newTestApp(t)
	seedUserData(t, src)
	path := exportTo(t, src, dir)

	dst := importApp(t, dir)
	ctx := context.Background()
	_, err := dst.Import(ctx, ImportInput{Path: path, UserID: "guest"})
	require.NoError(t, err)

	mine, err := dst.ListTaught(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)
	guest, err := dst.Store.ListCustomWords(ctx, "guest")
	require.NoError(t, err)
	assert.Len(t, guest, 2)
}

func TestImport_BadLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	content := strings.Join([]string{
		`{"_mnemo_export":true,"schema_version":"1.0","exported_at":1}`,
		`not json`,
		`{"type":"story","code":"11","word":"x"}`,
		`{"type":"custom_word","code":"11","word":"꼬깔","user_id":"local","created_at":5}`,
		`{"type":"keyword","code":"1234","word":"x","user_id":"local"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	app := importApp(t, dir)
	ctx := context.Background()

	out, err := app.Import(ctx, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Zero(t, out.Imported)
	require.Len(t, out.Errors, 2)
	assert.Equal(t, 2, out.Errors[0].Line)
	assert.Equal(t, "PARSE_ERROR", out.Errors[0].Code)
	assert.Equal(t, "INVALID_RECORD", out.Errors[1].Code)

	out, err = app.Import(ctx, ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Imported)
	assert.Equal(t, 3, out.Skipped)
	require.Len(t, out.Errors, 3)
	assert.Equal(t, 5, out.Errors[2].Line)
}

func TestImport_Validation(t *testing.T) {
	dir := t.TempDir()
	app := importApp(t, dir)
	ctx := context.Background()

	_, err := app.Import(ctx, ImportInput{Path: filepath.Join(dir, "x.jsonl"), Mode: "rename"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = app.Import(ctx, ImportInput{Path: filepath.Join(dir, "missing.jsonl")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = app.Import(ctx, ImportInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
