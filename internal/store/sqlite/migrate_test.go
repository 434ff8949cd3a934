package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLegacyDatabase creates a schema 0.22 database with one gallery and
// a duplicated page hash, the way older builds left it.
func writeLegacyDatabase(t *testing.T, path string) {
	t.Helper()
	base, err := migrationFS.ReadFile("migrations/0022_base.sql")
	require.NoError(t, err)

	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(string(base))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO version (version) VALUES (0.22)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO series (series_id, title, title_key, date_added, series_path, path_key)
		VALUES (1, 'Old', 'old', '2019-01-01T00:00:00Z', '/lib/old', '/lib/old')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chapters (chapter_id, series_id, chapter_number, chapter_path, pages)
		VALUES (1, 1, 0, '/lib/old', 2)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO hashes (hash, series_id, chapter_id, page) VALUES
		('first', 1, 1, 0), ('second', 1, 1, 0), ('other', 1, 1, 1)`)
	require.NoError(t, err)
}

func TestOpen_UpgradesLegacySchema(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")
	writeLegacyDatabase(t, dbPath)
	original, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	day := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return day }
	t.Cleanup(func() { timeNow = time.Now })

	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	// The backup is a byte copy of the pre-upgrade file.
	backupPath := filepath.Join(dir, "backup", "2024-03-09-library.db")
	backup, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	version, err := readVersion(context.Background(), s.db)
	require.NoError(t, err)
	assert.Equal(t, toStep(CurrentVersion), toStep(version))

	g, err := s.GetGallery(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Old", g.Title)
	assert.False(t, g.Exed)
	assert.Empty(t, g.PathInArchive)

	// Duplicate page rows collapse to the newest one.
	hashes, err := s.GetHashes(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "second", 1: "other"}, hashes)
}

func TestOpen_BackupNameCollision(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")
	writeLegacyDatabase(t, dbPath)

	day := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return day }
	t.Cleanup(func() { timeNow = time.Now })

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backup"), 0o755))
	taken := filepath.Join(dir, "backup", "2024-03-09-library.db")
	require.NoError(t, os.WriteFile(taken, []byte("earlier"), 0o644))

	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	kept, err := os.ReadFile(taken)
	require.NoError(t, err)
	assert.Equal(t, "earlier", string(kept))
	assert.FileExists(t, filepath.Join(dir, "backup", "2024-03-09-library.db(1)"))
}

func TestLoadMigrations_Ordered(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 22, migrations[0].step)
	last := migrations[len(migrations)-1]
	assert.Equal(t, toStep(CurrentVersion), last.step)
	assert.InDelta(t, CurrentVersion, last.version(), 1e-9)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].step, migrations[i].step)
	}
}

func TestToStep(t *testing.T) {
	assert.Equal(t, 22, toStep(0.22))
	assert.Equal(t, 26, toStep(0.26))
	assert.Equal(t, 0, toStep(0))
}
