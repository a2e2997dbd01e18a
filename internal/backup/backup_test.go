package backup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openmined/vaultsync/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func putMarker(t *testing.T, store blob.ObjectStore, ts time.Time, folder string) string {
	t.Helper()
	stamp := FormatTimestamp(ts)
	content := fmt.Sprintf(`{"timestamp":%q,"folderPath":%q}`, stamp, folder)
	require.NoError(t, store.Put(context.Background(), markerKey(stamp, folder), []byte(content), contentTypeJSON))
	return stamp
}

func TestTimestampFormat(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 678_900_000, time.FixedZone("X", 3600))
	stamp := FormatTimestamp(ts)
	assert.Equal(t, "2026-01-02T02-04-05-678Z", stamp)
	assert.NotContains(t, stamp, ":")
	assert.NotContains(t, stamp, ".")

	parsed, err := ParseTimestamp(stamp)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts.Truncate(time.Millisecond)))

	for _, bad := range []string{"", "yesterday", "2026-01-02T02:04:05.678Z", "2026-01-02T02-04-05-678"} {
		_, err := ParseTimestamp(bad)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, bad)
	}
}

func TestTimestampOrderIsLexical(t *testing.T) {
	a := FormatTimestamp(testNow)
	b := FormatTimestamp(testNow.Add(time.Millisecond))
	c := FormatTimestamp(testNow.Add(48 * time.Hour))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestCreateBackup(t *testing.T) {
	store := blob.NewMemoryStore()
	mgr := NewBackupManager(store, Options{Now: fixedClock})
	ctx := context.Background()

	root, err := mgr.CreateBackup(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "backups/2026-10-19T12-00-00-000Z/.backup.json", root.Key)

	// same clock reading still yields a fresh timestamp
	folder, err := mgr.CreateBackup(ctx, "/Projects/")
	require.NoError(t, err)
	assert.Equal(t, "Projects", folder.FolderPath)
	assert.Equal(t, "backups/2026-10-19T12-00-00-001Z/Projects/.backup.json", folder.Key)
	assert.Greater(t, folder.Timestamp, root.Timestamp)

	content, ok, err := store.Get(ctx, folder.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"timestamp":"2026-10-19T12-00-00-001Z","folderPath":"Projects"}`, string(content))
	assert.Equal(t, "application/json", store.ContentType(folder.Key))
}

func TestCreateBackupSnapshot(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "Projects/a.md", []byte("a"), "text/markdown"))
	require.NoError(t, store.Put(ctx, "Projects/data.bin", []byte("b"), "application/octet-stream"))
	require.NoError(t, store.Put(ctx, "Other/c.md", []byte("c"), "text/markdown"))

	mgr := NewBackupManager(store, Options{
		Snapshot:     true,
		Snapshotable: func(key string) bool { return key != "Projects/data.bin" },
		Now:          fixedClock,
	})

	m, err := mgr.CreateBackup(ctx, "Projects")
	require.NoError(t, err)

	copied, ok, err := store.Get(ctx, "backups/"+m.Timestamp+"/objects/Projects/a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(copied))

	keys, err := store.List(ctx, backupPrefix(m.Timestamp))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	deleted, err := mgr.DeleteBackup(ctx, m.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 3, store.Len())
}

func TestListBackupsSkipsMalformed(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()

	older := putMarker(t, store, testNow.Add(-time.Hour), "")
	newer := putMarker(t, store, testNow, "Notes")
	require.NoError(t, store.Put(ctx, "backups/garbage/.backup.json", []byte("{not json"), contentTypeJSON))
	require.NoError(t, store.Put(ctx, "backups/empty/.backup.json", []byte(`{"folderPath":"x"}`), contentTypeJSON))
	require.NoError(t, store.Put(ctx, "backups/"+older+"/objects/a.md", []byte("a"), "text/markdown"))

	mgr := NewBackupManager(store, Options{Now: fixedClock})
	markers, err := mgr.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 2)

	assert.Equal(t, newer, markers[0].Timestamp)
	assert.Equal(t, "Notes", markers[0].FolderPath)
	assert.Equal(t, older, markers[1].Timestamp)
}

func TestDeleteBackupPrefixOnly(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()
	keep := putMarker(t, store, testNow, "")
	drop := putMarker(t, store, testNow.Add(-time.Minute), "")
	require.NoError(t, store.Put(ctx, "notes/a.md", []byte("a"), "text/markdown"))

	mgr := NewBackupManager(store, Options{Now: fixedClock})
	n, err := mgr.DeleteBackup(ctx, drop)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	markers, err := mgr.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, keep, markers[0].Timestamp)

	_, err = mgr.DeleteBackup(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Equal(t, 2, store.Len())
}

func TestCleanupZeroRetentionKeepsEverything(t *testing.T) {
	store := blob.NewMemoryStore()
	putMarker(t, store, testNow.AddDate(-5, 0, 0), "")
	putMarker(t, store, testNow.Add(-time.Minute), "")

	mgr := NewBackupManager(store, Options{Now: fixedClock})
	n, err := mgr.CleanupOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, store.Len())
}

func TestCleanupRetentionBoundary(t *testing.T) {
	store := blob.NewMemoryStore()
	cutoff := testNow.Add(-30 * 24 * time.Hour)

	putMarker(t, store, cutoff.Add(-24*time.Hour), "")
	putMarker(t, store, cutoff.Add(-time.Millisecond), "Notes")
	atCutoff := putMarker(t, store, cutoff, "")
	recent := putMarker(t, store, testNow.Add(-time.Hour), "")

	mgr := NewBackupManager(store, Options{Now: fixedClock})
	n, err := mgr.CleanupOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	markers, err := mgr.ListBackups(context.Background())
	require.NoError(t, err)
	var left []string
	for _, m := range markers {
		left = append(left, m.Timestamp)
	}
	assert.Equal(t, []string{recent, atCutoff}, left)
}

func TestNoStore(t *testing.T) {
	mgr := NewBackupManager(nil, Options{})
	ctx := context.Background()

	_, err := mgr.CreateBackup(ctx, "")
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = mgr.ListBackups(ctx)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = mgr.DeleteBackup(ctx, "x")
	assert.ErrorIs(t, err, ErrNoStore)

	n, err := mgr.CleanupOldBackups(ctx, 0)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
