package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/utils"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReadConcurrency = 8
	contentTypeJSON        = "application/json"
)

var ErrNoStore = errors.New("object store not configured")

type Options struct {
	// Snapshot copies the remote objects of the folder into the backup before the marker is written.
	Snapshot bool
	// Snapshotable selects which remote keys a snapshot copies. All keys when nil.
	Snapshotable func(key string) bool
	Now          func() time.Time
}

// BackupManager owns the backups/ namespace of the object store.
type BackupManager struct {
	store        blob.ObjectStore
	snapshot     bool
	snapshotable func(key string) bool
	now          func() time.Time

	mu     sync.Mutex
	lastTs time.Time
}

func NewBackupManager(store blob.ObjectStore, opts Options) *BackupManager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BackupManager{
		store:        store,
		snapshot:     opts.Snapshot,
		snapshotable: opts.Snapshotable,
		now:          opts.Now,
	}
}

// nextTimestamp never repeats within the process, even when the clock does.
func (b *BackupManager) nextTimestamp() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.now().UTC().Truncate(time.Millisecond)
	if !t.After(b.lastTs) {
		t = b.lastTs.Add(time.Millisecond)
	}
	b.lastTs = t
	return FormatTimestamp(t)
}

// CreateBackup writes a marker for folderPath ("" for the whole vault).
func (b *BackupManager) CreateBackup(ctx context.Context, folderPath string) (Marker, error) {
	if b.store == nil {
		return Marker{}, ErrNoStore
	}

	folder := normalizeFolder(folderPath)
	marker := Marker{
		Timestamp:  b.nextTimestamp(),
		FolderPath: folder,
	}
	marker.Key = markerKey(marker.Timestamp, folder)

	if b.snapshot {
		if err := b.copySnapshot(ctx, marker.Timestamp, folder); err != nil {
			return Marker{}, err
		}
	}

	content, err := encodeMarker(marker)
	if err != nil {
		return Marker{}, fmt.Errorf("encode marker: %w", err)
	}
	if err := b.store.Put(ctx, marker.Key, content, contentTypeJSON); err != nil {
		return Marker{}, fmt.Errorf("write marker %s: %w", marker.Key, err)
	}

	slog.Info("backup created", "timestamp", marker.Timestamp, "folder", folder)
	return marker, nil
}

func (b *BackupManager) copySnapshot(ctx context.Context, ts, folder string) error {
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list snapshot objects: %w", err)
	}

	var copied, size int
	for _, key := range keys {
		if strings.HasPrefix(key, Prefix) {
			continue
		}
		if b.snapshotable != nil && !b.snapshotable(key) {
			continue
		}

		content, ok, err := b.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := b.store.Put(ctx, snapshotKey(ts, key), content, utils.DetectContentType(key)); err != nil {
			return fmt.Errorf("copy %s: %w", key, err)
		}
		copied++
		size += len(content)
	}

	slog.Debug("backup snapshot", "timestamp", ts, "objects", copied, "size", humanize.Bytes(uint64(size)))
	return nil
}

// ListBackups returns every readable marker, newest first. Markers that cannot
// be read or parsed are skipped.
func (b *BackupManager) ListBackups(ctx context.Context) ([]Marker, error) {
	if b.store == nil {
		return nil, ErrNoStore
	}

	keys, err := b.store.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var markerKeys []string
	for _, key := range keys {
		if isMarkerKey(key) {
			markerKeys = append(markerKeys, key)
		}
	}

	found := make([]*Marker, len(markerKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultReadConcurrency)

	for i, key := range markerKeys {
		g.Go(func() error {
			content, ok, err := b.store.Get(gctx, key)
			if err != nil {
				slog.Warn("backup marker read", "key", key, "error", err)
				return nil
			}
			if !ok {
				return nil
			}

			m, err := decodeMarker(key, content)
			if err != nil {
				slog.Warn("backup marker skipped", "key", key, "error", err)
				return nil
			}
			found[i] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(found))
	for _, m := range found {
		if m != nil {
			markers = append(markers, *m)
		}
	}

	slices.SortStableFunc(markers, func(a, b Marker) int {
		return strings.Compare(b.Timestamp, a.Timestamp)
	})
	return markers, nil
}

// DeleteBackup removes every object of the backup at ts and returns how many were deleted.
func (b *BackupManager) DeleteBackup(ctx context.Context, ts string) (int, error) {
	if b.store == nil {
		return 0, ErrNoStore
	}
	if ts == "" || strings.Contains(ts, "/") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}

	keys, err := b.store.List(ctx, backupPrefix(ts))
	if err != nil {
		return 0, fmt.Errorf("list backup %s: %w", ts, err)
	}

	var deleted int
	var errs []error
	for _, key := range keys {
		if err := b.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		deleted++
	}

	slog.Info("backup deleted", "timestamp", ts, "objects", deleted)
	return deleted, errors.Join(errs...)
}

// CleanupOldBackups deletes backups strictly older than retentionDays and
// returns how many backups were removed. A retention of zero or less keeps everything.
func (b *BackupManager) CleanupOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	markers, err := b.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := b.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	var removed int
	var errs []error
	seen := make(map[string]bool)
	for _, m := range markers {
		if seen[m.Timestamp] {
			continue
		}

		t, err := m.Time()
		if err != nil {
			slog.Warn("backup cleanup skipped", "key", m.Key, "error", err)
			continue
		}
		if !t.Before(cutoff) {
			continue
		}

		seen[m.Timestamp] = true
		if _, err := b.DeleteBackup(ctx, m.Timestamp); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("backup cleanup", "removed", removed, "retentionDays", retentionDays)
	}
	return removed, errors.Join(errs...)
}
