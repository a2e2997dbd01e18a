package sync

import (
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/vaultsync/internal/utils"
	"github.com/openmined/vaultsync/internal/vault"
)

const (
	BackupPrefix     = "backups/"
	DefaultConfigDir = ".obsidian"
)

var syncExtensions = map[string]struct{}{
	"md":   {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"svg":  {},
	"webp": {},
	"pdf":  {},
	"txt":  {},
}

// Eligibility decides which vault paths take part in sync.
type Eligibility struct {
	baseFolder string
	excludes   []string
	ignore     *vault.IgnoreList
}

func NewEligibility(baseFolder, configDir string, ignore *vault.IgnoreList) *Eligibility {
	if configDir == "" {
		configDir = DefaultConfigDir
	}
	configDir = strings.Trim(configDir, "/")

	return &Eligibility{
		baseFolder: normalizeBase(baseFolder),
		excludes: []string{
			escapeGlob(configDir) + "/**",
		},
		ignore: ignore,
	}
}

// escapeGlob quotes the doublestar meta characters in a literal path segment.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasSyncExtension checks the extension allow-list only.
func HasSyncExtension(p string) bool {
	_, ok := syncExtensions[utils.Ext(p)]
	return ok
}

// IsBackupKey reports whether key lives in the reserved backup namespace.
func IsBackupKey(key string) bool {
	return strings.HasPrefix(key, BackupPrefix)
}

// Eligible reports whether the vault path p should be synced.
func (e *Eligibility) Eligible(p string) bool {
	if p == "" || !HasSyncExtension(p) {
		return false
	}

	if e.baseFolder != "" && !strings.HasPrefix(p, e.baseFolder+"/") {
		return false
	}

	// the backup namespace is reserved on the key side, whatever the base folder
	if IsBackupKey(ToKey(p, e.baseFolder)) {
		return false
	}

	for _, pattern := range e.excludes {
		matched, err := doublestar.Match(pattern, p)
		if err != nil {
			slog.Warn("eligibility pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return false
		}
	}

	return !e.ignore.ShouldIgnore(p)
}

// Filter keeps the eligible files, preserving order.
func (e *Eligibility) Filter(files []*vault.File) []*vault.File {
	eligible := make([]*vault.File, 0, len(files))
	for _, f := range files {
		if e.Eligible(f.Path) {
			eligible = append(eligible, f)
		}
	}
	return eligible
}
