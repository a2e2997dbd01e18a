package vault

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

const ignoreFileName = ".syncignore"

var defaultIgnoreLines = []string{
	metadataDir + "/",
	".git/",
	".trash/",
	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.swp",
	"**/*.sync-conflict*",
}

// IgnoreList holds gitignore-style patterns for paths that never take part in sync.
// Patterns come from a built-in list plus an optional .syncignore at the vault root.
type IgnoreList struct {
	rootDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(rootDir string) *IgnoreList {
	return &IgnoreList{
		rootDir: rootDir,
		ignore:  gitignore.CompileIgnoreLines(defaultIgnoreLines...),
	}
}

// Load (re)compiles the patterns, merging the vault's .syncignore when present.
func (s *IgnoreList) Load() {
	lines := append([]string{}, defaultIgnoreLines...)

	ignorePath := filepath.Join(s.rootDir, ignoreFileName)
	data, err := os.ReadFile(ignorePath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ignore file read", "path", ignorePath, "error", err)
		}
	} else {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
	}

	s.ignore = gitignore.CompileIgnoreLines(lines...)
	slog.Debug("ignore list loaded", "patterns", len(lines))
}

// ShouldIgnore matches a vault-relative slash path.
func (s *IgnoreList) ShouldIgnore(path string) bool {
	if s == nil || s.ignore == nil {
		return false
	}
	return s.ignore.MatchesPath(path)
}
