package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"path"

	"github.com/dustin/go-humanize"
)

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func humanizeBytes(n int) string {
	return humanize.Bytes(uint64(n))
}

// parentDir returns the folder holding p, or "" for files at the vault root.
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
