package sync

import (
	"path"
	"strings"
)

// ToKey maps a vault path to its object key under baseFolder.
//
// With an empty base the key is the path itself. Paths under the base lose the
// base prefix, the base itself maps to its own name, and anything outside the
// base is relocated beneath it.
func ToKey(p, baseFolder string) string {
	base := normalizeBase(baseFolder)
	if base == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, base+"/"); ok {
		return rest
	}
	if p == base {
		return path.Base(p)
	}
	return base + "/" + p
}

// ToPath maps an object key back to its vault path. It inverts the prefix strip
// of ToKey only. A key equal to the base folder has no vault path and yields "".
func ToPath(key, baseFolder string) string {
	base := normalizeBase(baseFolder)
	if base == "" {
		return key
	}
	if key == base {
		return ""
	}
	return base + "/" + key
}

func normalizeBase(baseFolder string) string {
	return strings.Trim(baseFolder, "/")
}
