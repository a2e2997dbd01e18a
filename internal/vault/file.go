package vault

import (
	"github.com/openmined/vaultsync/internal/utils"
)

type ContentKind uint8

const (
	KindText ContentKind = iota
	KindBinary
)

var textExtensions = map[string]struct{}{
	"md":  {},
	"txt": {},
	"svg": {},
}

func (k ContentKind) String() string {
	if k == KindText {
		return "text"
	}
	return "binary"
}

// File is a vault file addressed by its vault-relative, slash separated path.
type File struct {
	Path      string
	Extension string
	Kind      ContentKind
}

func NewFile(path string) *File {
	ext := utils.Ext(path)
	kind := KindBinary
	if _, ok := textExtensions[ext]; ok {
		kind = KindText
	}
	return &File{
		Path:      path,
		Extension: ext,
		Kind:      kind,
	}
}

func (f *File) IsText() bool {
	return f.Kind == KindText
}

func (f *File) String() string {
	return f.Path
}
