package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Prefix     = "backups/"
	markerName = ".backup.json"

	// milliseconds follow timestampLayout as -000Z
	timestampLayout = "2006-01-02T15-04-05"
	parseLayout     = "2006-01-02T15-04-05.000Z"
)

var ErrInvalidTimestamp = errors.New("invalid backup timestamp")

// Marker records that a backup exists. It is the whole content of the marker object.
type Marker struct {
	Timestamp  string `json:"timestamp"`
	FolderPath string `json:"folderPath"`

	Key string `json:"-"`
}

// Time parses the marker timestamp.
func (m Marker) Time() (time.Time, error) {
	return ParseTimestamp(m.Timestamp)
}

// FormatTimestamp renders t in UTC so that lexical and chronological order agree
// and the value is safe inside a key.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%03dZ", t.Format(timestampLayout), t.Nanosecond()/int(time.Millisecond))
}

func ParseTimestamp(ts string) (time.Time, error) {
	n := len(ts)
	if n != len(parseLayout) || ts[n-5] != '-' {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}

	t, err := time.Parse(parseLayout, ts[:n-5]+"."+ts[n-4:])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}
	return t, nil
}

func normalizeFolder(folder string) string {
	return strings.Trim(folder, "/")
}

// backupPrefix is the key prefix owning every object of one backup.
func backupPrefix(ts string) string {
	return Prefix + ts + "/"
}

func markerKey(ts, folder string) string {
	if folder == "" {
		return backupPrefix(ts) + markerName
	}
	return backupPrefix(ts) + folder + "/" + markerName
}

func snapshotKey(ts, key string) string {
	return backupPrefix(ts) + "objects/" + key
}

func isMarkerKey(key string) bool {
	return strings.HasPrefix(key, Prefix) && strings.HasSuffix(key, "/"+markerName)
}

func encodeMarker(m Marker) ([]byte, error) {
	return jsonMarshal(m)
}

func decodeMarker(key string, content []byte) (Marker, error) {
	var m Marker
	if err := jsonUnmarshal(content, &m); err != nil {
		return Marker{}, fmt.Errorf("decode marker %s: %w", key, err)
	}
	if m.Timestamp == "" {
		return Marker{}, fmt.Errorf("decode marker %s: missing timestamp", key)
	}
	m.Key = key
	return m, nil
}
