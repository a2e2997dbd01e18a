//go:build !sonic

package backup

import "github.com/goccy/go-json"

var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
