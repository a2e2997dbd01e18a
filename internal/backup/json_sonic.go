//go:build sonic

package backup

import "github.com/bytedance/sonic"

var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
