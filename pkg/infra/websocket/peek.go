package websocket

import (
	"fmt"

	"github.com/valyala/fastjson"
)

// PeekType extracts the envelope type without a full decode, so malformed
// or unknown frames can be dropped before any allocation-heavy work.
func PeekType(data []byte) (string, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return "", fmt.Errorf("malformed message: %w", err)
	}
	t := v.GetStringBytes("type")
	if len(t) == 0 {
		return "", fmt.Errorf("message missing type field")
	}
	return string(t), nil
}
