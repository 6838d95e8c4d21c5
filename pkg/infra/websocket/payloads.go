package websocket

import (
	"github.com/mitchellh/mapstructure"
)

type ScrollPayload struct {
	DeltaY float64 `mapstructure:"deltaY"`
}

type NavigatePayload struct {
	Path string `mapstructure:"path"`
}

type SwipePayload struct {
	Direction string `mapstructure:"direction"`
}

type RoutePayload struct {
	Route string `mapstructure:"route"`
}

type MenuPayload struct {
	Open bool `mapstructure:"open"`
}

type ScrollPositionPayload struct {
	Y float64 `mapstructure:"y"`
}

// DecodePayload maps an untyped payload onto one of the typed structs
// above. WeaklyTypedInput tolerates numeric payload values arriving as
// JSON float64 regardless of the target field type.
func DecodePayload(in map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}
