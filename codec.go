package lull

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec turns a watched document into a Config. A Reloader uses AutoCodec
// unless another is set with Reloader.Codec.
type Codec interface {
	Unmarshal(data []byte, v any) error

	// ContentType names the format on the lull.reloader.started signal.
	ContentType() string
}

// JSONCodec reads documents such as {"delay": "300ms", "min_length": 2}.
type JSONCodec struct{}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec reads block documents such as
//
//	delay: 300ms
//	min_length: 2
type YAMLCodec struct{}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// AutoCodec decodes a document as JSON when its first non-space byte opens
// an object or array, and as YAML otherwise. One watched file or key may
// switch between the two.
type AutoCodec struct{}

func (AutoCodec) Unmarshal(data []byte, v any) error {
	if isJSON(data) {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// ContentType is generic since the format is chosen per document.
func (AutoCodec) ContentType() string {
	return "application/octet-stream"
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
	_ Codec = AutoCodec{}
)
