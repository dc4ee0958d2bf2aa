package encoding

import "encoding/json"

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable[T any] interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// JSON encodes v as a compact JSON document.
func JSON[T any](v T) ([]byte, error) {
	return json.Marshal(v)
}

// FromJSON decodes data into v.
func FromJSON[T any](data []byte, v *T) error {
	return json.Unmarshal(data, v)
}
