package codec

import "encoding/json"

// JSON is the default codec. Decode fails on malformed input or input whose
// shape cannot be assigned to V, which the engine treats as a purge-and-miss.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
