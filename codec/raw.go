package codec

// Bytes is an identity codec for byte-slice value types. Encode/Decode pass
// the bytes through unchanged. The type parameter admits named []byte types,
// which is what the engine's value bound requires in practice:
//
//	type Blob []byte
//	func (Blob) SchemaVersion() string { return "1" }
//	... codec.Bytes[Blob]{}
type Bytes[V ~[]byte] struct{}

func (Bytes[V]) Encode(v V) ([]byte, error) { return []byte(v), nil }
func (Bytes[V]) Decode(b []byte) (V, error) { return V(b), nil }

// String is the equivalent identity codec for named string types. By
// convention this assumes UTF-8 and performs no validation.
type String[V ~string] struct{}

func (String[V]) Encode(v V) ([]byte, error) { return []byte(v), nil }
func (String[V]) Decode(b []byte) (V, error) { return V(b), nil }
