// Package codec defines value serialization for tiercache. The engine
// treats an entry's size as the length of its encoded form, so the codec
// choice decides every cap and memory-eligibility decision.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
