package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type payload struct {
	ID      string    `json:"id" msgpack:"id"`
	Count   int       `json:"count" msgpack:"count"`
	Created time.Time `json:"created" msgpack:"created"`
}

func samplePayload() payload {
	return payload{
		ID:      "p-1",
		Count:   7,
		Created: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := JSON[payload]{}
	want := samplePayload()

	b, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Created.Equal(want.Created) || got.ID != want.ID || got.Count != want.Count {
		t.Fatalf("round trip: got %+v, want %+v", got, want)
	}
}

func TestJSONDecodeRejectsGarbage(t *testing.T) {
	c := JSON[payload]{}
	if _, err := c.Decode([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	// valid JSON of the wrong shape must also fail
	if _, err := c.Decode([]byte(`{"count":"seven"}`)); err == nil {
		t.Fatalf("expected type-mismatch decode error")
	}
}

func TestCBORRoundTrip(t *testing.T) {
	c, err := NewCBOR[payload](false)
	if err != nil {
		t.Fatalf("NewCBOR: %v", err)
	}
	want := samplePayload()

	b, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Created.Equal(want.Created) || got.ID != want.ID || got.Count != want.Count {
		t.Fatalf("round trip: got %+v, want %+v", got, want)
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := c.Encode(m)
		if err != nil {
			t.Fatalf("Encode #%d: %v", i, err)
		}
		if !bytes.Equal(first, next) {
			t.Fatalf("deterministic mode produced differing bytes")
		}
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	c := Msgpack[payload]{}
	want := samplePayload()

	b, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Created.Equal(want.Created) || got.ID != want.ID || got.Count != want.Count {
		t.Fatalf("round trip: got %+v, want %+v", got, want)
	}
}

func TestLimitBlocksOversizedDecode(t *testing.T) {
	c := Limit[string]{Inner: JSON[string]{}, MaxDecode: 16}

	small, err := c.Encode("ok")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, err := c.Decode(small); err != nil || got != "ok" {
		t.Fatalf("small payload: got %q err=%v", got, err)
	}

	big, err := c.Encode(strings.Repeat("x", 64))
	if err != nil {
		t.Fatalf("Encode big: %v", err)
	}
	if _, err := c.Decode(big); err == nil {
		t.Fatalf("oversized payload must fail before reaching Inner")
	}
}

func TestLimitZeroDisablesCheck(t *testing.T) {
	c := Limit[string]{Inner: JSON[string]{}}
	b, _ := c.Encode(strings.Repeat("x", 1024))
	if _, err := c.Decode(b); err != nil {
		t.Fatalf("MaxDecode<=0 must disable the size check: %v", err)
	}
}

type blob []byte

type label string

func TestIdentityCodecs(t *testing.T) {
	bc := Bytes[blob]{}
	in := blob("raw bytes")
	b, err := bc.Encode(in)
	if err != nil {
		t.Fatalf("Bytes.Encode: %v", err)
	}
	out, err := bc.Decode(b)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("Bytes round trip: %q err=%v", out, err)
	}

	sc := String[label]{}
	sb, err := sc.Encode(label("hello"))
	if err != nil {
		t.Fatalf("String.Encode: %v", err)
	}
	s, err := sc.Decode(sb)
	if err != nil || s != "hello" {
		t.Fatalf("String round trip: %q err=%v", s, err)
	}
}
