package tiercache

import "testing"

func TestSchemaVersionOf(t *testing.T) {
	v, err := schemaVersionOf[user]()
	if err != nil || v != "1.0.0" {
		t.Fatalf("value type: v=%q err=%v", v, err)
	}

	// pointer value types must not panic on the nil zero value
	pv, err := schemaVersionOf[*user]()
	if err != nil || pv != "1.0.0" {
		t.Fatalf("pointer type: v=%q err=%v", pv, err)
	}

	if _, err := schemaVersionOf[unversioned](); err == nil {
		t.Fatalf("empty version must be rejected")
	}
}
