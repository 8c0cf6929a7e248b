package dbtypes

import "testing"

func TestOptionValuesScan(t *testing.T) {
	var opts OptionValues
	if err := opts.Scan([]byte(`{"size":["S","M"],"color":["red"]}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !opts.Allows("size", "M") {
		t.Fatal("expected size M to be allowed")
	}
	if opts.Allows("size", "XL") {
		t.Fatal("expected size XL to be rejected")
	}
	if names := opts.Names(); len(names) != 2 || names[0] != "color" {
		t.Fatalf("unexpected names %v", names)
	}

	if err := opts.Scan(nil); err != nil || len(opts) != 0 {
		t.Fatalf("expected nil scan to reset, got %v (%v)", opts, err)
	}
	if err := opts.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestOptionValuesValueOfNil(t *testing.T) {
	var opts OptionValues
	v, err := opts.Value()
	if err != nil || v != "{}" {
		t.Fatalf("expected empty object, got %v (%v)", v, err)
	}
}
