package stratum

import (
	"errors"
	"math"
	"testing"
)

func TestValueOfNativeTypes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool true", true, Integer(1)},
		{"bool false", false, Integer(0)},
		{"int", 42, Integer(42)},
		{"int64", int64(-7), Integer(-7)},
		{"uint32", uint32(9), Integer(9)},
		{"float64", 3.5, Real(3.5)},
		{"string", "hello", Text("hello")},
		{"bytes", []byte{1, 2}, Blob([]byte{1, 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			if err != nil {
				t.Fatalf("ValueOf(%v) failed: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ValueOf(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueOfOversizedUint64(t *testing.T) {
	_, err := ValueOf(uint64(math.MaxInt64) + 1)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for oversized uint64, got %v", err)
	}
	if !errors.Is(err, ErrUsage) {
		t.Errorf("Type mismatch should also match ErrUsage, got %v", err)
	}
}

func TestValueOfUnsupportedType(t *testing.T) {
	_, err := ValueOf(struct{}{})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for struct parameter, got %v", err)
	}
}

func TestIntegerWidensToFloat(t *testing.T) {
	f, err := Integer(10).Float64()
	if err != nil {
		t.Fatalf("Integer→Real widening failed: %v", err)
	}
	if f != 10.0 {
		t.Errorf("Expected 10.0, got %v", f)
	}
}

func TestRealNarrowsOnlyWhenIntegral(t *testing.T) {
	i, err := Real(4.0).Int64()
	if err != nil {
		t.Fatalf("Integral real should convert: %v", err)
	}
	if i != 4 {
		t.Errorf("Expected 4, got %d", i)
	}

	if _, err := Real(4.5).Int64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for 4.5→integer, got %v", err)
	}
}

func TestTextToNumeric(t *testing.T) {
	i, err := Text("123").Int64()
	if err != nil || i != 123 {
		t.Errorf("Text(\"123\").Int64() = %d, %v; want 123, nil", i, err)
	}

	if _, err := Text("abc").Int64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for non-numeric text, got %v", err)
	}

	f, err := Text("2.25").Float64()
	if err != nil || f != 2.25 {
		t.Errorf("Text(\"2.25\").Float64() = %v, %v; want 2.25, nil", f, err)
	}
}

func TestBlobAccess(t *testing.T) {
	b, err := Blob([]byte("raw")).Bytes()
	if err != nil || string(b) != "raw" {
		t.Errorf("Blob round trip failed: %q, %v", b, err)
	}

	if _, err := Blob([]byte("raw")).Int64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch reading blob as integer, got %v", err)
	}

	if _, err := Blob([]byte("raw")).Text(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch reading blob as text, got %v", err)
	}
}

func TestNullValue(t *testing.T) {
	var zero Value
	if !zero.IsNull() {
		t.Error("Zero Value should be null")
	}
	if _, err := zero.Int64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch reading null as integer, got %v", err)
	}
}

func TestNativeRoundTrip(t *testing.T) {
	values := []Value{Null(), Integer(7), Real(1.5), Text("x"), Blob([]byte{0xff})}
	for _, v := range values {
		got, err := ValueOf(v.Native())
		if err != nil {
			t.Fatalf("ValueOf(Native(%v)) failed: %v", v, err)
		}
		if !got.Equal(v) {
			t.Errorf("Native round trip changed %v into %v", v, got)
		}
	}
}
