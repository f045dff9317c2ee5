package types

import (
	"errors"
	"math"
	"testing"
)

func TestAmountAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Amount
		want    Amount
		wantErr error
	}{
		{"simple", 100, 200, 300, nil},
		{"zero", 0, 0, 0, nil},
		{"max boundary", math.MaxUint64 - 1, 1, math.MaxUint64, nil},
		{"overflow", math.MaxUint64, 1, 0, ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Add(tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add error: got %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Add: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountSub(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Amount
		want    Amount
		wantErr error
	}{
		{"simple", 500, 200, 300, nil},
		{"to zero", 500, 500, 0, nil},
		{"underflow", 100, 200, 0, ErrAmountUnderflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Sub(tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Sub error: got %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Sub: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountMul(t *testing.T) {
	tests := []struct {
		name    string
		a       Amount
		qty     uint64
		want    Amount
		wantErr error
	}{
		{"price times periods", 1000, 12, 12000, nil},
		{"by zero", 1000, 0, 0, nil},
		{"overflow", math.MaxUint64 / 2, 3, 0, ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Mul(tt.qty)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Mul error: got %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Mul: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("4900")
	if err != nil {
		t.Fatal(err)
	}
	if got != 4900 {
		t.Errorf("got %d, want 4900", got)
	}

	if _, err := ParseAmount("-1"); err == nil {
		t.Error("expected error for negative input")
	}
	if _, err := ParseAmount("12.50"); err == nil {
		t.Error("expected error for fractional input")
	}
}

func TestSumAmounts(t *testing.T) {
	got, err := SumAmounts(100, 200, 300)
	if err != nil {
		t.Fatal(err)
	}
	if got != 600 {
		t.Errorf("got %d, want 600", got)
	}

	if _, err := SumAmounts(math.MaxUint64, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestAmountScanValue(t *testing.T) {
	v, err := Amount(1234).Value()
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 1234 {
		t.Errorf("Value: got %v, want 1234", v)
	}

	if _, err := Amount(math.MaxUint64).Value(); err == nil {
		t.Error("expected error for amount beyond int64 range")
	}

	var a Amount
	if err := a.Scan(int64(4200)); err != nil {
		t.Fatal(err)
	}
	if a != 4200 {
		t.Errorf("Scan int64: got %d, want 4200", a)
	}

	if err := a.Scan(int64(-1)); err == nil {
		t.Error("expected error scanning negative value")
	}

	if err := a.Scan([]byte("777")); err != nil {
		t.Fatal(err)
	}
	if a != 777 {
		t.Errorf("Scan bytes: got %d, want 777", a)
	}
}

func TestIdentity(t *testing.T) {
	if !NilIdentity.IsZero() {
		t.Error("NilIdentity should be zero")
	}
	if NewIdentity("  alice  ") != "alice" {
		t.Error("NewIdentity should trim whitespace")
	}
	var i Identity
	if err := i.Scan("bob"); err != nil {
		t.Fatal(err)
	}
	if i != "bob" {
		t.Errorf("Scan: got %q, want %q", i, "bob")
	}
}
