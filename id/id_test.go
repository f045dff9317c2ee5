package id_test

import (
	"strings"
	"testing"

	"github.com/JoooooMei/subscription-genie/id"
)

func TestServiceIDSentinel(t *testing.T) {
	if !id.NilService.IsNil() {
		t.Fatal("zero ServiceID should be the nil sentinel")
	}
	if id.ServiceID(1).IsNil() {
		t.Fatal("ServiceID 1 should not be nil")
	}
}

func TestParseServiceID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    id.ServiceID
		wantErr bool
	}{
		{"first id", "1", 1, false},
		{"larger id", "42", 42, false},
		{"sentinel", "0", 0, false},
		{"negative", "-1", 0, true},
		{"garbage", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := id.ParseServiceID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServiceIDScan(t *testing.T) {
	var s id.ServiceID
	if err := s.Scan(int64(7)); err != nil {
		t.Fatal(err)
	}
	if s != 7 {
		t.Errorf("got %d, want 7", s)
	}
	if err := s.Scan(int64(-7)); err == nil {
		t.Error("expected error scanning negative id")
	}
}

func TestReceiptConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ReceiptID
		prefix string
	}{
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"WithdrawalID", id.NewWithdrawalID, "wd_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestReceiptParseRoundTrip(t *testing.T) {
	orig := id.NewWithdrawalID()

	parsed, err := id.ParseWithdrawalID(orig.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip: got %q, want %q", parsed.String(), orig.String())
	}

	if _, err := id.ParsePaymentID(orig.String()); err == nil {
		t.Error("expected prefix mismatch error")
	}
}

func TestReceiptNil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Fatal("Nil should be nil")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String: got %q, want empty", id.Nil.String())
	}
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error parsing empty string")
	}
}
