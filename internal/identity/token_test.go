package identity

import (
	"reflect"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	signed, err := SignToken("u1", []string{"widget.read", "widget.write"}, secret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	ident, err := FromToken(signed, secret)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := ident.OptionalID(); got != "u1" {
		t.Fatalf("expected u1, got %s", got)
	}
	want := []string{"widget.read", "widget.write"}
	if got := ident.Tokens(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFromTokenRejectsWrongSecret(t *testing.T) {
	signed, err := SignToken("u1", nil, "right-secret")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := FromToken(signed, "wrong-secret"); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}

func TestFromTokenRejectsGarbage(t *testing.T) {
	if _, err := FromToken("not-a-jwt", "secret"); err == nil {
		t.Fatal("expected parse to fail")
	}
}
