package internal

import "testing"

func TestNewRandomTokenUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		tok, err := NewRandomToken(MinTokenBytes)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d generations: %s", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewRandomTokenRejectsWeakSize(t *testing.T) {
	if _, err := NewRandomToken(8); err == nil {
		t.Fatal("expected error for sub-128-bit token size")
	}
}

func TestValidRandomToken(t *testing.T) {
	tok, err := NewRandomToken(MinTokenBytes)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if !ValidRandomToken(tok, MinTokenBytes) {
		t.Fatalf("generated token rejected: %s", tok)
	}
	if ValidRandomToken("", MinTokenBytes) {
		t.Fatal("empty token accepted")
	}
	if ValidRandomToken("short", MinTokenBytes) {
		t.Fatal("wrong-length token accepted")
	}
	if ValidRandomToken(tok[:len(tok)-1]+"!", MinTokenBytes) {
		t.Fatal("token with invalid alphabet accepted")
	}
}

func TestNewUUIDToken(t *testing.T) {
	a, err := NewUUIDToken()
	if err != nil {
		t.Fatalf("generate uuid token: %v", err)
	}
	b, err := NewUUIDToken()
	if err != nil {
		t.Fatalf("generate uuid token: %v", err)
	}
	if a == b {
		t.Fatal("consecutive uuid tokens collided")
	}
	if !ValidUUIDToken(a) {
		t.Fatalf("generated uuid token rejected: %s", a)
	}
	if ValidUUIDToken("not-a-uuid") {
		t.Fatal("malformed uuid accepted")
	}
}
