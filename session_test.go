package mosession

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bayazee/mosession/codec"
)

func TestSessionSetMarksDirty(t *testing.T) {
	s := newSession(false)
	if s.Dirty() {
		t.Fatal("fresh session already dirty")
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.Dirty() {
		t.Fatal("set did not mark dirty")
	}
}

func TestSessionSetRejectsBadValues(t *testing.T) {
	s := newSession(false)

	type opaque struct{ X int }
	if err := s.Set("k", opaque{X: 1}); !errors.Is(err, codec.ErrInvalidValueType) {
		t.Fatalf("expected ErrInvalidValueType, got %v", err)
	}
	if err := s.Set("ch", make(chan int)); !errors.Is(err, codec.ErrInvalidValueType) {
		t.Fatalf("expected ErrInvalidValueType, got %v", err)
	}
	// Bad nested value must not slip through inside a supported container.
	if err := s.Set("list", []any{1, opaque{}}); !errors.Is(err, codec.ErrInvalidValueType) {
		t.Fatalf("expected ErrInvalidValueType, got %v", err)
	}

	if s.Dirty() || s.Len() != 0 {
		t.Fatalf("rejected set mutated the session: dirty=%v len=%d", s.Dirty(), s.Len())
	}
}

func TestSessionSetRejectsReservedKeys(t *testing.T) {
	s := newSession(false)
	if err := s.Set("~permanent", true); !errors.Is(err, ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey, got %v", err)
	}
	if s.Dirty() {
		t.Fatal("rejected set marked the session dirty")
	}
}

func TestSessionDeleteOnlyDirtiesOnHit(t *testing.T) {
	s := newSession(false)
	s.Delete("missing")
	if s.Dirty() {
		t.Fatal("deleting an absent key marked the session dirty")
	}

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.dirty = false

	s.Delete("k")
	if !s.Dirty() {
		t.Fatal("deleting a present key did not mark dirty")
	}
	if _, ok := s.Get("k"); ok {
		t.Fatal("key survived delete")
	}
}

func TestSessionClear(t *testing.T) {
	s := newSession(false)
	s.Clear()
	if s.Dirty() {
		t.Fatal("clearing an empty session marked it dirty")
	}

	if err := s.Set("a", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("b", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.dirty = false

	s.Clear()
	if !s.Dirty() || s.Len() != 0 {
		t.Fatalf("clear left dirty=%v len=%d", s.Dirty(), s.Len())
	}
}

func TestSessionKeysSorted(t *testing.T) {
	s := newSession(false)
	for _, k := range []string{"zebra", "apple", "mango"} {
		if err := s.Set(k, 1); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	want := []string{"apple", "mango", "zebra"}
	if got := s.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

func TestSessionDataIsACopy(t *testing.T) {
	s := newSession(false)
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	snapshot := s.Data()
	snapshot["k"] = "tampered"
	snapshot["extra"] = true

	if got := s.GetString("k"); got != "v" {
		t.Fatalf("mutating the copy reached the session: k=%q", got)
	}
	if s.Len() != 1 {
		t.Fatalf("mutating the copy grew the session: len=%d", s.Len())
	}
}

func TestSetPermanentTogglesAndDirties(t *testing.T) {
	s := newSession(false)

	s.SetPermanent(false)
	if s.Dirty() {
		t.Fatal("no-op permanence change marked dirty")
	}

	s.SetPermanent(true)
	if !s.Permanent() || !s.Dirty() {
		t.Fatalf("permanent=%v dirty=%v after toggle", s.Permanent(), s.Dirty())
	}
}

func TestSessionLoadedAtIsSet(t *testing.T) {
	s := newSession(false)
	if s.LoadedAt().IsZero() {
		t.Fatal("fresh session has zero LoadedAt")
	}
}

func TestGetIntHandlesBothWidths(t *testing.T) {
	s := newSession(false)
	if err := s.Set("a", 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.data["b"] = int64(9)

	if got := s.GetInt("a"); got != 7 {
		t.Fatalf("a = %d", got)
	}
	if got := s.GetInt("b"); got != 9 {
		t.Fatalf("b = %d", got)
	}
	if got := s.GetInt("missing"); got != 0 {
		t.Fatalf("missing = %d", got)
	}
}
