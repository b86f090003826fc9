package core

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestGenerateCodeFormatAndUniqueness(t *testing.T) {
	reg := NewRegistry(10, clock.NewMock())

	seen := make(map[string]struct{})
	for i := 0; i < 2000; i++ {
		code, err := reg.GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ValidRoomCode(code) {
			t.Fatalf("code %q is not four digits", code)
		}
		if n, _ := strconv.Atoi(code); n < 1000 || n > 9999 {
			t.Fatalf("code %q outside 1000..9999", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("code %q generated while live", code)
		}
		seen[code] = struct{}{}
		reg.GetOrCreate(code, "10.0.0.1")
	}
}

func TestGenerateCodeRetriesOnCollision(t *testing.T) {
	reg := NewRegistry(10, clock.NewMock())
	reg.GetOrCreate("1000", "10.0.0.1")
	reg.GetOrCreate("1001", "10.0.0.1")

	draws := []int{0, 1, 0, 42}
	reg.intn = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}

	code, err := reg.GenerateCode()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if code != "1042" {
		t.Fatalf("code = %s, want 1042", code)
	}
}

func TestGenerateCodeExhausted(t *testing.T) {
	reg := NewRegistry(10, clock.NewMock())
	for n := 1000; n <= 9999; n++ {
		reg.GetOrCreate(strconv.Itoa(n), "10.0.0.1")
	}

	if _, err := reg.GenerateCode(); !errors.Is(err, ErrNoCodesAvailable) {
		t.Fatalf("expected ErrNoCodesAvailable, got %v", err)
	}
}

func TestValidRoomCode(t *testing.T) {
	cases := map[string]bool{
		"0000":  true,
		"4821":  true,
		"9999":  true,
		"123":   false,
		"12345": false,
		"12a4":  false,
		"":      false,
		" 1234": false,
		"１２３４":  false,
	}
	for code, want := range cases {
		if got := ValidRoomCode(code); got != want {
			t.Errorf("ValidRoomCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestCapacityAndDeletionOnEmpty(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	reg := NewRegistry(2, mock)

	room, created := reg.GetOrCreate("4821", "10.0.0.5")
	if !created {
		t.Fatal("expected new room")
	}
	if !room.CreatedAt.Equal(mock.Now()) || room.CreatorAddr != "10.0.0.5" {
		t.Fatalf("unexpected room metadata: %+v", room)
	}

	a, b, c := NewClient("a", ""), NewClient("b", ""), NewClient("c", "")
	if err := reg.TryAddMember(room, a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := reg.TryAddMember(room, b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := reg.TryAddMember(room, c); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if err := reg.TryAddMember(room, a); err != nil {
		t.Fatalf("re-adding a member should be a no-op, got %v", err)
	}
	if room.Len() != 2 {
		t.Fatalf("members = %d, want 2", room.Len())
	}

	if again, created := reg.GetOrCreate("4821", "10.0.0.99"); created || again != room {
		t.Fatal("GetOrCreate must return the live room")
	}

	if deleted := reg.RemoveMember(room, a); deleted {
		t.Fatal("room deleted while a member remains")
	}
	if _, ok := reg.Get("4821"); !ok {
		t.Fatal("room should still be live")
	}
	if deleted := reg.RemoveMember(room, b); !deleted {
		t.Fatal("room should be deleted once empty")
	}
	if _, ok := reg.Get("4821"); ok {
		t.Fatal("empty room still registered")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry len = %d, want 0", reg.Len())
	}
}

func TestRemoveMemberOfStaleRoomKeepsReplacement(t *testing.T) {
	reg := NewRegistry(5, clock.NewMock())
	a := NewClient("a", "")

	old, _ := reg.GetOrCreate("1111", "ip")
	_ = reg.TryAddMember(old, a)
	reg.RemoveMember(old, a)

	b := NewClient("b", "")
	fresh, _ := reg.GetOrCreate("1111", "ip")
	_ = reg.TryAddMember(fresh, b)

	// Removing from the already deleted room must not drop the new one.
	reg.RemoveMember(old, a)
	if got, ok := reg.Get("1111"); !ok || got != fresh {
		t.Fatal("replacement room was dropped")
	}
}

func TestSnapshotSortedByCode(t *testing.T) {
	reg := NewRegistry(5, clock.NewMock())
	for _, code := range []string{"3000", "1000", "2000"} {
		room, _ := reg.GetOrCreate(code, "ip")
		_ = reg.TryAddMember(room, NewClient(code, ""))
	}

	snap := reg.Snapshot()
	if len(snap) != 3 || snap[0].Code != "1000" || snap[2].Code != "3000" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap[1].Members != 1 {
		t.Fatalf("members = %d, want 1", snap[1].Members)
	}
}
