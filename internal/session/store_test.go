package session

import (
	"sync"
	"testing"
)

func TestStore_CreateAndResolve(t *testing.T) {
	s := NewStore()

	token := s.Create("user-1")
	if token == "" {
		t.Fatal("Create returned empty token")
	}

	userID, ok := s.Resolve(token)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if userID != "user-1" {
		t.Errorf("Resolve() = %q, want %q", userID, "user-1")
	}
}

func TestStore_ResolveUnknownToken(t *testing.T) {
	s := NewStore()

	if _, ok := s.Resolve("nope"); ok {
		t.Error("Resolve(unknown) ok = true, want false")
	}
}

func TestStore_MultipleSessionsPerUser(t *testing.T) {
	s := NewStore()

	t1 := s.Create("user-1")
	t2 := s.Create("user-1")

	if t1 == t2 {
		t.Error("repeat login produced duplicate token")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	for _, token := range []string{t1, t2} {
		if userID, ok := s.Resolve(token); !ok || userID != "user-1" {
			t.Errorf("Resolve(%q) = (%q, %v), want (user-1, true)", token, userID, ok)
		}
	}
}

func TestStore_ConcurrentCreateResolve(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := s.Create("user-1")
			if _, ok := s.Resolve(token); !ok {
				t.Error("token created concurrently did not resolve")
			}
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
