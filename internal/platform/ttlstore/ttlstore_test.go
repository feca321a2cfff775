package ttlstore

import (
	"testing"
	"time"
)

func newClockedStore(ttl time.Duration) (*Store[string, int], *time.Time) {
	s := New[string, int](ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	return s, &now
}

func TestGet_LiveAtExactExpiry(t *testing.T) {
	s, now := newClockedStore(2 * time.Minute)
	s.Put("k", 7)

	*now = now.Add(2 * time.Minute)
	if v, ok := s.Get("k"); !ok || v != 7 {
		t.Errorf("entry at exact expiry should still be live, got %v %v", v, ok)
	}

	*now = now.Add(time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("entry past expiry should be gone")
	}
}

func TestTouch_SlidesExpiry(t *testing.T) {
	s, now := newClockedStore(2 * time.Minute)
	s.Put("k", 1)

	*now = now.Add(90 * time.Second)
	if !s.Touch("k") {
		t.Fatal("touch on live entry should succeed")
	}

	// Past the original expiry but within the slid one.
	*now = now.Add(90 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Error("touched entry should still be live")
	}
}

func TestPopExpired(t *testing.T) {
	s, now := newClockedStore(time.Minute)
	s.Put("k", 5)

	if _, ok := s.PopExpired("k"); ok {
		t.Error("live entry must not pop as expired")
	}

	*now = now.Add(time.Minute + time.Second)
	v, ok := s.PopExpired("k")
	if !ok || v != 5 {
		t.Errorf("expected expired value 5, got %v %v", v, ok)
	}
	if _, ok := s.PopExpired("k"); ok {
		t.Error("second pop should find nothing")
	}
}

func TestPop_RemovesLiveEntry(t *testing.T) {
	s, _ := newClockedStore(time.Minute)
	s.Put("k", 3)
	if v, ok := s.Pop("k"); !ok || v != 3 {
		t.Errorf("pop = %v %v", v, ok)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("popped entry should be gone")
	}
}

func TestLen_SweepsExpired(t *testing.T) {
	s, now := newClockedStore(time.Minute)
	s.Put("a", 1)
	s.Put("b", 2)
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
	*now = now.Add(2 * time.Minute)
	if s.Len() != 0 {
		t.Errorf("len after expiry = %d", s.Len())
	}
}
