package slotmap

import "testing"

func TestInsertGetRemove(t *testing.T) {
	m := New[int]()
	key := m.Insert(5)
	if v, ok := m.Get(key); !ok || v != 5 {
		t.Fatalf("got (%d,%v), want (5,true)", v, ok)
	}
	m.Remove(key)
	if _, ok := m.Get(key); ok {
		t.Fatal("expected stale key to miss after removal")
	}

	key2 := m.Insert(10)
	if _, ok := m.Get(key); ok {
		t.Fatal("old key must not resolve to the reused slot")
	}
	if v, ok := m.Get(key2); !ok || v != 10 {
		t.Fatalf("got (%d,%v), want (10,true)", v, ok)
	}

	if p := m.GetMut(key2); p != nil {
		*p = 42
	}
	if v, _ := m.Get(key2); v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestRemoveUnknownKeyIsNoop(t *testing.T) {
	m := New[string]()
	if _, ok := m.Remove(Key[string]{}); ok {
		t.Fatal("removing an unissued key should report false")
	}
}
