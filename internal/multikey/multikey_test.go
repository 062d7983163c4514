package multikey

import "testing"

func TestPutAndLookupBothKeys(t *testing.T) {
	idx := New[string]()
	idx.Put(1, "alice", "session-1")

	if v, ok := idx.ByID(1); !ok || v != "session-1" {
		t.Fatalf("ByID(1) = %q, %v, want session-1, true", v, ok)
	}
	if v, ok := idx.ByName("alice"); !ok || v != "session-1" {
		t.Fatalf("ByName(alice) = %q, %v, want session-1, true", v, ok)
	}
}

func TestDeleteRemovesBothKeys(t *testing.T) {
	idx := New[string]()
	idx.Put(1, "alice", "session-1")
	idx.Delete(1, "alice")

	if _, ok := idx.ByID(1); ok {
		t.Fatal("ByID(1) found after Delete, want not found")
	}
	if _, ok := idx.ByName("alice"); ok {
		t.Fatal("ByName(alice) found after Delete, want not found")
	}
}

func TestLenAndNames(t *testing.T) {
	idx := New[int]()
	idx.Put(1, "alice", 100)
	idx.Put(2, "bob", 200)

	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}

	names := idx.Names()
	if len(names) != 2 {
		t.Fatalf("len(Names()) = %d, want 2", len(names))
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Fatalf("Names() = %v, want alice and bob", names)
	}
}

func TestOverwriteExistingID(t *testing.T) {
	idx := New[string]()
	idx.Put(1, "alice", "v1")
	idx.Put(1, "alice", "v2")

	if v, _ := idx.ByID(1); v != "v2" {
		t.Fatalf("ByID(1) = %q, want v2", v)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
}
