package idpool

import "testing"

func TestGetAssignsLowestFree(t *testing.T) {
	p := New()
	if got := p.Get(); got != 0 {
		t.Fatalf("first Get() = %d, want 0", got)
	}
	if got := p.Get(); got != 1 {
		t.Fatalf("second Get() = %d, want 1", got)
	}
	if got := p.Get(); got != 2 {
		t.Fatalf("third Get() = %d, want 2", got)
	}
}

func TestPutReclaimsLowestFirst(t *testing.T) {
	p := New()
	a := p.Get() // 0
	_ = p.Get()  // 1
	c := p.Get() // 2

	p.Put(a)
	p.Put(c)

	if got := p.Get(); got != a {
		t.Fatalf("Get() after Put = %d, want reclaimed %d", got, a)
	}
}

func TestPutUnheldPanics(t *testing.T) {
	p := New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic putting an unheld id")
		}
	}()
	p.Put(42)
}

func TestInUseAndCount(t *testing.T) {
	p := New()
	id := p.Get()
	if !p.InUse(id) {
		t.Fatalf("InUse(%d) = false, want true", id)
	}
	if p.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", p.Count())
	}
	p.Put(id)
	if p.InUse(id) {
		t.Fatalf("InUse(%d) = true after Put, want false", id)
	}
	if p.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", p.Count())
	}
}
