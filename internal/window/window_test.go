package window

import "testing"

func TestFullRequiresCapacitySamples(t *testing.T) {
	w := New(3)
	if w.Full() {
		t.Fatal("Full() = true on empty window")
	}
	w.Add(1)
	w.Add(2)
	if w.Full() {
		t.Fatal("Full() = true before capacity reached")
	}
	w.Add(3)
	if !w.Full() {
		t.Fatal("Full() = false at capacity")
	}
}

func TestAddEvictsOldest(t *testing.T) {
	w := New(3)
	w.Add(1)
	w.Add(2)
	w.Add(3)
	w.Add(4) // evicts 1

	if got, want := w.Sum(), 9.0; got != want {
		t.Fatalf("Sum() = %v, want %v", got, want)
	}
}

func TestMean(t *testing.T) {
	w := New(4)
	if w.Mean() != 0 {
		t.Fatalf("Mean() on empty window = %v, want 0", w.Mean())
	}
	w.Add(2)
	w.Add(4)
	if got, want := w.Mean(), 3.0; got != want {
		t.Fatalf("Mean() = %v, want %v", got, want)
	}
}

func TestSpan(t *testing.T) {
	w := New(4)
	w.Add(10)
	w.Add(3)
	w.Add(7)
	if got, want := w.Span(), 7.0; got != want {
		t.Fatalf("Span() = %v, want %v", got, want)
	}
}

func TestResetClearsSamples(t *testing.T) {
	w := New(2)
	w.Add(1)
	w.Add(2)
	w.Reset()

	if w.Full() {
		t.Fatal("Full() = true after Reset")
	}
	if w.Len() != 0 {
		t.Fatalf("Len() = %d after Reset, want 0", w.Len())
	}
	if w.Sum() != 0 {
		t.Fatalf("Sum() = %v after Reset, want 0", w.Sum())
	}
}

func TestCapacityFloor(t *testing.T) {
	w := New(0)
	w.Add(5)
	if !w.Full() {
		t.Fatal("Full() = false on capacity-1 window after one Add")
	}
}
