package sidetable

import "testing"

func TestBuilderPatchAndFinish(t *testing.T) {
	b := NewBuilder()
	ref := b.Append(10, 1, 2)
	b.Patch(ref, 23, 5)

	table := b.Finish()
	if len(table) != 1 {
		t.Fatalf("got %d entries, want 1", len(table))
	}
	entry := table[0]
	if entry.DeltaPC != 13 {
		t.Fatalf("DeltaPC = %d, want 13", entry.DeltaPC)
	}
	if entry.DeltaSTP != 5 {
		t.Fatalf("DeltaSTP = %d, want 5", entry.DeltaSTP)
	}
	if entry.ValCount != 1 || entry.PopCount != 2 {
		t.Fatalf("unexpected arity bookkeeping: %+v", entry)
	}
}

func TestFinishPanicsOnUnresolvedEntry(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unresolved sidetable entry")
		}
	}()
	b := NewBuilder()
	b.Append(0, 0, 0)
	b.Finish()
}

func TestBuilderLenTracksAppends(t *testing.T) {
	b := NewBuilder()
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	b.Append(0, 0, 0)
	b.Append(1, 0, 0)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
}
