package memory

import "testing"

func TestFlatIndex_AddAndSearch(t *testing.T) {
	ix := newFlatIndex(2)
	for _, vec := range [][]float32{{0, 0}, {1, 0}, {5, 5}} {
		if _, err := ix.add(vec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	positions, distances, err := ix.search([]float32{0.9, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(positions))
	}
	if positions[0] != 1 || positions[1] != 0 {
		t.Fatalf("expected positions [1 0], got %v", positions)
	}
	if distances[0] > distances[1] {
		t.Fatalf("distances not ascending: %v", distances)
	}
}

func TestFlatIndex_KClampedToSize(t *testing.T) {
	ix := newFlatIndex(2)
	ix.add([]float32{1, 1})

	positions, _, err := ix.search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected k clamped to 1, got %d", len(positions))
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	ix := newFlatIndex(3)
	if _, err := ix.add([]float32{1, 2}); err == nil {
		t.Fatal("expected dimension error on add")
	}
	if _, _, err := ix.search([]float32{1, 2}, 1); err == nil {
		t.Fatal("expected dimension error on search")
	}
}
