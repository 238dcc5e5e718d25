package chained

import (
	"testing"

	"github.com/kvengine/vbht/lib/vbht"
)

func TestUnorderedFactoryLinksAtHead(t *testing.T) {
	f := NewUnorderedFactory()
	first, _ := f.New(vbht.Item{Key: key("a")}, 1, nil)
	second, head := f.New(vbht.Item{Key: key("b")}, 2, first)

	if second.next != first {
		t.Fatalf("expected second entry to link ahead of first")
	}
	if head != second {
		t.Fatalf("expected the new entry to become the chain head")
	}
}

func TestOrderedFactoryPreservesInsertionOrder(t *testing.T) {
	f := NewOrderedFactory()
	var head *StoredValue
	for i, k := range []string{"a", "b", "c"} {
		_, head = f.New(vbht.Item{Key: key(k)}, uint64(i), head)
	}

	var order []string
	for sv := head; sv != nil; sv = sv.next {
		order = append(order, string(sv.Key.Bytes))
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestOrderedFactoryCopyPreservesSequence(t *testing.T) {
	f := NewOrderedFactory()
	a, _ := f.New(vbht.Item{Key: key("a")}, 0, nil)
	b, head := f.New(vbht.Item{Key: key("b")}, 1, a)
	if head != a {
		t.Fatalf("expected the oldest entry to remain the chain head")
	}

	cp, _ := f.Copy(a, b)
	if cp.next != b {
		t.Fatalf("expected copy of oldest entry to stay ahead of newer entries")
	}
}

func TestOrderedFactoryNewReturnsCreatedNotHead(t *testing.T) {
	f := NewOrderedFactory()
	first, _ := f.New(vbht.Item{Key: key("first")}, 5, nil)
	second, head := f.New(vbht.Item{Key: key("second")}, 1, first)

	if head == second {
		t.Fatalf("expected the later (higher-seq) insert to not become the chain head")
	}
	if head != first {
		t.Fatalf("expected the chain head to remain the earlier (lower-seq) entry")
	}
}
