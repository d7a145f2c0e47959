package deque

import "testing"

// FuzzDeque performs fuzz testing on Deque to verify its size/occupancy
// invariants hold under arbitrary interleavings of push/pop operations at
// both ends, the same style as an ingress-queue fuzz target: feed it a
// sequence of op codes and check the ring never reports a size
// inconsistent with what was actually pushed and popped.
func FuzzDeque(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 0, 1, 2, 3})
	f.Add([]byte{})
	f.Add([]byte{4, 5, 6, 7})

	f.Fuzz(func(t *testing.T, ops []byte) {
		const capacity = 8
		d := New[int](capacity)
		pushed, popped := 0, 0

		for i, op := range ops {
			switch op % 4 {
			case 0:
				if d.PushFront(i) {
					pushed++
				}
			case 1:
				if d.PushBack(i) {
					pushed++
				}
			case 2:
				if _, ok := d.PopFront(); ok {
					popped++
				}
			case 3:
				if _, ok := d.PopBack(); ok {
					popped++
				}
			}
			if d.Size() != pushed-popped {
				t.Fatalf("size invariant violated: size=%d, pushed=%d, popped=%d", d.Size(), pushed, popped)
			}
			if d.Size() > capacity {
				t.Fatalf("size exceeded capacity: %d > %d", d.Size(), capacity)
			}
		}

		drained := 0
		for {
			if _, ok := d.PopFront(); ok {
				drained++
			} else {
				break
			}
		}
		if drained != pushed-popped {
			t.Fatalf("drain mismatch: drained=%d, expected=%d", drained, pushed-popped)
		}
	})
}
