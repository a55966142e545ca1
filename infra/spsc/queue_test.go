package spsc

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := New[uint64](8)
	for i := uint64(0); i < 8; i++ {
		s := q.WriteSlot()
		if s == nil {
			t.Fatalf("unexpected overflow at %d", i)
		}
		*s = i * 10
		q.CommitWrite()
	}
	if q.Size() != 8 {
		t.Fatalf("expected size 8, got %d", q.Size())
	}
	for i := uint64(0); i < 8; i++ {
		s := q.ReadSlot()
		if s == nil {
			t.Fatalf("unexpected empty at %d", i)
		}
		if *s != i*10 {
			t.Errorf("read %d, want %d", *s, i*10)
		}
		q.CommitRead()
	}
	if q.ReadSlot() != nil {
		t.Error("expected nil read slot on drained queue")
	}
}

func TestQueueOverflowRejected(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		*q.WriteSlot() = i
		q.CommitWrite()
	}
	if q.WriteSlot() != nil {
		t.Fatal("expected nil write slot when full")
	}
	// Draining one element frees exactly one slot.
	q.ReadSlot()
	q.CommitRead()
	if q.WriteSlot() == nil {
		t.Fatal("expected a free slot after one read")
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := New[int](4)
	for round := 0; round < 100; round++ {
		for i := 0; i < 3; i++ {
			s := q.WriteSlot()
			*s = round*10 + i
			q.CommitWrite()
		}
		for i := 0; i < 3; i++ {
			s := q.ReadSlot()
			if *s != round*10+i {
				t.Fatalf("round %d: read %d, want %d", round, *s, round*10+i)
			}
			q.CommitRead()
		}
	}
}

func TestQueueConcurrentHandOff(t *testing.T) {
	const n = 1 << 16
	q := New[uint64](1 << 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		next := uint64(0)
		for next < n {
			s := q.ReadSlot()
			if s == nil {
				continue
			}
			if *s != next {
				t.Errorf("out of order: read %d, want %d", *s, next)
				return
			}
			q.CommitRead()
			next++
		}
	}()

	for i := uint64(0); i < n; {
		s := q.WriteSlot()
		if s == nil {
			continue
		}
		*s = i
		q.CommitWrite()
		i++
	}
	<-done
}

func BenchmarkQueueHandOff(b *testing.B) {
	q := New[uint64](1 << 12)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for read := 0; read < b.N; {
			if q.ReadSlot() != nil {
				q.CommitRead()
				read++
			}
		}
	}()
	for i := 0; i < b.N; {
		s := q.WriteSlot()
		if s == nil {
			continue
		}
		*s = uint64(i)
		q.CommitWrite()
		i++
	}
	<-done
}
