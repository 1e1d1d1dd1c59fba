package vm

import "testing"

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	if st.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", st.Len())
	}

	if err := st.Push(WordFromUint64(1)); err != noError {
		t.Fatalf("Push() error: %v", err)
	}
	if err := st.Push(WordFromUint64(2)); err != noError {
		t.Fatalf("Push() error: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", st.Len())
	}

	top, err := st.Pop()
	if err != noError {
		t.Fatalf("Pop() error: %v", err)
	}
	if top.Uint64() != 2 {
		t.Fatalf("Pop() = %d, want 2", top.Uint64())
	}
	if st.Len() != 1 {
		t.Fatalf("Len() after pop = %d, want 1", st.Len())
	}
}

func TestStackPopUnderflow(t *testing.T) {
	st := NewStack()
	if _, err := st.Pop(); err != ErrStackUnderflow {
		t.Fatalf("Pop() on empty stack = %v, want ErrStackUnderflow", err)
	}
}

func TestStackOverflow(t *testing.T) {
	st := NewStack()
	for i := 0; i < stackLimit; i++ {
		if err := st.Push(WordFromUint64(uint64(i))); err != noError {
			t.Fatalf("Push() #%d error: %v", i, err)
		}
	}
	if err := st.Push(WordFromUint64(0)); err != ErrStackOverflow {
		t.Fatalf("Push() past limit = %v, want ErrStackOverflow", err)
	}
}

func TestStackPeekSet(t *testing.T) {
	st := NewStack()
	st.Push(WordFromUint64(10))
	st.Push(WordFromUint64(20))
	st.Push(WordFromUint64(30))

	v, err := st.Peek(0)
	if err != noError || v.Uint64() != 30 {
		t.Fatalf("Peek(0) = %v, %v; want 30, nil", v, err)
	}
	v, err = st.Peek(2)
	if err != noError || v.Uint64() != 10 {
		t.Fatalf("Peek(2) = %v, %v; want 10, nil", v, err)
	}
	if _, err := st.Peek(3); err != ErrStackUnderflow {
		t.Fatalf("Peek(3) = %v, want ErrStackUnderflow", err)
	}

	if err := st.Set(1, WordFromUint64(99)); err != noError {
		t.Fatalf("Set() error: %v", err)
	}
	v, _ = st.Peek(1)
	if v.Uint64() != 99 {
		t.Fatalf("Peek(1) after Set = %d, want 99", v.Uint64())
	}
}

func TestStackPopped(t *testing.T) {
	st := NewStack()
	st.Push(WordFromUint64(1))
	st.Push(WordFromUint64(2))
	st.Push(WordFromUint64(3))

	vals, err := st.popped(3)
	if err != noError {
		t.Fatalf("popped() error: %v", err)
	}
	want := []uint64{3, 2, 1}
	for i, w := range vals {
		if w.Uint64() != want[i] {
			t.Errorf("popped()[%d] = %d, want %d", i, w.Uint64(), want[i])
		}
	}
	if st.Len() != 0 {
		t.Fatalf("Len() after popped(3) = %d, want 0", st.Len())
	}
}

func TestStackPoppedUnderflow(t *testing.T) {
	st := NewStack()
	st.Push(WordFromUint64(1))
	if _, err := st.popped(2); err != ErrStackUnderflow {
		t.Fatalf("popped(2) on 1-deep stack = %v, want ErrStackUnderflow", err)
	}
}
