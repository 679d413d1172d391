package zframe

import "testing"

type fakeMem []uint8

func (m fakeMem) ReadByte(addr uint32) uint8 { return m[addr] }
func (m fakeMem) ReadWord(addr uint32) uint16 {
	return uint16(m[addr])<<8 | uint16(m[addr+1])
}

func TestCallReservesLocalsAndArgs(t *testing.T) {
	// Routine at 0x10: 2 locals, v3 default values 0x0001 and 0x0002.
	mem := make(fakeMem, 0x20)
	mem[0x10] = 2
	mem[0x11], mem[0x12] = 0x00, 0x01
	mem[0x13], mem[0x14] = 0x00, 0x02

	s := NewStack(0)
	newPC, entered := s.Call(mem, 3, 0x10, []uint16{0xAAAA}, StoreTarget{Variable: 1}, 0x99)
	if !entered {
		t.Fatal("expected call to enter a new frame")
	}
	if newPC != 0x15 {
		t.Fatalf("expected new PC past locals, got %#x", newPC)
	}

	f := s.Current()
	if f.ReadLocal(1) != 0xAAAA {
		t.Fatalf("expected local 1 to be the passed argument, got %#x", f.ReadLocal(1))
	}
	if f.ReadLocal(2) != 2 {
		t.Fatalf("expected local 2 to keep its v3 default, got %#x", f.ReadLocal(2))
	}
	if f.ArgCount != 1 {
		t.Fatalf("expected ArgCount 1, got %d", f.ArgCount)
	}
}

func TestCallToZeroStoresNothingAndDoesNotEnter(t *testing.T) {
	mem := make(fakeMem, 0x10)
	s := NewStack(0)

	_, entered := s.Call(mem, 3, 0, nil, StoreTarget{Variable: 1}, 0x50)
	if entered {
		t.Fatal("call to routine 0 should not push a frame")
	}
	if s.Depth() != 1 {
		t.Fatalf("expected only the entrypoint frame, depth %d", s.Depth())
	}
}

func TestRetRestoresParentAndStoreTarget(t *testing.T) {
	mem := make(fakeMem, 0x10)
	s := NewStack(0)

	newPC, _ := s.Call(mem, 5, 0x01, []uint16{7}, StoreTarget{Variable: 3}, 0x200)
	_ = newPC

	returnPC, storeTo := s.Ret()
	if returnPC != 0x200 {
		t.Fatalf("expected return PC 0x200, got %#x", returnPC)
	}
	if storeTo.Discard || storeTo.Variable != 3 {
		t.Fatalf("expected store target variable 3, got %+v", storeTo)
	}
	if s.Depth() != 1 {
		t.Fatalf("expected depth back to 1 after ret, got %d", s.Depth())
	}
}

func TestRetOnEntrypointPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ret on the entrypoint frame to panic")
		}
	}()
	s := NewStack(0)
	s.Ret()
}

func TestEvaluationStackUnderflowIsReported(t *testing.T) {
	f := &Frame{}
	if _, ok := f.Pop(); ok {
		t.Fatal("expected underflow to report false, not a value")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	mem := make(fakeMem, 0x10)
	s := NewStack(0)
	s.Call(mem, 5, 0x01, nil, DiscardTarget, 0x10)
	s.Current().Push(42)

	dup := s.Copy()
	s.Current().Push(99)

	if v, _ := dup.Current().Peek(); v != 42 {
		t.Fatalf("expected copy to be unaffected by later mutation, got %d", v)
	}
}
