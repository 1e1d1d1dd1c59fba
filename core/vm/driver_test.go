package vm

import (
	"testing"

	"github.com/loriopatrick/evm/core/types"
)

func TestDriverNestedCall(t *testing.T) {
	h := newFakeHandler()
	callee := types.HexToAddress("0x2222222222222222222222222222222222222222")
	caller := types.HexToAddress("0x1111111111111111111111111111111111111111")

	// Callee: PUSH1 0x2a, PUSH1 0x00, MSTORE, PUSH1 0x20, PUSH1 0x00, RETURN
	h.code[callee] = []byte{
		byte(PUSH1), 0x2a, byte(PUSH1), 0x00, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	}

	// Caller: CALL(gas=0, addr=callee, value=0, argsOffset=0, argsLen=0,
	// retOffset=0, retLen=32), which copies the callee's output into
	// memory [0, 32), then RETURN that window.
	code := []byte{
		byte(PUSH1), 0x20, // retLen
		byte(PUSH1), 0x00, // retOffset
		byte(PUSH1), 0x00, // argsLen
		byte(PUSH1), 0x00, // argsOffset
		byte(PUSH1), 0x00, // value
		byte(PUSH20),
	}
	code = append(code, callee[:]...)
	code = append(code,
		byte(PUSH1), 0x00, // gas
		byte(CALL),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	)

	rt := NewRuntime(code, nil, Context{Address: caller, Caller: caller, ApparentValue: NewWord()}, false, 0)
	d := NewDriver()
	exit := d.Run(h, rt)
	if exit != ExitReturned {
		t.Fatalf("exit = %v, want ExitReturned", exit)
	}
	got := rt.Machine().ReturnValue()
	if len(got) != 32 || got[31] != 0x2a {
		t.Fatalf("ReturnValue() = %x, want last byte 0x2a", got)
	}
}

func TestDriverNestedCreate(t *testing.T) {
	h := newFakeHandler()
	caller := types.HexToAddress("0x1111111111111111111111111111111111111111")
	newAddr := types.HexToAddress("0x3333333333333333333333333333333333333333")
	h.nextCreateAddr = newAddr

	// Init code: PUSH1 0x01, PUSH1 0x00, MSTORE8, PUSH1 0x01, PUSH1 0x00, RETURN
	// (deploys a single-byte runtime of 0x01).
	initCode := []byte{
		byte(PUSH1), 0x01, byte(PUSH1), 0x00, byte(MSTORE8),
		byte(PUSH1), 0x01, byte(PUSH1), 0x00, byte(RETURN),
	}

	code := []byte{byte(PUSH1), byte(len(initCode))}
	code = append(code, byte(PUSH1), 0x00) // offset placeholder; code is not used below
	_ = code

	// Build CREATE(value=0, offset, length) manually: store init code into
	// memory via CODECOPY from the running code itself is unnecessary here
	// since we can just construct a Machine whose code IS the init code in
	// memory by using CALLDATACOPY from call-data instead.
	outer := []byte{
		byte(PUSH1), byte(len(initCode)), // length
		byte(PUSH1), 0x00, // offset in calldata
		byte(PUSH1), 0x00, // dest in memory
		byte(CALLDATACOPY),
		byte(PUSH1), byte(len(initCode)), // length
		byte(PUSH1), 0x00, // offset
		byte(PUSH1), 0x00, // value
		byte(CREATE),
		byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(RETURN),
	}

	rt := NewRuntime(outer, initCode, Context{Address: caller, Caller: caller, ApparentValue: NewWord()}, false, 0)
	d := NewDriver()
	exit := d.Run(h, rt)
	if exit != ExitReturned {
		t.Fatalf("exit = %v, want ExitReturned", exit)
	}
	if deployed, ok := h.code[newAddr]; !ok || len(deployed) != 1 || deployed[0] != 0x01 {
		t.Fatalf("deployed code at %s = %x, want [0x01]", newAddr.Hex(), deployed)
	}
}

func TestDriverCallDepthLimit(t *testing.T) {
	h := newFakeHandler()
	addr := types.HexToAddress("0x4444444444444444444444444444444444444444")

	// Self-recursive CALL with no base case: PUSH1 0, PUSH1 0, PUSH1 0,
	// PUSH1 0, PUSH1 0, PUSH20 <self>, PUSH1 0, CALL, STOP
	code := []byte{
		byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH1), 0x00,
		byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH20),
	}
	code = append(code, addr[:]...)
	code = append(code, byte(PUSH1), 0x00, byte(CALL), byte(STOP))
	h.code[addr] = code

	rt := NewRuntime(code, nil, Context{Address: addr, Caller: addr, ApparentValue: NewWord()}, false, 0)
	d := NewDriver()
	exit := d.Run(h, rt)
	if exit != ExitStopped {
		t.Fatalf("top-level exit = %v, want ExitStopped (CALL at max depth resolves, doesn't propagate)", exit)
	}
}
