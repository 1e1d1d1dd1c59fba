package backend

import (
	"testing"

	"github.com/loriopatrick/evm/core/types"
)

func TestBlockHashWithinWindow(t *testing.T) {
	env := NewEnvironment()
	env.Number = 100
	h := types.HexToHash("1111111111111111111111111111111111111111111111111111111111111111")
	env.SetBlockHash(90, h)
	if got := env.BlockHash(90); got != h {
		t.Errorf("BlockHash(90) = %s, want %s", got.Hex(), h.Hex())
	}
}

func TestBlockHashOutsideWindowReturnsZero(t *testing.T) {
	env := NewEnvironment()
	env.Number = 500
	h := types.HexToHash("2222222222222222222222222222222222222222222222222222222222222222")
	env.SetBlockHash(100, h)
	if got := env.BlockHash(100); !got.IsZero() {
		t.Errorf("BlockHash(100) at block 500 = %s, want zero (outside the 256-block window)", got.Hex())
	}
}

func TestBlockHashAtOrAfterCurrentReturnsZero(t *testing.T) {
	env := NewEnvironment()
	env.Number = 10
	if got := env.BlockHash(10); !got.IsZero() {
		t.Error("BlockHash of the current block should be zero")
	}
	if got := env.BlockHash(11); !got.IsZero() {
		t.Error("BlockHash of a future block should be zero")
	}
}

func TestBlockHashRingWraps(t *testing.T) {
	env := NewEnvironment()
	env.Number = 300
	older := types.HexToHash("3333333333333333333333333333333333333333333333333333333333333333")
	newer := types.HexToHash("4444444444444444444444444444444444444444444444444444444444444444")
	// 50 and 50+256 share the same ring slot; the later SetBlockHash wins.
	env.SetBlockHash(50, older)
	env.SetBlockHash(50+256, newer)
	if env.blockHashes[50%256] != newer {
		t.Error("the ring slot should hold the most recently written hash")
	}
}
