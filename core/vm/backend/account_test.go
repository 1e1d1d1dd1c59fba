package backend

import "testing"

func TestNewAccountIsEmpty(t *testing.T) {
	a := NewAccount()
	if !a.isEmpty() {
		t.Error("a fresh account should be empty (zero nonce, zero balance, no code)")
	}
}

func TestAccountNotEmptyWithNonce(t *testing.T) {
	a := NewAccount()
	a.Nonce = 1
	if a.isEmpty() {
		t.Error("an account with a non-zero nonce is not empty")
	}
}

func TestAccountNotEmptyWithCode(t *testing.T) {
	a := NewAccount()
	a.Code = []byte{0x00}
	if a.isEmpty() {
		t.Error("an account with code is not empty")
	}
}

func TestAccountNotEmptyWithBalance(t *testing.T) {
	a := NewAccount()
	a.Balance.SetUint64(1)
	if a.isEmpty() {
		t.Error("an account with a non-zero balance is not empty")
	}
}
