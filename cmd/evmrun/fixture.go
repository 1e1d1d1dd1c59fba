package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v2"

	"github.com/loriopatrick/evm/core/types"
	"github.com/loriopatrick/evm/core/vm/backend"
)

// Fixture is the YAML shape evmrun loads a run from: one top-level call
// into a world of pre-funded accounts, plus the block context the run
// sees through BLOCKHASH/COINBASE/TIMESTAMP/etc.
type Fixture struct {
	Caller   string             `yaml:"caller"`
	Address  string             `yaml:"address"`
	Value    string             `yaml:"value"`
	Data     string             `yaml:"data"`
	IsStatic bool               `yaml:"static"`
	GasLimit uint64             `yaml:"gas_limit"`
	Accounts map[string]Account `yaml:"accounts"`
	Block    BlockFixture       `yaml:"block"`
}

// Account is one entry of the fixture's pre-state.
type Account struct {
	Balance string            `yaml:"balance"`
	Nonce   uint64            `yaml:"nonce"`
	Code    string            `yaml:"code"`
	Storage map[string]string `yaml:"storage"`
}

// BlockFixture supplies the Environment fields a run can observe.
type BlockFixture struct {
	Number      uint64            `yaml:"number"`
	Timestamp   uint64            `yaml:"timestamp"`
	GasLimit    uint64            `yaml:"gas_limit"`
	Difficulty  string            `yaml:"difficulty"`
	Coinbase    string            `yaml:"coinbase"`
	ChainID     string            `yaml:"chain_id"`
	GasPrice    string            `yaml:"gas_price"`
	BlockHashes map[uint64]string `yaml:"block_hashes"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Build materializes the fixture into a backend.Backend plus the code,
// calldata, and value the top-level run starts with.
func (f *Fixture) Build() (be *backend.Backend, code, calldata []byte, value *uint256.Int, err error) {
	env := backend.NewEnvironment()
	env.Number = f.Block.Number
	env.Timestamp = f.Block.Timestamp
	env.GasLimit = f.Block.GasLimit
	env.Coinbase = parseAddress(f.Block.Coinbase)
	if env.Difficulty, err = parseWord(f.Block.Difficulty); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("block.difficulty: %w", err)
	}
	if env.ChainID, err = parseWord(f.Block.ChainID); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("block.chain_id: %w", err)
	}
	if env.GasPrice, err = parseWord(f.Block.GasPrice); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("block.gas_price: %w", err)
	}
	for n, h := range f.Block.BlockHashes {
		env.SetBlockHash(n, types.HexToHash(h))
	}
	env.Origin = parseAddress(f.Caller)

	be = backend.New(env)
	for addrHex, acct := range f.Accounts {
		a := backend.NewAccount()
		a.Nonce = acct.Nonce
		if a.Balance, err = parseWord(acct.Balance); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("account %s balance: %w", addrHex, err)
		}
		if a.Code, err = parseHex(acct.Code); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("account %s code: %w", addrHex, err)
		}
		for k, v := range acct.Storage {
			a.Storage[types.HexToHash(k)] = types.HexToHash(v)
		}
		be.SetAccount(parseAddress(addrHex), a)
	}

	if code, err = parseHex(f.Accounts[f.Address].Code); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("address code: %w", err)
	}
	if calldata, err = parseHex(f.Data); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("data: %w", err)
	}
	if value, err = parseWord(f.Value); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("value: %w", err)
	}
	return be, code, calldata, value, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

func parseAddress(s string) types.Address {
	if s == "" {
		return types.Address{}
	}
	return types.HexToAddress(s)
}

func parseWord(s string) (*uint256.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	w := new(uint256.Int)
	if s == "" {
		return w, nil
	}
	if err := w.SetFromHex("0x" + s); err != nil {
		return nil, err
	}
	return w, nil
}
