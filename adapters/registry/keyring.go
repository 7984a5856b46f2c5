package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/internal/eth"
)

// Signers provides transaction options for the addresses the gateway may
// submit writes for.
type Signers interface {
	TransactOpts(ctx context.Context, signer common.Address) (*bind.TransactOpts, error)
}

// KeyRing holds wallet keys loaded at start.
type KeyRing struct {
	chainID *big.Int
	keys    map[common.Address]*ecdsa.PrivateKey
}

// NewKeyRing parses hex private keys for chainID.
func NewKeyRing(chainID *big.Int, hexKeys []string) (*KeyRing, error) {
	k := &KeyRing{
		chainID: chainID,
		keys:    make(map[common.Address]*ecdsa.PrivateKey, len(hexKeys)),
	}
	for i, hexKey := range hexKeys {
		key, err := eth.ParsePrivateKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("wallet key %d: %w", i, err)
		}
		k.keys[crypto.PubkeyToAddress(key.PublicKey)] = key
	}
	return k, nil
}

// TransactOpts returns keyed transaction options for signer.
func (k *KeyRing) TransactOpts(ctx context.Context, signer common.Address) (*bind.TransactOpts, error) {
	key, ok := k.keys[signer]
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrSignerUnavailable, signer.Hex())
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, k.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Addresses returns the addresses with a key, sorted.
func (k *KeyRing) Addresses() []common.Address {
	out := make([]common.Address, 0, len(k.keys))
	for addr := range k.keys {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}
