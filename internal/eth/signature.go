// Package eth wraps the wallet message-signing scheme (EIP-191 personal_sign)
// used to prove control of an address.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/labledger/core"
)

// DecodeSignature parses a 0x-prefixed 65 byte [R || S || V] signature.
// Wallets emit V as 27/28; it is normalised to 0/1.
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return nil, fmt.Errorf("invalid recovery id: %w", core.ErrInvalidSignature)
	}
	return sig, nil
}

// RecoverAddress returns the address that personal-signed message.
func RecoverAddress(message string, signature string) (common.Address, error) {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignText personal-signs message and returns the hex signature with V in
// wallet form (27/28).
func SignText(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// ParsePrivateKey parses a hex private key with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// NormalizeAddress validates a hex address and returns its lower-cased form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", core.ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}
