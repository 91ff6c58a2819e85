// Package eth holds the Ethereum signature helpers used by response
// verification: EIP-191 personal-message hashing and address recovery.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PersonalHash returns the EIP-191 hash of a personal-sign message.
func PersonalHash(message string) []byte {
	return accounts.TextHash([]byte(message))
}

// RecoverAddress recovers the signer address from a personal-sign signature
// over the given message. The signature is the usual 0x-prefixed 65-byte
// r||s||v form with v in {0,1,27,28}.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	// Adjust recovery ID for Ethereum
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(PersonalHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignPersonalMessage produces a personal-sign signature with v in {27,28}.
// Used by tests and by hosts that embed a local key.
func SignPersonalMessage(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(PersonalHash(message), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// ValidAddress checks if a string is a valid Ethereum address.
func ValidAddress(address string) bool {
	return common.IsHexAddress(address)
}
