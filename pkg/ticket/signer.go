// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package ticket

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs with a local secp256k1 key. It backs the wallet CLI
// and the tests; the server itself never holds holder keys.
type KeySigner struct {
	key *ecdsa.PrivateKey
}

// NewKeySigner generates a fresh random key.
func NewKeySigner() (*KeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key}, nil
}

// KeySignerFromHex loads a hex-encoded private key, with or without a
// 0x prefix.
func KeySignerFromHex(hexkey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexkey, "0x"))
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key}, nil
}

// Address returns the checksummed address of the signing key.
func (s *KeySigner) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

// Sign produces a personal-sign signature over the message, in the
// 65-byte wallet convention (recovery id 27/28), hex-encoded.
func (s *KeySigner) Sign(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), s.key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}
