// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package ticket

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrBadSignature is returned when a signature does not verify for
	// the claimed address and message.
	ErrBadSignature = errors.New("invalid holder signature")

	// ErrSignatureDeclined is returned by a Signer when the holder's
	// key custody agent refuses or fails to sign.
	ErrSignatureDeclined = errors.New("signature declined by the holder")
)

// Signer produces a personal-sign signature over a message. The key
// custody behind it is external to this module; implementations range
// from a local key file to a remote wallet.
type Signer interface {
	Sign(message string) (string, error)
}

// VerifyHolderSignature checks that signature is a valid personal-sign
// (EIP-191) secp256k1 signature by address over exactly the given
// message. The signer identity is recovered from the signature and
// compared to the claimed address, so nothing upstream of this check
// needs to be trusted.
func VerifyHolderSignature(address, message, signature string) error {

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return ErrBadSignature
	}
	if len(sig) != crypto.SignatureLength {
		return ErrBadSignature
	}

	// wallets emit the recovery id as 27/28, the crypto package wants 0/1
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return ErrBadSignature
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), address) {
		return ErrBadSignature
	}
	return nil
}
