// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package ticket

import (
	"encoding/json"
)

// SignatureRecord is the signing result cached per (holder, event) pair.
// It is obtained once and reused across every window rotation of the
// session; the holder is never asked to sign twice for one event.
type SignatureRecord struct {
	Address   string `json:"address"`
	TokenID   string `json:"tokenId"`
	Signature string `json:"signature"` // hex-encoded, 0x prefixed
}

// Credential is the wire payload transferred by QR code or copy-paste.
// It is ephemeral: rebuilt from a cached signature plus the fresh window
// every rotation, and discarded after one verification attempt.
type Credential struct {
	Address   string `json:"address"`
	TokenID   string `json:"tokenId"`
	Signature string `json:"signature"`
	EventID   string `json:"eventId"`
	Window    int64  `json:"window"`
}

// Encode serializes a credential payload from a signature record, the
// target event and a window index. Encoding is lossless and carries no
// timestamp: only the window index travels, which is what lets one
// signature serve across rotations. Identical inputs produce identical
// bytes.
func Encode(record *SignatureRecord, eventID string, window int64) ([]byte, error) {
	c := Credential{
		Address:   record.Address,
		TokenID:   record.TokenID,
		Signature: record.Signature,
		EventID:   eventID,
		Window:    window,
	}
	return json.Marshal(c)
}

// Decode parses a raw payload. Unknown extra fields are ignored for
// forward compatibility; the presence of required fields is checked by
// the verifier, not here.
func Decode(raw []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
