// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package ticket

import (
	"strings"
)

// The prefix and suffix literals act as a protocol version tag: any
// change to them, or to the field order, invalidates every previously
// issued signature.
const (
	messagePrefix = "SPOTLIGHT_TICKET"
	messageSuffix = "GIKI_EVENT"
)

// SigningMessage builds the exact string the holder signs for a ticket.
// The message itself is never transmitted, only its signature is.
func SigningMessage(address, tokenID, eventID string) string {
	return messagePrefix + ":" + address + ":" + tokenID + ":" + eventID + ":" + messageSuffix
}

// NormalizeAddress returns the canonical lowercase form of a holder
// address, the form stored and compared everywhere outside signatures.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
