// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The ticket package implements the Spotlight credential protocol:
// rotation windows, the signed message format, the credential payload
// and the holder signature primitives.
package ticket

import (
	"time"
)

// RotationSeconds is the length of a credential window. A payload is
// accepted within one window of the current one, which bounds the replay
// surface of a screenshot to roughly a minute.
const RotationSeconds = 30

// Clock supplies the current time. Production code uses SystemClock;
// tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// CurrentWindow derives the discrete rotation window from the clock.
// Two calls within the same window epoch return the same integer.
func CurrentWindow(clock Clock) int64 {
	return WindowAt(clock.Now())
}

// WindowAt returns the rotation window containing the given instant.
func WindowAt(t time.Time) int64 {
	return t.Unix() / RotationSeconds
}
