// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package klog provides the shared debug logger used across kalahd.
//
// Operationally relevant events (new connection, game created, store
// failure) always go through the standard log package so they reach
// the default log output. Protocol-level chatter goes through Debug,
// which is discarded unless explicitly enabled.
package klog

import (
	"io"
	"log"
)

// Debug is silent by default; SetOutput is called once at startup if
// the active configuration enables debug logging.
var Debug = log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds)
