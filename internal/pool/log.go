// SPDX-License-Identifier: AGPL-3.0-or-later
//
package pool

import "log"

// logStoreErr reports a store failure on the unconditional logger.
// Per spec.md 7, store failures (kind 5) are logged and the current
// handler fails softly rather than tearing down the connection.
func logStoreErr(err error) {
	log.Print("pool: store error: ", err)
}
