//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"net"
)

// Pipe creates a connected pair of protocol connections. Anything
// sent to the first endpoint can be received from the second and vice
// versa. The pair runs both protocol parties inside one process. The
// endpoints are unbuffered: a connection's writer goroutine blocks
// until the peer reads the data, while Flush returns as soon as a
// spare write buffer is available. The spare buffers keep
// simultaneous sends from deadlocking.
func Pipe() (*Conn, *Conn) {
	c0, c1 := net.Pipe()
	return NewConn(c0), NewConn(c1)
}
