//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"fmt"
	"log"
	"net"
	"time"
)

const (
	dialRetries = 60
	dialDelay   = 5 * time.Second
)

// Listen waits for one protocol connection on the TCP address addr.
func Listen(addr string) (*Conn, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	log.Printf("listening for peer at %s\n", addr)
	nc, err := listener.Accept()
	if err != nil {
		return nil, err
	}
	log.Printf("peer connected from %s\n", nc.RemoteAddr())
	return NewConn(nc), nil
}

// Dial connects to the peer at the TCP address addr, retrying every
// dialDelay for at most dialRetries attempts.
func Dial(addr string) (*Conn, error) {
	for i := 0; i < dialRetries; i++ {
		nc, err := net.Dial("tcp", addr)
		if err != nil {
			log.Printf("connect to %s failed, retrying in %s\n",
				addr, dialDelay)
			<-time.After(dialDelay)
			continue
		}
		log.Printf("connected to %s\n", addr)
		return NewConn(nc), nil
	}
	return nil, fmt.Errorf("p2p: could not connect to %s", addr)
}
