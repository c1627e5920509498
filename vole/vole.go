//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package vole

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/psi/okvs"
	"github.com/markkurossi/psi/p2p"
)

// Role specifies the VOLE protocol roles.
type Role int

// VOLE protocol roles.
const (
	SenderRole Role = iota
	ReceiverRole
)

func (r Role) String() string {
	switch r {
	case SenderRole:
		return "sender"
	case ReceiverRole:
		return "receiver"
	default:
		return fmt.Sprintf("{Role %d}", r)
	}
}

// VOLE errors.
var (
	ErrRole           = errors.New("vole: operation does not match role")
	ErrNotImplemented = errors.New("vole: not implemented")
)

// Sender generates the sender side of a VOLE correlation: the scalar
// Delta and the vector B with B[i] = C[i] ^ Delta*A[i].
type Sender interface {
	ExpandSend(n int) (delta okvs.Block, b []okvs.Block, err error)
}

// Receiver generates the receiver side of a VOLE correlation: the
// vectors A and C.
type Receiver interface {
	ExpandReceive(n int) (a, c []okvs.Block, err error)
}

// BaseOT provides the base oblivious transfers for a silent VOLE
// extension. Implementations run their setup and transfer phases over
// the protocol connection.
type BaseOT interface {
	InitSender(conn *p2p.Conn) error
	InitReceiver(conn *p2p.Conn) error
	Send(m0, m1 []okvs.Block) error
	Receive(flags []bool, result []okvs.Block) error
}

// Ext implements the Sender and Receiver interfaces over a protocol
// connection. Without a base OT it runs the PRG-shim protocol.
type Ext struct {
	conn *p2p.Conn
	role Role
	base BaseOT
	rand io.Reader

	// Fake derives the correlation from a fixed seed on both sides
	// without any communication. Benchmarking only.
	Fake bool

	// ReducedRounds leaves the seed message unflushed so that it is
	// transmitted together with the next protocol message.
	ReducedRounds bool
}

// NewExt creates a VOLE instance for the role over the connection.
// The base OT may be nil in which case the instance runs the PRG-shim
// protocol.
func NewExt(base BaseOT, conn *p2p.Conn, role Role) *Ext {
	return &Ext{
		conn: conn,
		role: role,
		base: base,
		rand: rand.Reader,
	}
}

// Setup prepares the base OTs. In shim mode the setup is a no-op.
// With a base OT it runs the base OT initialization for the role and
// then returns ErrNotImplemented; no silent extension is implemented.
func (e *Ext) Setup(r io.Reader) error {
	if r != nil {
		e.rand = r
	}
	if e.base == nil {
		return nil
	}
	if e.role == SenderRole {
		if err := e.base.InitSender(e.conn); err != nil {
			return fmt.Errorf("vole: InitSender: %w", err)
		}
	} else {
		if err := e.base.InitReceiver(e.conn); err != nil {
			return fmt.Errorf("vole: InitReceiver: %w", err)
		}
	}
	return fmt.Errorf("vole: silent extension: %w", ErrNotImplemented)
}

// ExpandSend generates the sender side of a length n correlation. The
// shim receives the receiver's expansion seed, recomputes A and C,
// and folds a locally sampled Delta into B.
func (e *Ext) ExpandSend(n int) (okvs.Block, []okvs.Block, error) {
	if e.role != SenderRole {
		return okvs.Block{}, nil, fmt.Errorf("vole: ExpandSend as %s: %w",
			e.role, ErrRole)
	}
	delta, err := okvs.NewBlock(e.rand)
	if err != nil {
		return okvs.Block{}, nil, fmt.Errorf("vole: delta: %w", err)
	}

	seed := fakeSeed
	if !e.Fake {
		var bd okvs.BlockData
		if err := e.conn.ReceiveBlock(&seed, &bd); err != nil {
			return okvs.Block{}, nil,
				fmt.Errorf("vole: receive seed: %w", err)
		}
	}

	a, b := expandSeed(seed, n)
	for i := range b {
		b[i].Xor(delta.Mul(a[i]))
	}
	return delta, b, nil
}

// ExpandReceive generates the receiver side of a length n
// correlation. The shim samples the expansion seed, sends it to the
// sender, and derives A and C from it.
func (e *Ext) ExpandReceive(n int) ([]okvs.Block, []okvs.Block, error) {
	if e.role != ReceiverRole {
		return nil, nil, fmt.Errorf("vole: ExpandReceive as %s: %w",
			e.role, ErrRole)
	}

	seed := fakeSeed
	if !e.Fake {
		var err error
		seed, err = okvs.NewBlock(e.rand)
		if err != nil {
			return nil, nil, fmt.Errorf("vole: seed: %w", err)
		}
		var bd okvs.BlockData
		if err := e.conn.SendBlock(seed, &bd); err != nil {
			return nil, nil, fmt.Errorf("vole: send seed: %w", err)
		}
		if !e.ReducedRounds {
			if err := e.conn.Flush(); err != nil {
				return nil, nil, fmt.Errorf("vole: flush seed: %w", err)
			}
		}
	}

	a, c := expandSeed(seed, n)
	return a, c, nil
}
