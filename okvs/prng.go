//
// prng.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// PRNG is a deterministic pseudo-random number generator seeded by a
// block. The keystream is ChaCha20 with a zero nonce.
type PRNG struct {
	stream *chacha20.Cipher
	buf    []byte
	pos    int
}

// NewPRNG creates a new PRNG from the seed block.
func NewPRNG(seed Block) *PRNG {
	var sd BlockData
	seed.GetData(&sd)

	var key [32]byte
	copy(key[:16], sd[:])
	copy(key[16:], sd[:])

	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err)
	}
	return &PRNG{
		stream: stream,
		buf:    make([]byte, 4096),
		pos:    4096,
	}
}

func (p *PRNG) fill() {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.stream.XORKeyStream(p.buf, p.buf)
	p.pos = 0
}

// Bytes fills data with pseudo-random bytes.
func (p *PRNG) Bytes(data []byte) {
	for len(data) > 0 {
		if p.pos >= len(p.buf) {
			p.fill()
		}
		n := copy(data, p.buf[p.pos:])
		p.pos += n
		data = data[n:]
	}
}

// Uint64 returns a pseudo-random 64-bit integer.
func (p *PRNG) Uint64() uint64 {
	var d [8]byte
	p.Bytes(d[:])
	return binary.BigEndian.Uint64(d[:])
}

// Block returns a pseudo-random block.
func (p *PRNG) Block() Block {
	var d BlockData
	p.Bytes(d[:])

	var b Block
	b.SetData(&d)
	return b
}

// Blocks fills out with pseudo-random blocks.
func (p *PRNG) Blocks(out []Block) {
	for i := range out {
		out[i] = p.Block()
	}
}
