//
// aes.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package okvs

import (
	"crypto/aes"
	"crypto/cipher"
)

// AES implements a fixed-key correlation-robust hash in the
// Matyas-Meyer-Oseas form: H(x) = E_k(x) ^ x.
type AES struct {
	enc cipher.Block
}

// NewAES creates a new hasher with the key block.
func NewAES(key Block) *AES {
	var kd BlockData
	key.GetData(&kd)

	enc, err := aes.NewCipher(kd[:])
	if err != nil {
		panic(err)
	}
	return &AES{
		enc: enc,
	}
}

// HashBlock hashes the block x.
func (a *AES) HashBlock(x Block) Block {
	var in, out BlockData

	x.GetData(&in)
	a.enc.Encrypt(out[:], in[:])

	var h Block
	h.SetData(&out)
	h.Xor(x)
	return h
}

// HashBlocks hashes the blocks of in into out. The slices must have
// the same length.
func (a *AES) HashBlocks(out, in []Block) {
	var id, od BlockData

	for i, x := range in {
		x.GetData(&id)
		a.enc.Encrypt(od[:], id[:])

		var h Block
		h.SetData(&od)
		h.Xor(x)
		out[i] = h
	}
}
