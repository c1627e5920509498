//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package vole

import (
	"github.com/markkurossi/psi/okvs"
)

// fakeSeed is the shared expansion seed of the fake mode.
var fakeSeed = okvs.BlockFromUint64(0x564f4c45, 0x73656564)

// expandSeed derives the receiver correlation vectors A and C from
// the expansion seed. Both parties of the shim protocol must call
// this with the same seed and length.
func expandSeed(seed okvs.Block, n int) (a, c []okvs.Block) {
	prng := okvs.NewPRNG(seed)
	a = make([]okvs.Block, n)
	c = make([]okvs.Block, n)
	prng.Blocks(a)
	prng.Blocks(c)
	return
}
