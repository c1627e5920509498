//
// psi_bench_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"fmt"
	"testing"

	"github.com/markkurossi/psi/okvs"
	"github.com/markkurossi/psi/p2p"
)

func BenchmarkPSI(b *testing.B) {
	for _, n := range []int{1 << 12, 1 << 16} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			gen := okvs.NewPRNG(okvs.BlockFromUint64(21, 22))
			set := make([]okvs.Block, n)
			gen.Blocks(set)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c0, c1 := p2p.Pipe()

				sender := NewSender(n, n)
				receiver := NewReceiver(n, n)
				sender.Fake = true
				receiver.Fake = true
				sender.NumThreads = 4
				receiver.NumThreads = 4

				done := make(chan error, 2)
				go func() {
					done <- sender.Run(set, c0)
				}()
				go func() {
					done <- receiver.Run(set, c1)
				}()
				if err := <-done; err != nil {
					b.Fatal(err)
				}
				if err := <-done; err != nil {
					b.Fatal(err)
				}
				if len(receiver.Intersection) != n {
					b.Fatalf("intersection %d, expected %d",
						len(receiver.Intersection), n)
				}
			}
		})
	}
}
