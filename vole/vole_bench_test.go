//
// vole_bench_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package vole

import (
	"fmt"
	"testing"

	"github.com/markkurossi/psi/p2p"
)

func BenchmarkExpand(b *testing.B) {
	sizes := []int{1 << 10, 1 << 16, 1 << 20}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			c0, c1 := p2p.Pipe()

			extS := NewExt(nil, c0, SenderRole)
			extR := NewExt(nil, c1, ReceiverRole)
			extS.Fake = true
			extR.Fake = true

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, _, err := extS.ExpandSend(n); err != nil {
					b.Fatalf("ExpandSend: %v", err)
				}
				if _, _, err := extR.ExpandReceive(n); err != nil {
					b.Fatalf("ExpandReceive: %v", err)
				}
			}
		})
	}
}
