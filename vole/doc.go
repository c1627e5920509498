//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package vole implements a vector-oblivious linear evaluation (VOLE)
// correlation generator over GF(2^128).
//
// A VOLE instance of length n gives the sender a scalar Delta and a
// vector B[0..n-1], and the receiver vectors A[0..n-1] and C[0..n-1],
// satisfying:
//
//	B[i] = C[i] ^ Delta * A[i]
//
// where the multiplication is in GF(2^128). The sender learns nothing
// about A or C, and the receiver learns nothing about Delta or B;
// the correlation is the only shared information.
//
// The package defines the Sender and Receiver interfaces and the Ext
// implementation. Ext without a base OT runs a PRG-shim protocol
// where the receiver transfers its expansion seed in the clear. The
// shim produces correctly correlated vectors with one protocol
// message and is intended for tests and benchmarks only. The package
// does not implement a silent VOLE extension on top of the BaseOT
// interface: with a base OT, Setup runs the base OT initialization and
// returns ErrNotImplemented, and the expansion still runs the shim.
package vole
