// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lzma implements decoding of the LZMA stream format used inside
// GUID-defined firmware volume sections.
//
// This is the external LZMA collaborator referred to by the parsing engine:
// a pure function from compressed bytes to plaintext bytes. The engine
// calls it only through the Decompressor interface defined here, so that
// callers may substitute a different implementation (e.g. one that shells
// out to a system `xz`/`unlzma` binary) for Default.
package lzma

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Decompressor turns a compressed byte stream into its plaintext. It must
// behave as a pure function: the same input always yields the same output
// or the same error, and it must not retain or mutate its input.
type Decompressor interface {
	Decompress(encoded []byte) ([]byte, error)
}

// Default is the Go-native LZMA decoder used unless a caller supplies its
// own Decompressor.
var Default Decompressor = goLZMA{}

type goLZMA struct{}

// Decompress decodes a byte slice of raw LZMA data, as produced by EDK2's
// LZMA compress tool and consumed by GUID-defined LZMA sections.
func (goLZMA) Decompress(encoded []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
