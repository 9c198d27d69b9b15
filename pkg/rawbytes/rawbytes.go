// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawbytes holds small byte-slice helpers shared by the intel and
// amd parsers, mostly around detecting erased/padding flash.
package rawbytes

// IsFilledWith reports whether every byte of b equals value. It recognizes
// erased flash (0xFF) or zeroed padding (0x00) without needing to know
// which polarity a given region uses.
func IsFilledWith(b []byte, value byte) bool {
	for _, v := range b {
		if v != value {
			return false
		}
	}
	return true
}

// Align rounds offset up to the next multiple of alignment, which must be a
// power of two.
func Align(offset uint64, alignment uint64) uint64 {
	return (offset + alignment - 1) &^ (alignment - 1)
}
