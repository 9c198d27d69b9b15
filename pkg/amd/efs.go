// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd parses AMD platform firmware images: the Embedded Firmware
// Structure (EFS) and the PSP/BIOS directory trees it anchors.
//
// All parsing here is read-only and operates on views into the caller's
// byte buffer; nothing outlives that buffer.
package amd

import (
	"bytes"
	"encoding/binary"

	"github.com/system76/romulan/pkg/fwerr"
)

// efsSignature is the Embedded Firmware Structure magic, read as the 4
// bytes 0xAA 0x55 0xAA 0x55 (the little-endian encoding of 0x55AA55AA).
var efsSignature = []byte{0xaa, 0x55, 0xaa, 0x55}

// efsScanStride is the alignment the EFS anchor is searched on.
const efsScanStride = 0x1000

// efsSize is sizeof(EFS): everything through the last reserved byte at
// offset 0x4a.
const efsSize = 0x4b

// Rom is a handle onto an AMD flash image. Its view begins at the EFS
// signature, matching the on-media layout (nothing of interest precedes
// it).
type Rom struct {
	data []byte
	efs  *EFS
}

// Open locates the embedded firmware structure inside buf and returns a
// Rom handle over it. Search proceeds on 4KiB-aligned boundaries; the
// first instance of the EFS signature found becomes the anchor.
func Open(buf []byte) (*Rom, error) {
	for i := 0; i+efsSize <= len(buf); i += efsScanStride {
		if bytes.Equal(buf[i:i+4], efsSignature) {
			efs, err := newEFS(buf[i:])
			if err != nil {
				return nil, err
			}
			return &Rom{data: buf[i:], efs: efs}, nil
		}
	}
	return nil, fwerr.NotFound(fwerr.KindEFSNotFound)
}

// Data returns the Rom's view of the buffer, starting at the EFS anchor.
func (r *Rom) Data() []byte {
	return r.data
}

// EFS returns the parsed Embedded Firmware Structure.
func (r *Rom) EFS() *EFS {
	return r.efs
}

// EFS is a view over the Embedded Firmware Structure record. Its scalar
// accessors copy fields out by value rather than exposing the underlying
// packed layout by reference. A pointer field reading 0 or 0xFFFFFFFF means
// "not present on this generation of image" and callers must check before
// following it.
type EFS struct {
	buf []byte
}

func newEFS(buf []byte) (*EFS, error) {
	if len(buf) < efsSize {
		return nil, fwerr.Truncated("EFS", efsSize, len(buf))
	}
	return &EFS{buf: buf}, nil
}

func (e *EFS) u32(offset int) uint32 { return binary.LittleEndian.Uint32(e.buf[offset : offset+4]) }

// Magic is the raw EFS signature word.
func (e *EFS) Magic() uint32 { return e.u32(0x00) }

// PSP is the pointer to the PSP directory for family 17 models 00 and
// later, or 0 if absent.
func (e *EFS) PSP() uint32 { return e.u32(0x14) }

// Bios17_00_0f is the pointer to the BIOS directory for family 17 models
// 00 to 0f, or 0 if absent.
func (e *EFS) Bios17_00_0f() uint32 { return e.u32(0x18) } //nolint:revive,stylecheck

// Bios17_10_1f is the pointer to the BIOS directory for family 17 models
// 10 to 1f, or 0 if absent.
func (e *EFS) Bios17_10_1f() uint32 { return e.u32(0x1c) } //nolint:revive,stylecheck

// Bios17_30_3f_19_00_0f is the pointer to the BIOS directory for family 17
// models 30 to 3f and family 19 models 00 to 0f, or 0 if absent.
func (e *EFS) Bios17_30_3f_19_00_0f() uint32 { return e.u32(0x20) } //nolint:revive,stylecheck

// SecondGen reports whether this EFS is a second-generation structure:
// bit 0 of the field at 0x24 is clear for second-gen images.
func (e *EFS) SecondGen() bool {
	return e.u32(0x24)&1 == 0
}

// Bios is the pointer to the BIOS directory for family 17 model 60 and
// later, or 0 if absent.
func (e *EFS) Bios() uint32 { return e.u32(0x28) }

// Promontory is the pointer to the promontory firmware, or 0 if absent.
func (e *EFS) Promontory() uint32 { return e.u32(0x30) }

// LpPromontory is the pointer to the low power promontory firmware, or 0
// if absent.
func (e *EFS) LpPromontory() uint32 { return e.u32(0x34) }

// SpiMode15_60_6f is the SPI mode byte for family 15 models 60 to 6f.
func (e *EFS) SpiMode15_60_6f() uint8 { return e.buf[0x40] } //nolint:revive,stylecheck

// SpiSpeed15_60_6f is the SPI speed byte for family 15 models 60 to 6f.
func (e *EFS) SpiSpeed15_60_6f() uint8 { return e.buf[0x41] } //nolint:revive,stylecheck

// SpiMode17_00_1f is the SPI mode byte for family 17 models 00 to 1f.
func (e *EFS) SpiMode17_00_1f() uint8 { return e.buf[0x43] } //nolint:revive,stylecheck

// SpiSpeed17_00_1f is the SPI speed byte for family 17 models 00 to 1f.
func (e *EFS) SpiSpeed17_00_1f() uint8 { return e.buf[0x44] } //nolint:revive,stylecheck

// Micron17_00_1f is the Micron flag for family 17 models 00 to 1f (0x0A
// for Micron parts, 0xFF otherwise).
func (e *EFS) Micron17_00_1f() uint8 { return e.buf[0x45] } //nolint:revive,stylecheck

// SpiMode is the SPI mode byte for family 17 model 30 and later.
func (e *EFS) SpiMode() uint8 { return e.buf[0x47] }

// SpiSpeed is the SPI speed byte for family 17 model 30 and later.
func (e *EFS) SpiSpeed() uint8 { return e.buf[0x48] }

// Micron is the Micron flag for family 17 model 30 and later (0xAA for
// Micron parts, 0x55 for automatic detection).
func (e *EFS) Micron() uint8 { return e.buf[0x49] }
