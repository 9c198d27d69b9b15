// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intel parses Intel flash images: a Flash Descriptor plus named
// regions (BIOS, ME, GbE, Platform Data, ...), with the BIOS region being a
// nest of UEFI Firmware Volumes, Files and Sections.
//
// All parsing here is read-only and operates on views into the caller's
// byte buffer; nothing outlives that buffer.
package intel

import (
	"bytes"
	"encoding/binary"

	"github.com/system76/romulan/pkg/fwerr"
)

// FlashSignature is the 4-byte magic that marks the start of an Intel Flash
// Descriptor.
var FlashSignature = []byte{0x5a, 0xa5, 0xf0, 0x0f}

// Rom is a handle onto an Intel flash image. Its view begins 16 bytes
// before the flash descriptor signature (the "flash valid signature"
// region), matching the on-media layout.
type Rom struct {
	data []byte
	desc *FlashDescriptor
}

// Open locates the Intel flash descriptor inside buf and returns a Rom
// handle over it. Search starts at offset 16 and steps by 4 bytes; the
// first instance of FlashSignature found becomes the descriptor anchor.
func Open(buf []byte) (*Rom, error) {
	i := 16
	for i+4 <= len(buf) {
		if bytes.Equal(buf[i:i+4], FlashSignature) {
			fd, err := newFlashDescriptor(buf[i:])
			if err != nil {
				return nil, err
			}
			return &Rom{data: buf[i-16:], desc: fd}, nil
		}
		i += 4
	}
	return nil, fwerr.NotFound(fwerr.KindFlashDescriptorNotFound)
}

// Data returns the Rom's view of the buffer: everything from 16 bytes
// before the descriptor signature onward.
func (r *Rom) Data() []byte {
	return r.data
}

// FlashDescriptor returns the parsed Flash Descriptor record.
func (r *Rom) FlashDescriptor() *FlashDescriptor {
	return r.desc
}

// flashDescriptorMinSize is enough to read valsig/map0/map1/map2.
const flashDescriptorMinSize = 16

// umap1Offset is the byte offset of the UMAP1 field inside the descriptor.
const umap1Offset = 0xefc

// FlashDescriptor is a view over the Intel Flash Descriptor record. Its
// scalar accessors copy fields out by value rather than exposing the
// underlying packed layout by reference.
type FlashDescriptor struct {
	buf []byte
}

func newFlashDescriptor(buf []byte) (*FlashDescriptor, error) {
	if len(buf) < flashDescriptorMinSize {
		return nil, fwerr.Truncated("FlashDescriptor", flashDescriptorMinSize, len(buf))
	}
	return &FlashDescriptor{buf: buf}, nil
}

// Valsig is the flash valid signature, identical to FlashSignature.
func (fd *FlashDescriptor) Valsig() uint32 { return binary.LittleEndian.Uint32(fd.buf[0:4]) }

// Map0 is the first flash descriptor map word; it encodes, among other
// things, the region table offset.
func (fd *FlashDescriptor) Map0() uint32 { return binary.LittleEndian.Uint32(fd.buf[4:8]) }

// Map1 encodes the PCH strap table offset.
func (fd *FlashDescriptor) Map1() uint32 { return binary.LittleEndian.Uint32(fd.buf[8:12]) }

// Map2 is reserved for master-access-section bookkeeping not modeled here.
func (fd *FlashDescriptor) Map2() uint32 { return binary.LittleEndian.Uint32(fd.buf[12:16]) }

// Umap1 is the upper map word, 0xefc bytes into the descriptor. It is read
// lazily since it sits well past the fields actually needed to locate the
// region and strap tables.
func (fd *FlashDescriptor) Umap1() (uint32, error) {
	if len(fd.buf) < umap1Offset+4 {
		return 0, fwerr.Truncated("FlashDescriptor.Umap1", umap1Offset+4, len(fd.buf))
	}
	return binary.LittleEndian.Uint32(fd.buf[umap1Offset : umap1Offset+4]), nil
}

// FlashRegion returns the 9-entry region table pointed to by Map0.
func (r *Rom) FlashRegion() (*RegionTable, error) {
	offset := int(((r.desc.Map0() >> 16) & 0xff) << 4)
	if offset+regionTableSize > len(r.data) {
		return nil, fwerr.RegionTableTruncated(offset)
	}
	return &RegionTable{buf: r.data[offset : offset+regionTableSize]}, nil
}

// FlashPchstrap returns the 18-entry PCH strap table pointed to by Map1.
func (r *Rom) FlashPchstrap() (*PchStrap, error) {
	offset := int(((r.desc.Map1() >> 16) & 0xff) << 4)
	if offset+pchStrapSize > len(r.data) {
		return nil, fwerr.PchstrapTruncated(offset)
	}
	return &PchStrap{buf: r.data[offset : offset+pchStrapSize]}, nil
}

// HighAssurancePlatform reports the HAP bit, bit 16 of PCH strap word 0.
func (r *Rom) HighAssurancePlatform() (bool, error) {
	strap, err := r.FlashPchstrap()
	if err != nil {
		return false, err
	}
	return strap.Data(0)&0x10000 == 0x10000, nil
}
