// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd

import (
	"encoding/binary"

	"github.com/system76/romulan/pkg/fwerr"
)

// biosEntrySize is sizeof(BiosDirectoryEntry): 1 (kind) + 1 (region kind)
// + 1 (flags) + 1 (sub program) + 4 (size) + 8 (source) + 8 (destination).
const biosEntrySize = 24

// pspEntrySize is sizeof(PspDirectoryEntry): 1 (kind) + 1 (sub program) +
// 1 (rom id) + 1 (reserved) + 4 (size) + 8 (value).
const pspEntrySize = 16

// pspValueEntrySize marks an entry whose Value is an immediate 8-byte
// value rather than a source address.
const pspValueEntrySize = 0xFFFFFFFF

// BiosEntryLevel2Directory is the BiosDirectoryEntry kind that points at a
// nested BIOS level-2 directory.
const BiosEntryLevel2Directory uint8 = 0x70

// PspEntryLevel2Directory is the PspDirectoryEntry kind that points at a
// nested PSP level-2 directory.
const PspEntryLevel2Directory uint8 = 0x40

// BiosDirectoryEntry describes one entry of a BIOS directory.
type BiosDirectoryEntry struct {
	buf []byte
}

// Kind is the entry's type, used to pick its description and whether it
// recurses into a level-2 directory.
func (e BiosDirectoryEntry) Kind() uint8 { return e.buf[0] }

// RegionKind describes the memory region's security attributes.
func (e BiosDirectoryEntry) RegionKind() uint8 { return e.buf[1] }

// Flags is the raw per-kind flags byte.
func (e BiosDirectoryEntry) Flags() uint8 { return e.buf[2] }

// Instance is the sub-instance selector packed into the top nibble of
// Flags, used to disambiguate entries like PMU firmware variants.
func (e BiosDirectoryEntry) Instance() uint8 { return (e.Flags() >> 4) & 0xF }

// SubProgram filters entries by model.
func (e BiosDirectoryEntry) SubProgram() uint8 { return e.buf[3] }

// Size is the entry's payload size in bytes.
func (e BiosDirectoryEntry) Size() uint32 { return binary.LittleEndian.Uint32(e.buf[4:8]) }

// Source is the entry's raw (unmasked) source address.
func (e BiosDirectoryEntry) Source() uint64 { return binary.LittleEndian.Uint64(e.buf[8:16]) }

// Destination is the entry's raw destination address, meaningful only for
// entries that are copied to a fixed memory location.
func (e BiosDirectoryEntry) Destination() uint64 { return binary.LittleEndian.Uint64(e.buf[16:24]) }

// Data resolves the entry's payload from romData, masking Source with
// mask before indexing (see Walker.SetFlashSize for how mask should be
// derived).
func (e BiosDirectoryEntry) Data(romData []byte, mask uint32) ([]byte, error) {
	start := int(e.Source() & uint64(mask))
	end := start + int(e.Size())
	if end > len(romData) || end < start {
		return nil, fwerr.EntryOutOfRange("BIOS directory entry", start, int(e.Size()), len(romData))
	}
	return romData[start:end], nil
}

// Description names the entry's kind in human-readable form, per the
// dispatch table recorded for AMD BIOS directory entries.
func (e BiosDirectoryEntry) Description() string {
	return biosEntryDescription(e.Kind(), e.Instance())
}

// PspDirectoryEntry describes one entry of a PSP directory.
type PspDirectoryEntry struct {
	buf []byte
}

// Kind is the entry's type, used to pick its description and whether it
// recurses into a level-2 directory.
func (e PspDirectoryEntry) Kind() uint8 { return e.buf[0] }

// SubProgram filters entries by model.
func (e PspDirectoryEntry) SubProgram() uint8 { return e.buf[1] }

// RomID specifies which ROM contains the entry.
func (e PspDirectoryEntry) RomID() uint8 { return e.buf[2] }

// Size is the entry's payload size in bytes, or the sentinel
// pspValueEntrySize when Value is an immediate value rather than an
// address.
func (e PspDirectoryEntry) Size() uint32 { return binary.LittleEndian.Uint32(e.buf[4:8]) }

// Value is either a raw (unmasked) source address, or — when Size reads
// as pspValueEntrySize — an immediate 8-byte value carried directly in
// the directory rather than referencing flash.
func (e PspDirectoryEntry) Value() uint64 { return binary.LittleEndian.Uint64(e.buf[8:16]) }

// Data resolves the entry's payload. When the entry is a value-entry
// (Size == 0xFFFFFFFF) it returns the little-endian bytes of Value
// itself; otherwise it indexes romData at Value masked by mask.
func (e PspDirectoryEntry) Data(romData []byte, mask uint32) ([]byte, error) {
	if e.Size() == pspValueEntrySize {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, e.Value())
		return b, nil
	}
	start := int(e.Value() & uint64(mask))
	end := start + int(e.Size())
	if end > len(romData) || end < start {
		return nil, fwerr.EntryOutOfRange("PSP directory entry", start, int(e.Size()), len(romData))
	}
	return romData[start:end], nil
}

// Description names the entry's kind in human-readable form, per the
// dispatch table recorded for AMD PSP directory entries.
func (e PspDirectoryEntry) Description() string {
	return pspEntryDescription(e.Kind())
}
