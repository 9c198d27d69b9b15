// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"

	"github.com/system76/romulan/pkg/guid"
	"github.com/system76/romulan/pkg/rawbytes"
)

// fileHeaderSize is sizeof(FileHeader): 16 (GUID) + 2 (integrity check) +
// 1 (kind) + 1 (attributes) + 3 (size) + 1 (state).
const fileHeaderSize = 24

// freeSpaceSize is the 24-bit "no more files" sentinel.
const freeSpaceSize = 0xFFFFFF

// FileKind identifies the type of a firmware file.
type FileKind uint8

// File kinds, per the UEFI PI firmware file system spec.
const (
	FileKindRaw                FileKind = 0x01
	FileKindFreeform           FileKind = 0x02
	FileKindSecurityCore       FileKind = 0x03
	FileKindPeiCore            FileKind = 0x04
	FileKindDxeCore            FileKind = 0x05
	FileKindPeim               FileKind = 0x06
	FileKindDriver             FileKind = 0x07
	FileKindCombinedPeimDriver FileKind = 0x08
	FileKindApplication        FileKind = 0x09
	FileKindMm                 FileKind = 0x0A
	FileKindVolumeImage        FileKind = 0x0B
	FileKindCombinedMmDxe      FileKind = 0x0C
	FileKindMmCore             FileKind = 0x0D
	FileKindMmStandalone       FileKind = 0x0E
	FileKindMmCoreStandalone   FileKind = 0x0F
)

func (k FileKind) String() string {
	switch {
	case k == FileKindRaw:
		return "Raw"
	case k == FileKindFreeform:
		return "Freeform"
	case k == FileKindSecurityCore:
		return "SecurityCore"
	case k == FileKindPeiCore:
		return "PeiCore"
	case k == FileKindDxeCore:
		return "DxeCore"
	case k == FileKindPeim:
		return "Peim"
	case k == FileKindDriver:
		return "Driver"
	case k == FileKindCombinedPeimDriver:
		return "CombinedPeimDriver"
	case k == FileKindApplication:
		return "Application"
	case k == FileKindMm:
		return "Mm"
	case k == FileKindVolumeImage:
		return "VolumeImage"
	case k == FileKindCombinedMmDxe:
		return "CombinedMmDxe"
	case k == FileKindMmCore:
		return "MmCore"
	case k == FileKindMmStandalone:
		return "MmStandalone"
	case k == FileKindMmCoreStandalone:
		return "MmCoreStandalone"
	case k >= 0xC0 && k <= 0xDF:
		return "OEM"
	case k >= 0xE0 && k <= 0xEF:
		return "Debug"
	case k >= 0xF0:
		return "FFS"
	default:
		return "Unknown"
	}
}

// sectionedKinds are the file kinds whose body is a sequence of sections
// rather than an opaque blob.
var sectionedKinds = map[FileKind]bool{
	FileKindFreeform:           true,
	FileKindPeiCore:            true,
	FileKindDxeCore:            true,
	FileKindPeim:               true,
	FileKindDriver:             true,
	FileKindCombinedPeimDriver: true,
	FileKindApplication:        true,
	FileKindMm:                 true,
	FileKindVolumeImage:        true,
	FileKindCombinedMmDxe:      true,
	FileKindMmCore:             true,
	FileKindMmStandalone:       true,
}

// Sectioned reports whether k's file body is a sequence of sections.
func (k FileKind) Sectioned() bool {
	return sectionedKinds[k]
}

// FileState bits, after erase-polarity inversion and truncation to the
// known bits.
type FileState uint8

// Known file state bits.
const (
	FileStateHeaderConstruction FileState = 0x01
	FileStateHeaderValid        FileState = 0x02
	FileStateDataValid          FileState = 0x04
	FileStateMarkedForUpdate    FileState = 0x08
	FileStateDeleted            FileState = 0x10
	FileStateHeaderInvalid      FileState = 0x20
)

const knownFileStateBits = FileState(0x3F)

// BiosFiles iterates files inside a firmware volume's body.
type BiosFiles struct {
	data     []byte
	i        int
	polarity bool
}

// Next returns the next file, or nil at end of stream. A file whose 24-bit
// size field reads as the free-space sentinel (0xFFFFFF) ends iteration
// with no file emitted, matching the on-media convention for trailing free
// space.
func (it *BiosFiles) Next() *BiosFile {
	if it.i+fileHeaderSize > len(it.data) {
		return nil
	}
	header := it.data[it.i:]
	size := decode24(header[20:23])
	if size == freeSpaceSize {
		it.i = len(it.data)
		return nil
	}
	if size < fileHeaderSize || it.i+size > len(it.data) {
		return nil
	}
	f := &BiosFile{
		hdr:      header[:fileHeaderSize],
		data:     it.data[it.i : it.i+size],
		polarity: it.polarity,
	}
	it.i += int(rawbytes.Align(uint64(size), 8))
	return f
}

func decode24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// BiosFile is a single file inside a firmware volume.
type BiosFile struct {
	hdr      []byte
	data     []byte
	polarity bool
}

// GUID is the file's unique identifier.
func (f *BiosFile) GUID() guid.GUID {
	var g guid.GUID
	copy(g[:], f.hdr[0:16])
	return g
}

// IntegrityCheck is the raw header+data checksum field.
func (f *BiosFile) IntegrityCheck() uint16 { return binary.LittleEndian.Uint16(f.hdr[16:18]) }

// Kind is the file's type.
func (f *BiosFile) Kind() FileKind { return FileKind(f.hdr[18]) }

// rawAttributes is the unparsed attributes byte.
func (f *BiosFile) rawAttributes() uint8 { return f.hdr[19] }

// Alignment is the required data alignment class, bits 3-5 of attributes.
func (f *BiosFile) Alignment() uint8 {
	return (f.rawAttributes() & 0x38) >> 3
}

// Size is the file's 24-bit declared size, header included.
func (f *BiosFile) Size() int { return decode24(f.hdr[20:23]) }

// State decodes the file's state byte, inverting it first when the
// volume's erase polarity is set, then truncating to the known bits.
func (f *BiosFile) State() FileState {
	s := f.hdr[23]
	if f.polarity {
		s = ^s
	}
	return FileState(s) & knownFileStateBits
}

// Data returns the file body, following the fixed header.
func (f *BiosFile) Data() []byte {
	return f.data[fileHeaderSize:]
}

// Sections returns a lazy iterator over this file's sections. Callers
// should check Kind().Sectioned() first; a non-sectioned file's body is
// opaque and Sections() over it will not yield meaningful results.
func (f *BiosFile) Sections() *BiosSections {
	return &BiosSections{data: f.Data()}
}
