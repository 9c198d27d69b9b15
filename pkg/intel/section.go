// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/system76/romulan/pkg/fwerr"
	"github.com/system76/romulan/pkg/guid"
	"github.com/system76/romulan/pkg/lzma"
	"github.com/system76/romulan/pkg/rawbytes"
	"golang.org/x/text/encoding/unicode"
)

// sectionHeaderSize is sizeof(SectionHeader): 3 (size) + 1 (kind). Extended
// (4-byte) sizes are not modeled; no section observed in practice needs one.
const sectionHeaderSize = 4

// guidDefinedHeaderSize is sizeof(GuidDefinedHeader): 16 (guid) + 2
// (data offset) + 2 (attributes).
const guidDefinedHeaderSize = 20

// SectionKind identifies the type of a firmware file section.
type SectionKind uint8

// Section kinds, per the UEFI PI firmware file system spec.
const (
	SectionKindCompression     SectionKind = 0x01
	SectionKindGuidDefined     SectionKind = 0x02
	SectionKindDisposable      SectionKind = 0x03
	SectionKindPe32            SectionKind = 0x10
	SectionKindPic             SectionKind = 0x11
	SectionKindTe              SectionKind = 0x12
	SectionKindDxeDepex        SectionKind = 0x13
	SectionKindVersion         SectionKind = 0x14
	SectionKindUserInterface   SectionKind = 0x15
	SectionKindCompatibility16 SectionKind = 0x16
	SectionKindVolumeImage     SectionKind = 0x17
	SectionKindFreeform        SectionKind = 0x18
	SectionKindRaw             SectionKind = 0x19
	SectionKindPeiDepex        SectionKind = 0x1B
	SectionKindMmDepex         SectionKind = 0x1C
)

func (k SectionKind) String() string {
	switch k {
	case SectionKindCompression:
		return "Compression"
	case SectionKindGuidDefined:
		return "GuidDefined"
	case SectionKindDisposable:
		return "Disposable"
	case SectionKindPe32:
		return "PE32"
	case SectionKindPic:
		return "PIC"
	case SectionKindTe:
		return "TE"
	case SectionKindDxeDepex:
		return "DXE Depex"
	case SectionKindVersion:
		return "Version"
	case SectionKindUserInterface:
		return "User Interface"
	case SectionKindCompatibility16:
		return "Compatibility16"
	case SectionKindVolumeImage:
		return "Volume Image"
	case SectionKindFreeform:
		return "Freeform"
	case SectionKindRaw:
		return "Raw"
	case SectionKindPeiDepex:
		return "PEI Depex"
	case SectionKindMmDepex:
		return "MM Depex"
	default:
		return "Unknown"
	}
}

// Sections returns a lazy iterator over the sections found in an arbitrary
// byte buffer. It is the entry point used to recurse into a decompressed
// GUID-defined section payload, whose plaintext is a section stream rather
// than a file body.
func Sections(data []byte) *BiosSections {
	return &BiosSections{data: data}
}

// BiosSections iterates sections inside a file's body. Each entry advances
// by its declared size rounded up to a 4-byte boundary.
type BiosSections struct {
	data []byte
	i    int
}

// Next returns the next section, or nil once fewer than a header's worth of
// bytes remain.
func (it *BiosSections) Next() *BiosSection {
	if it.i+sectionHeaderSize > len(it.data) {
		return nil
	}
	header := it.data[it.i:]
	size := decode24(header[0:3])
	if size < sectionHeaderSize || it.i+size > len(it.data) {
		return nil
	}
	s := &BiosSection{
		hdr:  header[:sectionHeaderSize],
		data: it.data[it.i : it.i+size],
	}
	it.i += int(rawbytes.Align(uint64(size), 4))
	return s
}

// BiosSection is a single section inside a firmware file.
type BiosSection struct {
	hdr  []byte
	data []byte
}

// Size is the section's 24-bit declared size, header included.
func (s *BiosSection) Size() int { return decode24(s.hdr[0:3]) }

// Kind is the section's type.
func (s *BiosSection) Kind() SectionKind { return SectionKind(s.hdr[3]) }

// Data returns the section body, following the fixed header.
func (s *BiosSection) Data() []byte {
	return s.data[sectionHeaderSize:]
}

// GuidDefinedGUID returns the section's format GUID. Only meaningful when
// Kind() == SectionKindGuidDefined.
func (s *BiosSection) GuidDefinedGUID() (guid.GUID, error) {
	body := s.Data()
	if len(body) < guidDefinedHeaderSize {
		return guid.GUID{}, fwerr.Truncated("GuidDefinedHeader", guidDefinedHeaderSize, len(body))
	}
	var g guid.GUID
	copy(g[:], body[0:16])
	return g, nil
}

// GuidDefinedDataOffset returns the nested header's data offset field. Only
// meaningful when Kind() == SectionKindGuidDefined.
func (s *BiosSection) GuidDefinedDataOffset() (uint16, error) {
	body := s.Data()
	if len(body) < guidDefinedHeaderSize {
		return 0, fwerr.Truncated("GuidDefinedHeader", guidDefinedHeaderSize, len(body))
	}
	return binary.LittleEndian.Uint16(body[16:18]), nil
}

// Decompress returns the decoded payload of a GUID-defined LZMA section,
// using d to perform the decompression. The compressed stream starts right
// after the nested GUID-defined header, and its plaintext is itself a
// sequence of sections (walk it with Sections). Returns an error if this
// section's GUID is not the well-known LZMA compression GUID.
func (s *BiosSection) Decompress(d lzma.Decompressor) ([]byte, error) {
	g, err := s.GuidDefinedGUID()
	if err != nil {
		return nil, err
	}
	if !g.Equal(guid.SECTION_LZMA_COMPRESS_GUID) {
		return nil, fwerr.Decompression(fmt.Errorf("unsupported GUID-defined section format %s", g))
	}
	out, err := d.Decompress(s.Data()[guidDefinedHeaderSize:])
	if err != nil {
		return nil, fwerr.Decompression(err)
	}
	return out, nil
}

// UserInterfaceName decodes a User Interface section's UCS-2 file name.
// Only meaningful when Kind() == SectionKindUserInterface.
func (s *BiosSection) UserInterfaceName() (string, error) {
	if s.Kind() != SectionKindUserInterface {
		return "", fmt.Errorf("section kind %s is not a User Interface section", s.Kind())
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(s.Data())
	if err != nil {
		return "", fmt.Errorf("decoding User Interface name: %w", err)
	}
	return strings.TrimRight(string(decoded), "\x00"), nil
}

// VolumeImageVolumes returns a lazy iterator over the firmware volume(s)
// embedded in a VolumeImage section's body. Only meaningful when Kind() ==
// SectionKindVolumeImage.
func (s *BiosSection) VolumeImageVolumes() *BiosVolumes {
	return &BiosVolumes{data: s.Data()}
}
