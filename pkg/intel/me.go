// Copyright 2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/system76/romulan/pkg/fwerr"
)

// fptSignature is the Flash Partition Table magic, "$FPT".
var fptSignature = []byte{'$', 'F', 'P', 'T'}

// fptScanStride is the alignment the ME region's $FPT anchor is searched on.
const fptScanStride = 0x1000

// fptHeaderSize and legacyFptHeaderSize are sizeof(FlashPartitionTableHeader)
// and its legacy counterpart: the legacy header is prefixed by 16 padding
// bytes, and both share the same marker/count/version/length/checksum/
// ticks/tokens layout before their size/flags tail diverges.
const (
	fptHeaderSize       = 0x20
	legacyFptHeaderSize = 0x10 + 0x20
	fptEntrySize        = 0x20
)

// Me is the Intel Management Engine region: a Flash Partition Table
// anchored on a 4KiB-aligned "$FPT" marker, followed by a sequence of
// fixed-size partition entries.
type Me struct {
	data []byte
}

// Data returns the raw ME region bytes.
func (m *Me) Data() []byte {
	return m.data
}

// Modules returns the u32 module count at region offset 0x14, when the
// region is at least 0x18 bytes long.
func (m *Me) Modules() (uint32, bool) {
	if len(m.data) < 0x18 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.data[0x14:0x18]), true
}

// FlashPartitionTable locates and parses the region's $FPT header and
// partition entries.
func (m *Me) FlashPartitionTable() (*FlashPartitionTable, error) {
	legacy := false
	offset := -1
	for i := 0; i+len(fptSignature) <= len(m.data); i += fptScanStride {
		if bytes.Equal(m.data[i:i+4], fptSignature) {
			offset = i
			break
		}
		if i+16+4 <= len(m.data) && bytes.Equal(m.data[i+16:i+20], fptSignature) {
			legacy = true
			offset = i
			break
		}
	}
	if offset == -1 {
		return nil, fmt.Errorf("no flash partition table found")
	}

	headerSize := fptHeaderSize
	markerOff := 0
	if legacy {
		headerSize = legacyFptHeaderSize
		markerOff = 16
	}
	if offset+headerSize > len(m.data) {
		return nil, fwerr.Truncated("FlashPartitionTableHeader", headerSize, len(m.data)-offset)
	}
	hdr := m.data[offset:]

	headerVersion := hdr[markerOff+8]
	if headerVersion != 0x20 {
		return nil, fmt.Errorf("unsupported flash partition table header version %#x", headerVersion)
	}
	numEntries := int(binary.LittleEndian.Uint32(hdr[markerOff+4 : markerOff+8]))
	declaredLen := int(hdr[markerOff+10])

	fpt := &FlashPartitionTable{
		offset:        offset,
		legacy:        legacy,
		headerVersion: headerVersion,
		entryVersion:  hdr[markerOff+9],
	}
	if !legacy && declaredLen >= 0x20 {
		// FitcMajor/Minor/Hotfix/Build sit at the tail of the non-legacy
		// header, after the flags word, when present (absent on ME 7).
		fpt.fitcMajor = binary.LittleEndian.Uint16(hdr[24:26])
		fpt.fitcMinor = binary.LittleEndian.Uint16(hdr[26:28])
		fpt.fitcHotfix = binary.LittleEndian.Uint16(hdr[28:30])
		fpt.fitcBuild = binary.LittleEndian.Uint16(hdr[30:32])
		fpt.hasVersion = true
	}

	entriesStart := offset + declaredLen
	for i := 0; i < numEntries; i++ {
		entryOff := entriesStart + i*fptEntrySize
		if entryOff+fptEntrySize > len(m.data) {
			return nil, fwerr.EntryOutOfRange("FlashPartitionTableEntry", entryOff, fptEntrySize, len(m.data))
		}
		e := m.data[entryOff : entryOff+fptEntrySize]
		fpt.entries = append(fpt.entries, FlashPartitionTableEntry{
			name:    [4]byte(e[0:4]),
			offset:  binary.LittleEndian.Uint32(e[8:12]),
			length:  binary.LittleEndian.Uint32(e[12:16]),
			flags:   binary.LittleEndian.Uint32(e[28:32]),
			baseOff: offset,
		})
	}
	return fpt, nil
}

// FlashPartitionTable is the parsed $FPT header plus its partition entries.
type FlashPartitionTable struct {
	offset        int
	legacy        bool
	headerVersion uint8
	entryVersion  uint8
	hasVersion    bool
	fitcMajor     uint16
	fitcMinor     uint16
	fitcHotfix    uint16
	fitcBuild     uint16
	entries       []FlashPartitionTableEntry
}

// Legacy reports whether the 16-byte-padded legacy header form was found.
func (t *FlashPartitionTable) Legacy() bool { return t.legacy }

// Version returns the ME firmware version as reported by the FITC fields,
// when present, and whether it was present at all (absent on ME 7 images).
func (t *FlashPartitionTable) Version() (major, minor, hotfix, build uint16, ok bool) {
	return t.fitcMajor, t.fitcMinor, t.fitcHotfix, t.fitcBuild, t.hasVersion
}

// VersionString formats the FITC version as "major.minor.hotfix.build",
// or the empty string when the header carries no version fields.
func (t *FlashPartitionTable) VersionString() string {
	if !t.hasVersion {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d", t.fitcMajor, t.fitcMinor, t.fitcHotfix, t.fitcBuild)
}

// Entries returns the parsed partition directory.
func (t *FlashPartitionTable) Entries() []FlashPartitionTableEntry {
	return t.entries
}

// FlashPartitionTableEntry describes one ME partition.
type FlashPartitionTableEntry struct {
	name    [4]byte
	offset  uint32
	length  uint32
	flags   uint32
	baseOff int
}

// Name is the partition's 4-character identifier (e.g. "FTPR", "MFS").
func (e FlashPartitionTableEntry) Name() string {
	return string(bytes.TrimRight(e.name[:], "\x00"))
}

// Valid reports whether the partition's flags mark it present rather than
// an empty directory slot.
func (e FlashPartitionTableEntry) Valid() bool {
	return e.flags>>24 != 0xff
}

// Data returns the partition's bytes, relative to the region me was built
// from, or nil if out of bounds.
func (e FlashPartitionTableEntry) Data(me *Me) []byte {
	start := e.baseOff + int(e.offset)
	end := start + int(e.length)
	if start < 0 || end > len(me.data) || end < start {
		return nil
	}
	return me.data[start:end]
}
