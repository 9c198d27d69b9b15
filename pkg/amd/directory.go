// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd

import (
	"encoding/binary"

	"github.com/system76/romulan/pkg/fwerr"
)

// directoryHeaderSize is sizeof(DirectoryHeader): 4 (magic) + 4 (checksum)
// + 4 (entries) + 4 (reserved).
const directoryHeaderSize = 16

// comboDirectoryHeaderSize is sizeof(ComboDirectoryHeader): 4 (magic) + 4
// (checksum) + 4 (entries) + 4 (look up mode) + 16 (reserved).
const comboDirectoryHeaderSize = 32

// comboDirectoryEntrySize is sizeof(ComboDirectoryEntry): 4 (id select) +
// 4 (id) + 8 (directory address).
const comboDirectoryEntrySize = 16

// maxDirectoryRecursionDepth bounds how deep a directory may recurse
// through level-2 and combo indirection before traversal is aborted.
const maxDirectoryRecursionDepth = 16

// DirectoryKind identifies which of the six on-media directory shapes a
// Directory holds.
type DirectoryKind int

// Directory kinds, dispatched on their 4-byte magic.
const (
	DirectoryKindBios DirectoryKind = iota
	DirectoryKindBiosCombo
	DirectoryKindBiosLevel2
	DirectoryKindPsp
	DirectoryKindPspCombo
	DirectoryKindPspLevel2
)

func (k DirectoryKind) String() string {
	switch k {
	case DirectoryKindBios:
		return "BIOS Directory"
	case DirectoryKindBiosCombo:
		return "BIOS Combo Directory"
	case DirectoryKindBiosLevel2:
		return "BIOS Level 2 Directory"
	case DirectoryKindPsp:
		return "PSP Directory"
	case DirectoryKindPspCombo:
		return "PSP Combo Directory"
	case DirectoryKindPspLevel2:
		return "PSP Level 2 Directory"
	default:
		return "Unknown Directory"
	}
}

var directoryMagics = map[string]DirectoryKind{
	"$BHD": DirectoryKindBios,
	"2BHD": DirectoryKindBiosCombo,
	"$BL2": DirectoryKindBiosLevel2,
	"$PSP": DirectoryKindPsp,
	"2PSP": DirectoryKindPspCombo,
	"$PL2": DirectoryKindPspLevel2,
}

// DirectoryHeader is the common header of a non-combo directory.
type DirectoryHeader struct {
	buf []byte
}

// Magic is the raw 4-byte directory signature.
func (h DirectoryHeader) Magic() [4]byte { return [4]byte(h.buf[0:4]) }

// Checksum is the CRC of all directory data after this header. It is
// exposed for callers to verify but is not itself checked during parsing.
func (h DirectoryHeader) Checksum() uint32 { return binary.LittleEndian.Uint32(h.buf[4:8]) }

// Entries is the declared entry count.
func (h DirectoryHeader) Entries() uint32 { return binary.LittleEndian.Uint32(h.buf[8:12]) }

// ComboDirectoryHeader is the header of a combo ("2BHD"/"2PSP") directory.
type ComboDirectoryHeader struct {
	buf []byte
}

// Magic is the raw 4-byte directory signature.
func (h ComboDirectoryHeader) Magic() [4]byte { return [4]byte(h.buf[0:4]) }

// Checksum is the CRC of all directory data after this header.
func (h ComboDirectoryHeader) Checksum() uint32 { return binary.LittleEndian.Uint32(h.buf[4:8]) }

// Entries is the declared entry count.
func (h ComboDirectoryHeader) Entries() uint32 { return binary.LittleEndian.Uint32(h.buf[8:12]) }

// LookUpMode is 0 for dynamic lookup through all entries, 1 for PSP-or-
// chip-ID matching. Only meaningful for PSP combo directories.
func (h ComboDirectoryHeader) LookUpMode() uint32 { return binary.LittleEndian.Uint32(h.buf[12:16]) }

// ComboDirectoryEntry selects one of several child directories by PSP or
// chip ID.
type ComboDirectoryEntry struct {
	buf []byte
}

// IDSelect is 0 to compare the PSP ID, 1 to compare the chip ID.
func (e ComboDirectoryEntry) IDSelect() uint32 { return binary.LittleEndian.Uint32(e.buf[0:4]) }

// ID is the PSP or chip ID to match.
func (e ComboDirectoryEntry) ID() uint32 { return binary.LittleEndian.Uint32(e.buf[4:8]) }

// DirectoryAddress is the raw (unmasked) address of the selected
// directory.
func (e ComboDirectoryEntry) DirectoryAddress() uint64 { return binary.LittleEndian.Uint64(e.buf[8:16]) }

// Directory is a parsed on-media directory: one of the six shapes named
// by DirectoryKind, normalized into a single type so callers can walk a
// tree mixing combo and non-combo directories without a type switch at
// every level.
type Directory struct {
	Kind DirectoryKind

	Header      DirectoryHeader
	ComboHeader ComboDirectoryHeader

	BiosEntries  []BiosDirectoryEntry
	PspEntries   []PspDirectoryEntry
	ComboEntries []ComboDirectoryEntry
}

// ParseDirectory reads the directory at the start of data, dispatching on
// its 4-byte magic.
func ParseDirectory(data []byte) (*Directory, error) {
	if len(data) < 4 {
		return nil, fwerr.Truncated("Directory magic", 4, len(data))
	}
	kind, ok := directoryMagics[string(data[0:4])]
	if !ok {
		return nil, fwerr.UnknownDirectorySignature(0, data[0:4])
	}

	switch kind {
	case DirectoryKindBiosCombo, DirectoryKindPspCombo:
		return parseComboDirectory(kind, data)
	default:
		return parseSimpleDirectory(kind, data)
	}
}

func parseSimpleDirectory(kind DirectoryKind, data []byte) (*Directory, error) {
	if len(data) < directoryHeaderSize {
		return nil, fwerr.Truncated("DirectoryHeader", directoryHeaderSize, len(data))
	}
	header := DirectoryHeader{buf: data[:directoryHeaderSize]}
	n := int(header.Entries())

	entrySize := pspEntrySize
	if kind == DirectoryKindBios || kind == DirectoryKindBiosLevel2 {
		entrySize = biosEntrySize
	}
	need := directoryHeaderSize + n*entrySize
	if need > len(data) {
		return nil, fwerr.EntryOutOfRange(kind.String()+" entries", directoryHeaderSize, n*entrySize, len(data))
	}

	d := &Directory{Kind: kind, Header: header}
	for i := 0; i < n; i++ {
		off := directoryHeaderSize + i*entrySize
		switch kind {
		case DirectoryKindBios, DirectoryKindBiosLevel2:
			d.BiosEntries = append(d.BiosEntries, BiosDirectoryEntry{buf: data[off : off+entrySize]})
		default:
			d.PspEntries = append(d.PspEntries, PspDirectoryEntry{buf: data[off : off+entrySize]})
		}
	}
	return d, nil
}

func parseComboDirectory(kind DirectoryKind, data []byte) (*Directory, error) {
	if len(data) < comboDirectoryHeaderSize {
		return nil, fwerr.Truncated("ComboDirectoryHeader", comboDirectoryHeaderSize, len(data))
	}
	header := ComboDirectoryHeader{buf: data[:comboDirectoryHeaderSize]}
	n := int(header.Entries())
	need := comboDirectoryHeaderSize + n*comboDirectoryEntrySize
	if need > len(data) {
		return nil, fwerr.EntryOutOfRange(kind.String()+" entries", comboDirectoryHeaderSize, n*comboDirectoryEntrySize, len(data))
	}

	d := &Directory{Kind: kind, ComboHeader: header}
	for i := 0; i < n; i++ {
		off := comboDirectoryHeaderSize + i*comboDirectoryEntrySize
		d.ComboEntries = append(d.ComboEntries, ComboDirectoryEntry{buf: data[off : off+comboDirectoryEntrySize]})
	}
	return d, nil
}

// Walker resolves the directory tree reachable from a Rom's EFS pointers,
// recursively following level-2 and combo indirection with a bounded
// recursion depth and a visited-offset set so that a malformed or
// adversarial image cannot loop forever.
type Walker struct {
	rom         *Rom
	addressMask uint32
	visited     map[uint64]bool
}

// defaultAddressMask is used when the caller hasn't derived a mask from
// the actual flash size (see SetFlashSize). 0x1FFFFFF (32MiB) matches the
// addressing scheme observed on the combo-directory generation of images;
// older single-directory images use the narrower 0xFFFFFF (16MiB) mask,
// which SetFlashSize will select for flash sizes at or below that.
const defaultAddressMask = 0x1FFFFFF

// NewWalker builds a Walker over rom using the default address mask.
func NewWalker(rom *Rom) *Walker {
	return &Walker{rom: rom, addressMask: defaultAddressMask, visited: map[uint64]bool{}}
}

// SetFlashSize derives the directory address mask from the image's actual
// flash size instead of assuming the widest observed mask. This resolves
// entry/source addresses that are relative to a smaller flash part.
func (w *Walker) SetFlashSize(size uint32) {
	mask := uint32(0xFFFFFF)
	for mask < size-1 {
		mask = mask<<1 | 1
	}
	w.addressMask = mask
}

// AddressMask returns the mask currently used to resolve directory and
// entry addresses, either the default or the one derived by SetFlashSize.
func (w *Walker) AddressMask() uint32 {
	return w.addressMask
}

// Directory parses and returns the directory at the given byte offset into
// the Rom's view, recursively resolving level-2 and combo indirection.
// depth is the current recursion depth, checked against
// maxDirectoryRecursionDepth; pass 0 at the top level.
func (w *Walker) Directory(offset uint64, depth int) (*Directory, []*Directory, error) {
	if depth > maxDirectoryRecursionDepth {
		return nil, nil, fwerr.RecursionTooDeep()
	}
	start := int(offset & uint64(w.addressMask))
	if w.visited[uint64(start)] {
		return nil, nil, nil
	}
	w.visited[uint64(start)] = true

	data := w.rom.Data()
	if start >= len(data) {
		return nil, nil, fwerr.EntryOutOfRange("Directory", start, 0, len(data))
	}
	dir, err := ParseDirectory(data[start:])
	if err != nil {
		return nil, nil, err
	}

	var children []*Directory
	switch dir.Kind {
	case DirectoryKindBios, DirectoryKindBiosLevel2:
		for _, e := range dir.BiosEntries {
			if e.Kind() == BiosEntryLevel2Directory {
				child, grandchildren, err := w.Directory(e.Source(), depth+1)
				if err != nil {
					return dir, children, err
				}
				if child != nil {
					children = append(children, child)
					children = append(children, grandchildren...)
				}
			}
		}
	case DirectoryKindPsp, DirectoryKindPspLevel2:
		for _, e := range dir.PspEntries {
			if e.Kind() == PspEntryLevel2Directory && e.Size() != 0xFFFFFFFF {
				child, grandchildren, err := w.Directory(e.Value(), depth+1)
				if err != nil {
					return dir, children, err
				}
				if child != nil {
					children = append(children, child)
					children = append(children, grandchildren...)
				}
			}
		}
	case DirectoryKindBiosCombo, DirectoryKindPspCombo:
		for _, e := range dir.ComboEntries {
			child, grandchildren, err := w.Directory(e.DirectoryAddress(), depth+1)
			if err != nil {
				return dir, children, err
			}
			if child != nil {
				children = append(children, child)
				children = append(children, grandchildren...)
			}
		}
	}
	return dir, children, nil
}
