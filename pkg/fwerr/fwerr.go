// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fwerr is the uniform failure channel shared by the intel and amd
// parsers. Every error produced by the parsing engine carries a Kind and
// enough context (offset, length, name) to say which rule rejected the
// input and where.
package fwerr

import "fmt"

// Kind identifies which parsing rule rejected the input.
type Kind int

// Error kinds.
const (
	// KindFlashDescriptorNotFound means no Intel flash signature was found
	// anywhere in the buffer.
	KindFlashDescriptorNotFound Kind = iota
	// KindEFSNotFound means no AMD EFS signature was found on a 4KiB
	// boundary.
	KindEFSNotFound
	// KindRecordTruncated means a fixed-size record didn't fit in the
	// remaining buffer.
	KindRecordTruncated
	// KindRegionTableTruncated means the Intel flash region table would run
	// past the end of the buffer.
	KindRegionTableTruncated
	// KindPchstrapTruncated means the PCH strap table would run past the
	// end of the buffer.
	KindPchstrapTruncated
	// KindRegionOutOfRange means a region's limit falls outside the buffer.
	KindRegionOutOfRange
	// KindUnknownDirectorySignature means an AMD directory's 4-byte magic
	// didn't match any known directory kind.
	KindUnknownDirectorySignature
	// KindEntryOutOfRange means an AMD directory entry's payload bounds
	// fall outside the buffer.
	KindEntryOutOfRange
	// KindDirectoryRecursionTooDeep means AMD directory traversal exceeded
	// its recursion bound.
	KindDirectoryRecursionTooDeep
	// KindDecompressionFailed means the external LZMA collaborator
	// rejected a section's payload.
	KindDecompressionFailed
)

var kindNames = map[Kind]string{
	KindFlashDescriptorNotFound:   "FlashDescriptorNotFound",
	KindEFSNotFound:               "EFSNotFound",
	KindRecordTruncated:           "RecordTruncated",
	KindRegionTableTruncated:      "RegionTableTruncated",
	KindPchstrapTruncated:         "PchstrapTruncated",
	KindRegionOutOfRange:          "RegionOutOfRange",
	KindUnknownDirectorySignature: "UnknownDirectorySignature",
	KindEntryOutOfRange:           "EntryOutOfRange",
	KindDirectoryRecursionTooDeep: "DirectoryRecursionTooDeep",
	KindDecompressionFailed:       "DecompressionFailed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the uniform error value returned by every parser entry point.
type Error struct {
	Kind Kind
	// Name, when non-empty, is the record or entry kind the rule applies
	// to (e.g. "FlashRegionTable", "BIOS directory entry").
	Name string
	// Offset and Length describe the position in the buffer relevant to
	// the failure, when applicable.
	Offset, Length int
	// Need and Have describe a size mismatch, when applicable (e.g. a
	// truncated fixed record).
	Need, Have int
	// Cause wraps an underlying error, such as one from an external
	// decompressor.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindFlashDescriptorNotFound:
		return "flash descriptor not found"
	case KindEFSNotFound:
		return "embedded firmware structure not found"
	case KindRecordTruncated:
		return fmt.Sprintf("%s truncated: need %d bytes, have %d", e.Name, e.Need, e.Have)
	case KindRegionTableTruncated:
		return fmt.Sprintf("flash region table truncated at offset %#x", e.Offset)
	case KindPchstrapTruncated:
		return fmt.Sprintf("PCH strap table truncated at offset %#x", e.Offset)
	case KindRegionOutOfRange:
		return fmt.Sprintf("%s region out of range: limit %#x, buffer length %#x", e.Name, e.Length, e.Have)
	case KindUnknownDirectorySignature:
		return fmt.Sprintf("unknown directory signature at offset %#x", e.Offset)
	case KindEntryOutOfRange:
		return fmt.Sprintf("%s entry out of range: %#x:%#x exceeds buffer length %#x", e.Name, e.Offset, e.Offset+e.Length, e.Have)
	case KindDirectoryRecursionTooDeep:
		return "directory recursion too deep"
	case KindDecompressionFailed:
		return fmt.Sprintf("decompression failed: %v", e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound builds a FlashDescriptorNotFound/EFSNotFound style error.
func NotFound(kind Kind) error {
	return &Error{Kind: kind}
}

// Truncated builds a RecordTruncated error for a fixed-size record.
func Truncated(name string, need, have int) error {
	return &Error{Kind: KindRecordTruncated, Name: name, Need: need, Have: have}
}

// RegionTableTruncated builds the Intel flash-region-table truncation error.
func RegionTableTruncated(offset int) error {
	return &Error{Kind: KindRegionTableTruncated, Offset: offset}
}

// PchstrapTruncated builds the PCH-strap truncation error.
func PchstrapTruncated(offset int) error {
	return &Error{Kind: KindPchstrapTruncated, Offset: offset}
}

// RegionOutOfRange builds the Intel region-bounds error.
func RegionOutOfRange(name string, limit, bufLen int) error {
	return &Error{Kind: KindRegionOutOfRange, Name: name, Length: limit, Have: bufLen}
}

// UnknownDirectorySignature builds the AMD unknown-magic error.
func UnknownDirectorySignature(offset int, magic []byte) error {
	return &Error{Kind: KindUnknownDirectorySignature, Offset: offset, Cause: fmt.Errorf("%q", magic)}
}

// EntryOutOfRange builds the AMD entry-bounds error.
func EntryOutOfRange(kindName string, start, length, bufLen int) error {
	return &Error{Kind: KindEntryOutOfRange, Name: kindName, Offset: start, Length: length, Have: bufLen}
}

// RecursionTooDeep builds the AMD recursion-bound error.
func RecursionTooDeep() error {
	return &Error{Kind: KindDirectoryRecursionTooDeep}
}

// Decompression wraps a failure from the external LZMA collaborator.
func Decompression(cause error) error {
	return &Error{Kind: KindDecompressionFailed, Cause: cause}
}
