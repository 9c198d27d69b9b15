// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	upstream "github.com/ulikunitz/xz/lzma"

	"github.com/system76/romulan/pkg/fwerr"
	"github.com/system76/romulan/pkg/guid"
	"github.com/system76/romulan/pkg/lzma"
)

func TestSectionsIteration(t *testing.T) {
	const rawSize = sectionHeaderSize + 4 // 4-byte payload
	buf := make([]byte, rawSize)
	buf[0], buf[1], buf[2] = byte(rawSize), byte(rawSize>>8), byte(rawSize>>16)
	buf[3] = byte(SectionKindRaw)

	it := &BiosSections{data: buf}
	s := it.Next()
	require.NotNil(t, s)
	require.Equal(t, SectionKindRaw, s.Kind())
	require.Equal(t, 4, len(s.Data()))
	require.Nil(t, it.Next())
}

func TestGuidDefinedRejectsUnsupportedGUID(t *testing.T) {
	body := make([]byte, guidDefinedHeaderSize)
	other := guid.MustParse("11111111-1111-1111-1111-111111111111")
	copy(body[0:16], other[:])
	binary.LittleEndian.PutUint16(body[16:18], guidDefinedHeaderSize)

	full := make([]byte, sectionHeaderSize+len(body))
	size := len(full)
	full[0], full[1], full[2] = byte(size), byte(size>>8), byte(size>>16)
	full[3] = byte(SectionKindGuidDefined)
	copy(full[sectionHeaderSize:], body)

	s := (&BiosSections{data: full}).Next()
	require.NotNil(t, s)

	_, err := s.Decompress(noopDecompressor{})
	require.Error(t, err)
}

// noopDecompressor exercises the GUID check in Decompress without
// depending on a real LZMA stream.
type noopDecompressor struct{}

func (noopDecompressor) Decompress(encoded []byte) ([]byte, error) { return encoded, nil }

// buildGuidDefinedLzma wraps payload in a GUID-defined section carrying the
// well-known LZMA compression GUID.
func buildGuidDefinedLzma(t *testing.T, payload []byte) *BiosSection {
	t.Helper()
	body := make([]byte, guidDefinedHeaderSize+len(payload))
	copy(body[0:16], guid.SECTION_LZMA_COMPRESS_GUID[:])
	binary.LittleEndian.PutUint16(body[16:18], sectionHeaderSize+guidDefinedHeaderSize)
	copy(body[guidDefinedHeaderSize:], payload)

	full := make([]byte, sectionHeaderSize+len(body))
	size := len(full)
	full[0], full[1], full[2] = byte(size), byte(size>>8), byte(size>>16)
	full[3] = byte(SectionKindGuidDefined)
	copy(full[sectionHeaderSize:], body)

	s := (&BiosSections{data: full}).Next()
	require.NotNil(t, s)
	return s
}

func TestDecompressYieldsNestedSections(t *testing.T) {
	// Plaintext is a section stream holding one Raw section.
	const rawSize = sectionHeaderSize + 4
	plain := make([]byte, rawSize)
	plain[0], plain[1], plain[2] = byte(rawSize), byte(rawSize>>8), byte(rawSize>>16)
	plain[3] = byte(SectionKindRaw)
	copy(plain[sectionHeaderSize:], []byte{1, 2, 3, 4})

	var compressed bytes.Buffer
	w, err := upstream.NewWriter(&compressed)
	require.NoError(t, err)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	s := buildGuidDefinedLzma(t, compressed.Bytes())
	payload, err := s.Decompress(lzma.Default)
	require.NoError(t, err)

	nested := Sections(payload).Next()
	require.NotNil(t, nested)
	require.Equal(t, SectionKindRaw, nested.Kind())
	require.Equal(t, []byte{1, 2, 3, 4}, nested.Data())
}

func TestDecompressCorruptPayload(t *testing.T) {
	s := buildGuidDefinedLzma(t, []byte{0x00, 0x01, 0x02})
	_, err := s.Decompress(lzma.Default)
	require.Error(t, err)

	var fe *fwerr.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, fwerr.KindDecompressionFailed, fe.Kind)
}

func TestUserInterfaceName(t *testing.T) {
	name := []byte{'F', 0, 'o', 0, 'o', 0, 0, 0} // "Foo" UCS-2LE, NUL terminated
	full := make([]byte, sectionHeaderSize+len(name))
	size := len(full)
	full[0], full[1], full[2] = byte(size), byte(size>>8), byte(size>>16)
	full[3] = byte(SectionKindUserInterface)
	copy(full[sectionHeaderSize:], name)

	s := (&BiosSections{data: full}).Next()
	require.NotNil(t, s)

	got, err := s.UserInterfaceName()
	require.NoError(t, err)
	require.Equal(t, "Foo", got)
}

func TestUserInterfaceNameWrongKind(t *testing.T) {
	s := &BiosSection{hdr: []byte{4, 0, 0, byte(SectionKindRaw)}, data: []byte{4, 0, 0, byte(SectionKindRaw)}}
	_, err := s.UserInterfaceName()
	require.Error(t, err)
}
