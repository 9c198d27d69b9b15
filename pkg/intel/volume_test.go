// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTestVolume returns a single firmware volume: a 56-byte header
// followed by one Raw file (with an 8-byte body) and a trailing
// free-space sentinel.
func buildTestVolume(t *testing.T) []byte {
	t.Helper()
	const (
		fileSize = fileHeaderSize + 8
		bodySize = fileSize + fileHeaderSize // file + trailing sentinel header
	)
	buf := make([]byte, volumeHeaderSize+bodySize)
	binary.LittleEndian.PutUint64(buf[32:40], uint64(len(buf)))
	copy(buf[40:44], fvSignature[:])
	binary.LittleEndian.PutUint16(buf[48:50], volumeHeaderSize)

	file := buf[volumeHeaderSize:]
	file[18] = byte(FileKindRaw)
	file[20], file[21], file[22] = byte(fileSize), byte(fileSize>>8), byte(fileSize>>16)
	file[23] = 0x07 // header construction | header valid | data valid

	sentinel := buf[volumeHeaderSize+fileSize:]
	sentinel[20], sentinel[21], sentinel[22] = 0xFF, 0xFF, 0xFF

	return buf
}

func TestVolumesIteration(t *testing.T) {
	data := buildTestVolume(t)
	bios := &Bios{data: data}
	it := bios.Volumes()

	v := it.Next()
	require.NotNil(t, v)
	require.Equal(t, fvSignature, v.Signature())
	require.Equal(t, uint64(len(data)), v.Length())
	require.False(t, v.ErasePolarity())

	require.Nil(t, it.Next())
}

func TestVolumesResync(t *testing.T) {
	valid := buildTestVolume(t)
	data := append(make([]byte, 8), valid...)

	it := Volumes(data)
	v := it.Next()
	require.NotNil(t, v)
	require.Equal(t, fvSignature, v.Signature())
}

func TestFilesIterationEndsAtSentinel(t *testing.T) {
	data := buildTestVolume(t)
	v := Volumes(data).Next()
	require.NotNil(t, v)

	files := v.Files()
	f := files.Next()
	require.NotNil(t, f)
	require.Equal(t, FileKindRaw, f.Kind())
	require.Equal(t, FileState(0x07), f.State())

	require.Nil(t, files.Next())
}
