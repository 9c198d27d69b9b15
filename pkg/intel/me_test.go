// Copyright 2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestMe(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 0x200)
	copy(buf[0:4], fptSignature)
	binary.LittleEndian.PutUint32(buf[4:8], 1) // one entry
	buf[8] = 0x20                              // header version
	buf[10] = fptHeaderSize                    // header length

	entryOff := fptHeaderSize
	copy(buf[entryOff:entryOff+4], []byte("TEST"))
	binary.LittleEndian.PutUint32(buf[entryOff+8:entryOff+12], 0x100) // offset
	binary.LittleEndian.PutUint32(buf[entryOff+12:entryOff+16], 0x10) // length
	return buf
}

func TestFlashPartitionTable(t *testing.T) {
	me := &Me{data: buildTestMe(t)}
	fpt, err := me.FlashPartitionTable()
	require.NoError(t, err)
	require.False(t, fpt.Legacy())
	require.Len(t, fpt.Entries(), 1)

	e := fpt.Entries()[0]
	require.Equal(t, "TEST", e.Name())
	require.True(t, e.Valid())
	require.Equal(t, 0x10, len(e.Data(me)))
}

func TestVersionString(t *testing.T) {
	buf := buildTestMe(t)
	binary.LittleEndian.PutUint16(buf[24:26], 11)   // FitcMajor
	binary.LittleEndian.PutUint16(buf[26:28], 8)    // FitcMinor
	binary.LittleEndian.PutUint16(buf[28:30], 50)   // FitcHotfix
	binary.LittleEndian.PutUint16(buf[30:32], 1435) // FitcBuild

	me := &Me{data: buf}
	fpt, err := me.FlashPartitionTable()
	require.NoError(t, err)
	require.Equal(t, "11.8.50.1435", fpt.VersionString())

	major, minor, hotfix, build, ok := fpt.Version()
	require.True(t, ok)
	require.Equal(t, uint16(11), major)
	require.Equal(t, uint16(8), minor)
	require.Equal(t, uint16(50), hotfix)
	require.Equal(t, uint16(1435), build)
}

func TestModules(t *testing.T) {
	buf := buildTestMe(t)
	binary.LittleEndian.PutUint32(buf[0x14:0x18], 7)

	me := &Me{data: buf}
	modules, ok := me.Modules()
	require.True(t, ok)
	require.Equal(t, uint32(7), modules)

	_, ok = (&Me{data: make([]byte, 8)}).Modules()
	require.False(t, ok)
}

func TestFlashPartitionTableNotFound(t *testing.T) {
	me := &Me{data: make([]byte, 64)}
	_, err := me.FlashPartitionTable()
	require.Error(t, err)
}
