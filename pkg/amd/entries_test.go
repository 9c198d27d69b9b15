// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBiosDirectoryEntryData(t *testing.T) {
	buf := make([]byte, biosEntrySize)
	buf[0] = 0x62 // BIOS Binary
	binary.LittleEndian.PutUint32(buf[4:8], 4)                // size
	binary.LittleEndian.PutUint64(buf[8:16], 0x1FFFFFF&0x100) // source, already within mask

	e := BiosDirectoryEntry{buf: buf}
	require.Equal(t, "BIOS Binary", e.Description())

	rom := make([]byte, 0x200)
	copy(rom[0x100:0x104], []byte{1, 2, 3, 4})
	data, err := e.Data(rom, defaultAddressMask)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestBiosDirectoryEntryOutOfRange(t *testing.T) {
	buf := make([]byte, biosEntrySize)
	binary.LittleEndian.PutUint32(buf[4:8], 0x1000)
	binary.LittleEndian.PutUint64(buf[8:16], 0x100)

	e := BiosDirectoryEntry{buf: buf}
	_, err := e.Data(make([]byte, 16), defaultAddressMask)
	require.Error(t, err)
}

func TestBiosDirectoryEntryAddressMasking(t *testing.T) {
	buf := make([]byte, biosEntrySize)
	binary.LittleEndian.PutUint32(buf[4:8], 4)
	// With the 16MiB mask, the MMIO-window high bits fall away and
	// 0xFF200000 resolves to flash offset 0x200000.
	binary.LittleEndian.PutUint64(buf[8:16], 0xFF200000)

	rom := make([]byte, 0x200004)
	copy(rom[0x200000:], []byte{0xDE, 0xAD, 0xBE, 0xEF})

	e := BiosDirectoryEntry{buf: buf}
	data, err := e.Data(rom, 0xFFFFFF)
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
}

func TestBiosDirectoryEntryBoundary(t *testing.T) {
	buf := make([]byte, biosEntrySize)
	binary.LittleEndian.PutUint32(buf[4:8], 8)
	binary.LittleEndian.PutUint64(buf[8:16], 0x8)

	e := BiosDirectoryEntry{buf: buf}
	data, err := e.Data(make([]byte, 16), defaultAddressMask) // source+size == len
	require.NoError(t, err)
	require.Len(t, data, 8)

	_, err = e.Data(make([]byte, 15), defaultAddressMask) // source+size == len+1
	require.Error(t, err)
}

func TestPspDirectoryEntryValueEntry(t *testing.T) {
	buf := make([]byte, pspEntrySize)
	buf[0] = 0x0B // PSP Soft Fuse Chain, commonly a value-entry
	binary.LittleEndian.PutUint32(buf[4:8], pspValueEntrySize)
	binary.LittleEndian.PutUint64(buf[8:16], 0x0102030405060708)

	e := PspDirectoryEntry{buf: buf}
	data, err := e.Data(nil, defaultAddressMask)
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, data)
}

func TestPspDirectoryEntryAddressEntry(t *testing.T) {
	buf := make([]byte, pspEntrySize)
	buf[0] = 0x01 // PSP Boot Loader
	binary.LittleEndian.PutUint32(buf[4:8], 2)
	binary.LittleEndian.PutUint64(buf[8:16], 0x10)

	e := PspDirectoryEntry{buf: buf}
	rom := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xAB, 0xCD}
	data, err := e.Data(rom, defaultAddressMask)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xCD}, data)
}
