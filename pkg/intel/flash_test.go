// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTestRom lays out a minimal descriptor-plus-region-table image:
// signature at offset 16 (so Rom.data starts at offset 0), region table at
// offset 0x20, PCH strap table at offset 0x50.
func buildTestRom(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 0x5000)
	copy(buf[16:20], FlashSignature)
	binary.LittleEndian.PutUint32(buf[20:24], 0x00020000) // Map0: region table at (2<<4)=0x20
	binary.LittleEndian.PutUint32(buf[24:28], 0x00050000) // Map1: pchstrap table at (5<<4)=0x50

	// BIOS at base 0x1000 limit 0x1FFF, ME at base 0x2000 limit 0x3FFF,
	// Reserved5 carrying the unused sentinel.
	regionTable := buf[0x20 : 0x20+regionTableSize]
	binary.LittleEndian.PutUint32(regionTable[int(RegionBios)*4:], 0x00010001)
	binary.LittleEndian.PutUint32(regionTable[int(RegionManagementEngine)*4:], 0x00030002)
	binary.LittleEndian.PutUint32(regionTable[int(RegionReserved5)*4:], 0x00007FFF)

	return buf
}

func TestOpenFindsDescriptor(t *testing.T) {
	buf := buildTestRom(t)
	rom, err := Open(buf)
	require.NoError(t, err)
	require.Equal(t, binary.LittleEndian.Uint32(FlashSignature), rom.FlashDescriptor().Valsig())
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(make([]byte, 64))
	require.Error(t, err)
}

func TestFlashRegionAndPchstrap(t *testing.T) {
	buf := buildTestRom(t)
	rom, err := Open(buf)
	require.NoError(t, err)

	rt, err := rom.FlashRegion()
	require.NoError(t, err)
	require.Equal(t, uint32(0x00010001), rt.Data(int(RegionBios)))

	binary.LittleEndian.PutUint32(buf[0x50:0x54], 0x10000)
	strap, err := rom.FlashPchstrap()
	require.NoError(t, err)
	require.Equal(t, uint32(0x10000), strap.Data(0))

	hap, err := rom.HighAssurancePlatform()
	require.NoError(t, err)
	require.True(t, hap)
}

func TestBaseLimitAndSentinel(t *testing.T) {
	buf := buildTestRom(t)
	rom, err := Open(buf)
	require.NoError(t, err)

	base, limit, present, err := rom.BaseLimit(RegionBios)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint32(0x1000), base)
	require.Equal(t, uint32(0x1FFF), limit)
	require.False(t, IsUnusedSentinel(base, limit))

	base, limit, _, err = rom.BaseLimit(RegionReserved5)
	require.NoError(t, err)
	require.True(t, IsUnusedSentinel(base, limit))
}

func TestRegionTableTruncated(t *testing.T) {
	buf := make([]byte, 64)
	copy(buf[16:20], FlashSignature)
	binary.LittleEndian.PutUint32(buf[20:24], 0x00ff0000) // region table at 0xff0, past end

	rom, err := Open(buf)
	require.NoError(t, err)
	_, err = rom.FlashRegion()
	require.Error(t, err)
}

func TestPchstrapTruncated(t *testing.T) {
	buf := make([]byte, 64)
	copy(buf[16:20], FlashSignature)
	binary.LittleEndian.PutUint32(buf[24:28], 0x00ff0000) // strap table at 0xff0, past end

	rom, err := Open(buf)
	require.NoError(t, err)
	_, err = rom.FlashPchstrap()
	require.Error(t, err)
}

func TestRegionAndBios(t *testing.T) {
	buf := buildTestRom(t)
	rom, err := Open(buf)
	require.NoError(t, err)

	data, present, err := rom.Region(RegionBios)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, 0x1000, len(data))

	bios, present, err := rom.Bios()
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, data, bios.Data())
}
