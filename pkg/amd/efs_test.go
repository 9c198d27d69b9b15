// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestEFS(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, efsScanStride+efsSize)
	anchor := buf[efsScanStride:]
	copy(anchor[0:4], efsSignature)
	binary.LittleEndian.PutUint32(anchor[0x14:0x18], 0x00020000) // PSP
	binary.LittleEndian.PutUint32(anchor[0x28:0x2c], 0x00030000) // BIOS
	binary.LittleEndian.PutUint32(anchor[0x24:0x28], 0)          // second gen bit clear
	return buf
}

func TestOpenFindsEFS(t *testing.T) {
	buf := buildTestEFS(t)
	rom, err := Open(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0x00020000), rom.EFS().PSP())
	require.Equal(t, uint32(0x00030000), rom.EFS().Bios())
	require.True(t, rom.EFS().SecondGen())
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(make([]byte, 64))
	require.Error(t, err)
}

func TestOpenIgnoresMisalignedAnchor(t *testing.T) {
	buf := make([]byte, 2*efsScanStride)
	copy(buf[0x800:0x804], efsSignature)
	_, err := Open(buf)
	require.Error(t, err)

	copy(buf[efsScanStride:], efsSignature)
	rom, err := Open(buf)
	require.NoError(t, err)
	require.Equal(t, efsScanStride, len(buf)-len(rom.Data()))
}
