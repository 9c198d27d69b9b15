// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionKindString(t *testing.T) {
	require.Equal(t, "BIOS", RegionBios.String())
	require.Equal(t, "Intel ME", RegionManagementEngine.String())
	require.Contains(t, RegionKind(99).String(), "Unknown Region")
}

func TestMeRegion(t *testing.T) {
	buf := buildTestRom(t)
	rom, err := Open(buf)
	require.NoError(t, err)

	me, present, err := rom.Me()
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, 0x2000, len(me.Data()))
}
