// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawbytes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFilledWith(t *testing.T) {
	require.True(t, IsFilledWith([]byte{0xff, 0xff, 0xff}, 0xff))
	require.True(t, IsFilledWith(nil, 0xff))
	require.False(t, IsFilledWith([]byte{0xff, 0x00, 0xff}, 0xff))
}

func TestAlign(t *testing.T) {
	require.Equal(t, uint64(8), Align(1, 8))
	require.Equal(t, uint64(8), Align(8, 8))
	require.Equal(t, uint64(16), Align(9, 8))
	require.Equal(t, uint64(4), Align(1, 4))
}
