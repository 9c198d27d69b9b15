// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guid

// SECTION_LZMA_COMPRESS_GUID identifies a GUID-defined section whose payload
// is an LZMA compressed stream of further sections.
var SECTION_LZMA_COMPRESS_GUID = *MustParse("EE4E5898-3914-4259-9D6E-DC7BD79403CF") //nolint:revive,stylecheck
