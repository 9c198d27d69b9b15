// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"fmt"

	"github.com/system76/romulan/pkg/fwerr"
)

// RegionKind names the entries of the flash region table. The numeric value
// doubles as the entry's index in the table.
type RegionKind int

// Named region indices, per the Intel Flash Descriptor.
const (
	RegionDescriptor RegionKind = iota
	RegionBios
	RegionManagementEngine
	RegionEthernet
	RegionPlatformData
	RegionReserved5
	RegionReserved6
	RegionReserved7
	RegionEmbeddedController
)

var regionKindNames = map[RegionKind]string{
	RegionDescriptor:         "Flash Descriptor",
	RegionBios:               "BIOS",
	RegionManagementEngine:   "Intel ME",
	RegionEthernet:           "GbE",
	RegionPlatformData:       "Platform Data",
	RegionReserved5:          "Reserved5",
	RegionReserved6:          "Reserved6",
	RegionReserved7:          "Reserved7",
	RegionEmbeddedController: "EC",
}

func (k RegionKind) String() string {
	if s, ok := regionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Region (%d)", int(k))
}

const (
	regionTableEntries = 9
	regionTableSize    = regionTableEntries * 4
	pchStrapEntries    = 18
	pchStrapSize       = pchStrapEntries * 4
)

// RegionTable is the 9 x u32 flash-region record table pointed to by the
// descriptor's Map0 field.
type RegionTable struct {
	buf []byte
}

// Data returns the raw region-table word at index k.
func (rt *RegionTable) Data(k int) uint32 {
	return binary.LittleEndian.Uint32(rt.buf[k*4 : k*4+4])
}

// PchStrap is the 18 x u32 PCH strap table pointed to by the descriptor's
// Map1 field.
type PchStrap struct {
	buf []byte
}

// Data returns the raw strap word at index k.
func (ps *PchStrap) Data(k int) uint32 {
	return binary.LittleEndian.Uint32(ps.buf[k*4 : k*4+4])
}

// unusedSentinelBase/Limit mark the conventional "nothing here" encoding
// some descriptors use instead of an all-zero entry.
const (
	unusedSentinelBase  = 0x07FFF000
	unusedSentinelLimit = 0x00000FFF
)

// BaseLimit returns the byte base and limit (inclusive) of region kind.
// present reports whether limit > base. The unused sentinel has its limit
// below its base and so is reported not present, like an all-zero entry;
// callers that need to tell the two apart use IsUnusedSentinel.
func (r *Rom) BaseLimit(kind RegionKind) (base, limit uint32, present bool, err error) {
	frba, err := r.FlashRegion()
	if err != nil {
		return 0, 0, false, err
	}
	reg := frba.Data(int(kind))
	base = (reg & 0x7FFF) << 12
	limit = ((reg & (0x7FFF << 16)) >> 4) | 0xFFF
	return base, limit, limit > base, nil
}

// IsUnusedSentinel reports whether base/limit is the conventional
// all-ones-like "unused" encoding (base=0x07FFF000, limit=0x00000FFF)
// rather than a genuinely absent region.
func IsUnusedSentinel(base, limit uint32) bool {
	return base == unusedSentinelBase && limit == unusedSentinelLimit
}

// Region returns the byte range [base, limit+1) for kind, or (nil, false)
// if the region is not present.
func (r *Rom) Region(kind RegionKind) ([]byte, bool, error) {
	base, limit, present, err := r.BaseLimit(kind)
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	end := uint64(limit) + 1
	if end > uint64(len(r.data)) {
		return nil, false, fwerr.RegionOutOfRange(kind.String(), int(end), len(r.data))
	}
	return r.data[base:end], true, nil
}

// Bios returns the BIOS region, parsed as a sequence of firmware volumes.
func (r *Rom) Bios() (*Bios, bool, error) {
	data, present, err := r.Region(RegionBios)
	if err != nil || !present {
		return nil, present, err
	}
	return &Bios{data: data}, true, nil
}

// Me returns the Intel ME region.
func (r *Rom) Me() (*Me, bool, error) {
	data, present, err := r.Region(RegionManagementEngine)
	if err != nil || !present {
		return nil, present, err
	}
	return &Me{data: data}, true, nil
}
