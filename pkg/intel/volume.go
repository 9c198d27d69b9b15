// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"

	"github.com/system76/romulan/pkg/guid"
)

// volumeHeaderSize is sizeof(FirmwareVolumeHeader): 16 (zero vector) + 16
// (GUID) + 8 (length) + 4 (signature) + 4 (attributes) + 2 (header length)
// + 2 (checksum) + 3 (reserved) + 1 (revision).
const volumeHeaderSize = 56

// fvSignature is the ASCII "_FVH" firmware volume signature.
var fvSignature = [4]byte{'_', 'F', 'V', 'H'}

// erasePolarityBit is bit 11 of the volume attributes word.
const erasePolarityBit = 0x800

// Volumes returns a lazy iterator over the firmware volumes found in an
// arbitrary byte buffer that holds a volume stream but isn't a BIOS region.
// A decompressed GUID-defined section payload is a section stream and is
// walked with Sections instead; a VolumeImage section's body is walked
// with BiosSection.VolumeImageVolumes.
func Volumes(data []byte) *BiosVolumes {
	return &BiosVolumes{data: data}
}

// Bios is the BIOS region, a flat byte range that is home to a sequence of
// UEFI Firmware Volumes.
type Bios struct {
	data []byte
}

// Data returns the raw BIOS region bytes.
func (b *Bios) Data() []byte {
	return b.data
}

// Volumes returns a lazy, forward-only iterator over the firmware volumes
// in the BIOS region.
func (b *Bios) Volumes() *BiosVolumes {
	return &BiosVolumes{data: b.data}
}

// BiosVolumes iterates firmware volumes inside a BIOS region (or, when
// recursing through a decompressed/VolumeImage section payload, inside
// that payload). Non-"_FVH" bytes are skipped in 8-byte strides until a
// valid volume header is found or the buffer is exhausted.
type BiosVolumes struct {
	data []byte
	i    int
}

// Next returns the next volume, or nil once the buffer is exhausted.
func (it *BiosVolumes) Next() *BiosVolume {
	for it.i+volumeHeaderSize <= len(it.data) {
		header := it.data[it.i:]
		if [4]byte(header[40:44]) == fvSignature {
			length := binary.LittleEndian.Uint64(header[32:40])
			if length < volumeHeaderSize || uint64(it.i)+length > uint64(len(it.data)) {
				// A corrupt length can't be trusted to advance the
				// cursor safely; treat the remainder as unparsable.
				return nil
			}
			headerLen := binary.LittleEndian.Uint16(header[48:50])
			v := &BiosVolume{
				hdr:  header[:volumeHeaderSize],
				data: it.data[it.i : uint64(it.i)+length],
				body: int(headerLen),
			}
			it.i += int(length)
			return v
		}
		it.i += 8
	}
	return nil
}

// BiosVolume is a single UEFI firmware volume: a fixed header followed by a
// sequence of files starting at HeaderLength.
type BiosVolume struct {
	hdr  []byte
	data []byte
	body int
}

// GUID is the volume's file system GUID.
func (v *BiosVolume) GUID() guid.GUID {
	var g guid.GUID
	copy(g[:], v.hdr[16:32])
	return g
}

// Length is the total size of the volume, header included.
func (v *BiosVolume) Length() uint64 { return binary.LittleEndian.Uint64(v.hdr[32:40]) }

// Signature is the raw 4-byte volume signature ("_FVH" for a valid volume).
func (v *BiosVolume) Signature() [4]byte { return [4]byte(v.hdr[40:44]) }

// Attributes is the volume's raw attribute flag set.
func (v *BiosVolume) Attributes() uint32 { return binary.LittleEndian.Uint32(v.hdr[44:48]) }

// HeaderLength is the size of the header (and any extended header),
// i.e. the offset where file data begins.
func (v *BiosVolume) HeaderLength() uint16 { return binary.LittleEndian.Uint16(v.hdr[48:50]) }

// ErasePolarity reports the erase polarity bit used to decode file state:
// true means erased bits read as 1.
func (v *BiosVolume) ErasePolarity() bool {
	return v.Attributes()&erasePolarityBit != 0
}

// Data returns the volume body, starting right after the header.
func (v *BiosVolume) Data() []byte {
	if v.body > len(v.data) {
		return nil
	}
	return v.data[v.body:]
}

// Files returns a lazy iterator over the files in this volume's body.
func (v *BiosVolume) Files() *BiosFiles {
	return &BiosFiles{data: v.Data(), polarity: v.ErasePolarity()}
}
