// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd

import "fmt"

// biosEntryDescription names a BIOS directory entry kind. Instance
// disambiguates the PMU firmware code/data entries, which otherwise share
// a kind byte across several DDR4 DIMM variants.
func biosEntryDescription(kind, instance uint8) string {
	switch kind {
	case 0x05:
		return "BIOS Signing Key"
	case 0x07:
		return "BIOS Signature"
	case 0x60:
		return "AGESA PSP Customization Block"
	case 0x61:
		return "AGESA PSP Output Block"
	case 0x62:
		return "BIOS Binary"
	case 0x63:
		return "AGESA PSP Output Block NVRAM"
	case 0x64:
		return pmuDescription("PMU Firmware Code", instance)
	case 0x65:
		return pmuDescription("PMU Firmware Data", instance)
	case 0x66:
		return "Microcode"
	case 0x67:
		return "MCE Data"
	case 0x68:
		return "AGESA PSP Customization Block Backup"
	case 0x6A:
		return "MP2 Firmware"
	case BiosEntryLevel2Directory:
		return "BIOS L2 Directory"
	default:
		return fmt.Sprintf("Unknown (%#02x)", kind)
	}
}

func pmuDescription(prefix string, instance uint8) string {
	switch instance {
	case 0x01:
		return prefix + " (DDR4 UDIMM 1D)"
	case 0x02:
		return prefix + " (DDR4 RDIMM 1D)"
	case 0x03:
		return prefix + " (DDR4 LRDIMM 1D)"
	case 0x04:
		return prefix + " (DDR4 2D)"
	case 0x05:
		return prefix + " (DDR4 2D Diagnostic)"
	default:
		return prefix + " (Unknown)"
	}
}

// pspEntryDescription names a PSP directory entry kind.
func pspEntryDescription(kind uint8) string {
	switch kind {
	case 0x00:
		return "AMD Public Key"
	case 0x01:
		return "PSP Boot Loader"
	case 0x02:
		return "PSP Secure OS"
	case 0x03:
		return "PSP Recovery Boot Loader"
	case 0x04:
		return "PSP Non-volatile Data"
	case 0x08:
		return "SMU Firmware"
	case 0x09:
		return "AMD Secure Debug Key"
	case 0x0A:
		return "OEM Public Key"
	case 0x0B:
		return "PSP Soft Fuse Chain"
	case 0x0C:
		return "PSP Trustlet"
	case 0x0D:
		return "PSP Trustlet Public Key"
	case 0x12:
		return "SMU Firmware"
	case 0x13:
		return "PSP Early Secure Unlock Debug"
	case 0x20:
		return "IP Discovery"
	case 0x21:
		return "Wrapped iKEK"
	case 0x22:
		return "PSP Token Unlock"
	case 0x24:
		return "Security Policy"
	case 0x25:
		return "MP2 Firmware"
	case 0x26:
		return "MP2 Firmware Part 2"
	case 0x27:
		return "User Mode Unit Test"
	case 0x28:
		return "System Driver"
	case 0x29:
		return "KVM Image"
	case 0x2A:
		return "MP5 Firmware"
	case 0x2B:
		return "Embedded Firmware Signature"
	case 0x2C:
		return "TEE Write-once NVRAM"
	case 0x2D:
		return "External Chipset PSP Boot Loader"
	case 0x2E:
		return "External Chipset MP0 Firmware"
	case 0x2F:
		return "External Chipset MP1 Firmware"
	case 0x30:
		return "PSP AGESA Binary 0"
	case 0x31:
		return "PSP AGESA Binary 1"
	case 0x32:
		return "PSP AGESA Binary 2"
	case 0x33:
		return "PSP AGESA Binary 3"
	case 0x34:
		return "PSP AGESA Binary 4"
	case 0x35:
		return "PSP AGESA Binary 5"
	case 0x36:
		return "PSP AGESA Binary 6"
	case 0x37:
		return "PSP AGESA Binary 7"
	case 0x38:
		return "SEV Data"
	case 0x39:
		return "SEV Code"
	case 0x3A:
		return "Processor Serial Number Allow List"
	case 0x3B:
		return "SERDES Microcode"
	case 0x3C:
		return "VBIOS Pre-load"
	case 0x3D:
		return "WLAN Umac"
	case 0x3E:
		return "WLAN Imac"
	case 0x3F:
		return "WLAN Bluetooth"
	case PspEntryLevel2Directory:
		return "PSP Level 2 Directory"
	case 0x41:
		return "External Chipset MP0 Boot Loader"
	case 0x42:
		return "DXIO PHY SRAM Firmware"
	case 0x43:
		return "DXIO PHY SRAM Firmware Public Key"
	case 0x44:
		return "USB PHY Firmware"
	case 0x45:
		return "Security Policy for tOS"
	case 0x46:
		return "External Chipset PSP Boot Loader"
	case 0x47:
		return "DRTM TA"
	case 0x48:
		return "Recovery L2A PSP Directory"
	case 0x49:
		return "Recovery L2 BIOS Directory"
	case 0x4A:
		return "Recovery L2B PSP Directory"
	case 0x4C:
		return "External Chipset Security Policy"
	case 0x4D:
		return "External Chipset Secure Debug Unlock"
	case 0x4E:
		return "PMU Public Key"
	case 0x4F:
		return "UMC Firmware"
	case 0x50:
		return "PSP Boot Loader Public Keys Table"
	case 0x51:
		return "PSP tOS Public Keys Table"
	case 0x52:
		return "OEM PSP Boot Loader Application"
	case 0x53:
		return "OEM PSP Boot Loader Application Public Key"
	case 0x54:
		return "PSP RPMC NVRAM"
	case 0x55:
		return "PSP Boot Loader Anti-rollback"
	case 0x56:
		return "PSP Secure OS Anti-rollback"
	case 0x57:
		return "CVIP Configuration Table"
	case 0x58:
		return "DMCU-ERAM"
	case 0x59:
		return "DMCU-ISR"
	case 0x5A:
		return "MSMU Binary 0"
	case 0x5B:
		return "MSMU Binary 1"
	case 0x73:
		return "PSP Boot Loader AB"
	case 0x80:
		return "OEM Sys-TA"
	case 0x81:
		return "OEM Sys-TA Signing Key"
	default:
		return fmt.Sprintf("Unknown (%#02x)", kind)
	}
}
