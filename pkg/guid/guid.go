// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guid implements the mixed-endian GUID as used throughout UEFI
// firmware volumes and sections.
package guid

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
)

const (
	// Size is the number of bytes in a GUID.
	Size = 16
	// UExample is an example of a string GUID, used in error messages.
	UExample  = "01234567-89AB-CDEF-0123-456789ABCDEF"
	strFormat = "%02X%02X%02X%02X-%02X%02X-%02X%02X-%02X%02X-%02X%02X%02X%02X%02X%02X"
)

// fields describes the mixed-endian grouping used when rendering a GUID:
// the first three groups are little-endian, the rest are printed as-is.
var fields = [...]int{4, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1}

// GUID represents a unique identifier as found in UEFI structures.
type GUID [Size]byte

func reverse(b []byte) {
	for i := 0; i < len(b)/2; i++ {
		other := len(b) - i - 1
		b[other], b[i] = b[i], b[other]
	}
}

// Parse parses a canonical GUID string into a GUID.
func Parse(s string) (*GUID, error) {
	stripped := strings.ReplaceAll(s, "-", "")
	decoded, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("guid string not correct, need string of the format\n%v\ngot\n%v", UExample, s)
	}
	if len(decoded) != Size {
		return nil, fmt.Errorf("guid string has incorrect length, need string of the format\n%v\ngot\n%v", UExample, s)
	}

	var u GUID
	copy(u[:], decoded)
	i := 0
	for _, fieldlen := range fields {
		reverse(u[i : i+fieldlen])
		i += fieldlen
	}
	return &u, nil
}

// MustParse parses a GUID string, or logs the error and exits the process
// via log.Fatal. Intended for package-level well-known GUID constants.
func MustParse(s string) *GUID {
	g, err := Parse(s)
	if err != nil {
		log.Fatal(err)
	}
	return g
}

// Equal reports whether two GUIDs are the same.
func (u GUID) Equal(o GUID) bool {
	return u == o
}

// String renders the canonical mixed-endian textual form.
func (u GUID) String() string {
	// Operate on a copy; the receiver is already by-value.
	i := 0
	for _, fieldlen := range fields {
		reverse(u[i : i+fieldlen])
		i += fieldlen
	}
	b := make([]interface{}, Size)
	for i := range u[:] {
		b[i] = u[i]
	}
	return fmt.Sprintf(strFormat, b...)
}
