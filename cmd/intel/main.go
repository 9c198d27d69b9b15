// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command intel dumps the region map and BIOS volume/file/section tree of
// an Intel flash image.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/camelcase"
	flags "github.com/jessevdk/go-flags"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/system76/romulan/pkg/intel"
	"github.com/system76/romulan/pkg/lzma"
)

type options struct {
	Args struct {
		File string `positional-arg-name:"file" description:"Intel flash image to parse"`
	} `positional-args:"yes" required:"yes"`
}

func pretty(name string) string {
	return strings.Join(camelcase.Split(name), " ")
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	data, err := os.ReadFile(opts.Args.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rom, err := intel.Open(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printRegions(rom)
	printMe(rom)

	bios, present, err := rom.Bios()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !present {
		return
	}

	volumes := bios.Volumes()
	for v := volumes.Next(); v != nil; v = volumes.Next() {
		printVolume(v, 0)
	}
}

func printRegions(rom *intel.Rom) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Region", "Base", "Limit", "Size"})
	for kind := intel.RegionDescriptor; kind <= intel.RegionEmbeddedController; kind++ {
		base, limit, present, err := rom.BaseLimit(kind)
		unused := err == nil && intel.IsUnusedSentinel(base, limit)
		if err != nil || (!present && !unused) {
			continue
		}
		name := kind.String()
		size := "-"
		if unused {
			name += " (unused)"
		} else {
			size = humanize.Bytes(uint64(limit - base + 1))
		}
		t.AppendRow(table.Row{
			name,
			fmt.Sprintf("%#08x", base),
			fmt.Sprintf("%#08x", limit),
			size,
		})
	}
	t.Render()

	hap, err := rom.HighAssurancePlatform()
	if err == nil {
		fmt.Printf("High Assurance Platform: %v\n", hap)
	}
}

func printMe(rom *intel.Rom) {
	me, present, err := rom.Me()
	if err != nil || !present {
		return
	}
	fpt, err := me.FlashPartitionTable()
	if err != nil {
		fmt.Printf("ME: %v\n", err)
		return
	}
	version := fpt.VersionString()
	if version == "" {
		version = "unknown"
	}
	fmt.Printf("ME: version=%s legacy=%v partitions=%d\n", version, fpt.Legacy(), len(fpt.Entries()))
	if modules, ok := me.Modules(); ok {
		fmt.Printf("ME: modules=%d\n", modules)
	}
}

func printVolume(v *intel.BiosVolume, indent int) {
	padding := strings.Repeat(" ", indent)
	fmt.Printf("%s* Volume %s: %s bytes\n", padding, v.GUID(), humanize.Bytes(v.Length()))

	files := v.Files()
	for f := files.Next(); f != nil; f = files.Next() {
		printFile(f, indent+2)
	}
}

func printFile(f *intel.BiosFile, indent int) {
	padding := strings.Repeat(" ", indent)
	fmt.Printf("%s* File %s: %s, state=%#02x, %d bytes\n", padding, f.GUID(), pretty(f.Kind().String()), f.State(), f.Size())

	if !f.Kind().Sectioned() {
		return
	}
	sections := f.Sections()
	for s := sections.Next(); s != nil; s = sections.Next() {
		printSection(s, indent+2)
	}
}

func printSection(s *intel.BiosSection, indent int) {
	padding := strings.Repeat(" ", indent)
	fmt.Printf("%s* Section %s: %d bytes\n", padding, pretty(s.Kind().String()), s.Size())

	switch s.Kind() {
	case intel.SectionKindGuidDefined:
		payload, err := s.Decompress(lzma.Default)
		if err != nil {
			fmt.Printf("%s  (not decompressed: %v)\n", padding, err)
			return
		}
		embedded := intel.Sections(payload)
		for nested := embedded.Next(); nested != nil; nested = embedded.Next() {
			printSection(nested, indent+2)
		}
	case intel.SectionKindVolumeImage:
		embedded := s.VolumeImageVolumes()
		for v := embedded.Next(); v != nil; v = embedded.Next() {
			printVolume(v, indent+2)
		}
	case intel.SectionKindUserInterface:
		if name, err := s.UserInterfaceName(); err == nil {
			fmt.Printf("%s  name: %q\n", padding, name)
		}
	}
}
