// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command amd dumps the PSP/BIOS directory tree of an AMD platform
// firmware image, optionally exporting each entry's payload to disk.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	flags "github.com/jessevdk/go-flags"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/system76/romulan/pkg/amd"
)

type options struct {
	Args struct {
		File   string `positional-arg-name:"file" description:"AMD flash image to parse" required:"yes"`
		Export string `positional-arg-name:"export_dir" description:"directory to export directory entries into"`
	} `positional-args:"yes"`
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

	rom, err := amd.Open(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printEFS(rom.EFS())

	if opts.Args.Export != "" {
		if err := os.MkdirAll(opts.Args.Export, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	w := amd.NewWalker(rom)
	w.SetFlashSize(uint32(len(rom.Data())))

	var errs error
	for _, root := range directoryRoots(rom.EFS()) {
		if root == 0 || root == 0xFFFFFFFF {
			continue
		}
		dir, children, err := w.Directory(uint64(root), 0)
		if err != nil {
			fmt.Printf("* %#x: failed to load directory: %v\n", root, err)
			errs = multierror.Append(errs, err)
			continue
		}
		if dir == nil {
			continue
		}
		if _, perr := printTree(w.AddressMask(), rom.Data(), dir, uint64(root), children, 0, opts.Args.Export); perr != nil {
			errs = multierror.Append(errs, perr)
		}
	}
	if errs != nil {
		fmt.Fprintln(os.Stderr, errs)
		os.Exit(1)
	}
}

func directoryRoots(efs *amd.EFS) []uint32 {
	return []uint32{
		efs.PSP(),
		efs.Bios(),
		efs.Bios17_00_0f(),
		efs.Bios17_10_1f(),
		efs.Bios17_30_3f_19_00_0f(),
	}
}

func printEFS(efs *amd.EFS) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Second Gen", efs.SecondGen()},
		{"PSP", fmt.Sprintf("%#08x", efs.PSP())},
		{"BIOS (17/00-0f)", fmt.Sprintf("%#08x", efs.Bios17_00_0f())},
		{"BIOS (17/10-1f)", fmt.Sprintf("%#08x", efs.Bios17_10_1f())},
		{"BIOS (17/30-3f, 19/00-0f)", fmt.Sprintf("%#08x", efs.Bios17_30_3f_19_00_0f())},
		{"BIOS (17/60+)", fmt.Sprintf("%#08x", efs.Bios())},
		{"Promontory", fmt.Sprintf("%#08x", efs.Promontory())},
	})
	t.Render()
}

// printTree prints dir (resolved at address) and its entries, descending
// into nested directories by consuming them from pool rather than asking
// the Walker to resolve them again: the Walker has already parsed the
// entire subtree in one pass (directory.go's Walker.Directory) and marks
// each resolved offset visited as it goes, so a second call into the same
// offset would find it already visited and return nothing. pool holds
// dir's descendants in the same depth-first order this function consumes
// them in; it returns whatever of pool remains once dir's own subtree has
// been fully printed, for the caller's next sibling to consume from.
func printTree(mask uint32, romData []byte, dir *amd.Directory, address uint64, pool []*amd.Directory, indent int, export string) ([]*amd.Directory, error) {
	padding := strings.Repeat(" ", indent)
	fmt.Printf("%s* %#x: %s\n", padding, address, dir.Kind)

	var errs error
	switch dir.Kind {
	case amd.DirectoryKindBios, amd.DirectoryKindBiosLevel2:
		for _, e := range dir.BiosEntries {
			fmt.Printf("%s  * Type %02X Region %02X Flags %02X SubProg %02X Size %s Source %016X Dest %016X: %s\n",
				padding, e.Kind(), e.RegionKind(), e.Flags(), e.SubProgram(), humanize.Bytes(uint64(e.Size())), e.Source(), e.Destination(), e.Description())
			if export != "" {
				if perr := exportBiosEntry(mask, romData, e, dir.Kind, export); perr != nil {
					errs = multierror.Append(errs, perr)
				}
			}
			if e.Kind() == amd.BiosEntryLevel2Directory && len(pool) > 0 {
				child := pool[0]
				var perr error
				pool, perr = printTree(mask, romData, child, e.Source(), pool[1:], indent+4, export)
				if perr != nil {
					errs = multierror.Append(errs, perr)
				}
			}
		}
	case amd.DirectoryKindPsp, amd.DirectoryKindPspLevel2:
		for _, e := range dir.PspEntries {
			fmt.Printf("%s  * Type %02X SubProg %02X Rom %02X Size %s Value %016X: %s\n",
				padding, e.Kind(), e.SubProgram(), e.RomID(), humanize.Bytes(uint64(e.Size())), e.Value(), e.Description())
			if export != "" {
				if perr := exportPspEntry(mask, romData, e, dir.Kind, export); perr != nil {
					errs = multierror.Append(errs, perr)
				}
			}
			if e.Kind() == amd.PspEntryLevel2Directory && e.Size() != 0xFFFFFFFF && len(pool) > 0 {
				child := pool[0]
				var perr error
				pool, perr = printTree(mask, romData, child, e.Value(), pool[1:], indent+4, export)
				if perr != nil {
					errs = multierror.Append(errs, perr)
				}
			}
		}
	case amd.DirectoryKindBiosCombo, amd.DirectoryKindPspCombo:
		for _, e := range dir.ComboEntries {
			fmt.Printf("%s  * select=%d id=%#x -> %#x\n", padding, e.IDSelect(), e.ID(), e.DirectoryAddress())
			if len(pool) == 0 {
				continue
			}
			child := pool[0]
			var perr error
			pool, perr = printTree(mask, romData, child, e.DirectoryAddress(), pool[1:], indent+4, export)
			if perr != nil {
				errs = multierror.Append(errs, perr)
			}
		}
	}
	return pool, errs
}

func exportBiosEntry(mask uint32, romData []byte, e amd.BiosDirectoryEntry, kind amd.DirectoryKind, export string) error {
	level := "Level1"
	if kind == amd.DirectoryKindBiosLevel2 {
		level = "Level2"
	}
	name := filepath.Join("BIOS", level, fmt.Sprintf("Type%02X_Region%02X_Flags%02X_SubProg%02X_%s",
		e.Kind(), e.RegionKind(), e.Flags(), e.SubProgram(), sanitize(e.Description())))
	data, err := e.Data(romData, mask)
	return writeExport(export, name, data, err)
}

func exportPspEntry(mask uint32, romData []byte, e amd.PspDirectoryEntry, kind amd.DirectoryKind, export string) error {
	level := "Level1"
	if kind == amd.DirectoryKindPspLevel2 {
		level = "Level2"
	}
	name := filepath.Join("PSP", level, fmt.Sprintf("Type%02X_SubProg%02X_Rom%02X_%s",
		e.Kind(), e.SubProgram(), e.RomID(), sanitize(e.Description())))
	data, err := e.Data(romData, mask)
	return writeExport(export, name, data, err)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

func writeExport(export, name string, data []byte, entryErr error) error {
	dir := filepath.Join(export, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if entryErr != nil {
		return os.WriteFile(filepath.Join(dir, "error"), []byte(entryErr.Error()), 0o644)
	}
	if err := os.WriteFile(filepath.Join(dir, "raw"), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "hex"), []byte(hex.Dump(data)), 0o644)
}
