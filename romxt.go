/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/dialog"
	"github.com/andreas-jonsson/romxt/emulator/firmware"
	"github.com/andreas-jonsson/romxt/emulator/machine"
	"github.com/andreas-jonsson/romxt/emulator/memory"
	"github.com/andreas-jonsson/romxt/platform"
	"github.com/andreas-jonsson/romxt/version"
)

var (
	romPath     = "roms"
	machineName = "ibmxt"
	profileFile,
	dumpFile string
)

var (
	checkOnly,
	listMachines,
	view,
	debugLog,
	ver bool
)

func init() {
	if v, ok := os.LookupEnv("VXT_ROM_PATH"); ok {
		romPath = v
	}
	if v, ok := os.LookupEnv("VXT_DEFAULT_MACHINE"); ok {
		machineName = v
	}

	flag.StringVar(&romPath, "roms", romPath, "Directory holding the ROM images")
	flag.StringVar(&machineName, "machine", machineName, "Machine to bring up")
	flag.StringVar(&profileFile, "profile", "", "Load additional machine profiles from a JSON file")
	flag.StringVar(&dumpFile, "dump", "", "Write the BIOS window to file")

	flag.BoolVar(&checkOnly, "check", false, "Only check that the images are present")
	flag.BoolVar(&listMachines, "list", false, "List machines and whether their images are present")
	flag.BoolVar(&view, "view", false, "Inspect the mapped firmware in the terminal")
	flag.BoolVar(&debugLog, "debug", false, "Print the firmware loader log")
	flag.BoolVar(&ver, "v", false, "Print version information")
}

func main() {
	flag.Parse()
	if code := run(memory.NewBus()); code != 0 {
		os.Exit(code)
	}
}

func run(bus *memory.Bus) int {
	if ver {
		fmt.Printf("%s %s (%s)\n%s\n", version.Module, version.Current.FullString(), version.Hash, version.Copyright)
		fmt.Printf("Machines: %s\n", strings.Join(version.Machines, ", "))
		return 0
	}

	debug.MuteLogging(!debugLog)
	hostFS := firmware.NewOsFS(romPath)

	if profileFile != "" {
		if err := loadProfiles(profileFile); err != nil {
			dialog.ShowErrorMessage(err.Error())
			return -1
		}
	}

	if listMachines {
		list(hostFS)
		return 0
	}

	p, ok := machine.Lookup(machineName)
	if !ok {
		dialog.ShowErrorMessage(fmt.Sprintf("Unknown machine: %s", machineName))
		return -1
	}

	m, err := machine.Init(p, machine.Config{FS: hostFS, Bus: bus, CheckOnly: checkOnly})
	if err != nil {
		dialog.ShowErrorMessage(dialog.Message(err))
		if firmware.IsFatal(err) {
			return -1
		}
		return 1
	}
	defer m.Close()

	if len(m.Missing) > 0 {
		dialog.ShowWarningMessage(fmt.Sprintf("Option ROMs not installed: %v", m.Missing))
	}

	if checkOnly {
		fmt.Printf("%s: all BIOS images present\n", p.Name)
		return 0
	}

	regions := printMappings(bus)

	if dumpFile != "" {
		if err := afero.WriteFile(afero.NewOsFs(), dumpFile, m.BIOS.Bytes(), 0644); err != nil {
			dialog.ShowErrorMessage(err.Error())
			return -1
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(m.BIOS.Bytes()), dumpFile)
	}

	if view {
		if err := platform.View(bus, regions); err != nil {
			dialog.ShowErrorMessage(err.Error())
			return -1
		}
	}
	return 0
}

func loadProfiles(name string) error {
	fp, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	_, err = machine.LoadProfiles(fp)
	return err
}

func list(hostFS *firmware.HostFS) {
	for _, name := range machine.Names() {
		p, _ := machine.Lookup(name)
		status := "ok"
		if _, err := machine.Init(p, machine.Config{FS: hostFS, CheckOnly: true}); err != nil {
			status = "missing"
		}
		fmt.Printf("%-12s %-8s %s\n", name, status, p.Description)
	}
}

func printMappings(bus *memory.Bus) []platform.Region {
	mappings := bus.Mappings()
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Base < mappings[j].Base
	})

	var regions []platform.Region
	for _, m := range mappings {
		name := "BIOS"
		if d, ok := m.Read.(interface{ Name() string }); ok {
			name = d.Name()
		}
		fmt.Printf("%-12s %v\n", name, m)
		regions = append(regions, platform.Region{Name: name, Base: m.Base, Size: m.Size})
	}
	return regions
}
