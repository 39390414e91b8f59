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

// Package machine brings up the firmware of a machine described by a profile.
package machine

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/firmware"
	"github.com/andreas-jonsson/romxt/emulator/memory"
	"github.com/andreas-jonsson/romxt/emulator/peripheral"
	"github.com/andreas-jonsson/romxt/emulator/peripheral/rom"
)

// ROM is an option ROM installed next to the BIOS.
type ROM struct {
	Name   string   `json:"name"`
	Files  []string `json:"files"`
	Base   uint32   `json:"base"`
	Size   int      `json:"size"`
	Mask   uint32   `json:"mask,omitempty"`
	Offset int64    `json:"offset,omitempty"`
	Layout string   `json:"layout,omitempty"` // linear, oddeven or interleaved
}

var layouts = map[string]rom.Layout{
	"":            rom.Linear,
	"linear":      rom.Linear,
	"oddeven":     rom.OddEven,
	"interleaved": rom.Interleaved,
}

func (r *ROM) validate() error {
	l, ok := layouts[r.Layout]
	if !ok {
		return errors.Errorf("option ROM %q: unknown layout %q", r.Name, r.Layout)
	}
	want := 1
	if l == rom.Interleaved {
		want = 2
	}
	if len(r.Files) != want {
		return errors.Errorf("option ROM %q: %s layout takes %d files", r.Name, l, want)
	}
	if r.Size <= 0 {
		return errors.Errorf("option ROM %q: size %d", r.Name, r.Size)
	}
	return nil
}

func (r *ROM) device(fs *firmware.HostFS) *rom.Device {
	dev := &rom.Device{
		RomName: r.Name,
		FS:      fs,
		File:    r.Files[0],
		Base:    memory.Pointer(r.Base),
		Size:    r.Size,
		Mask:    r.Mask,
		Offset:  r.Offset,
		Layout:  layouts[r.Layout],
		Flags:   memory.MappingExternal,
	}
	if len(r.Files) > 1 {
		dev.InterleaveFile = r.Files[1]
	}
	return dev
}

// Profile describes the firmware of one machine.
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AT          bool   `json:"at,omitempty"`
	Bus16       bool   `json:"bus16,omitempty"`

	// Steps run in order and stop at the first error. If they fail with a
	// recoverable error the Fallback steps are tried instead.
	Steps    []Step `json:"steps"`
	Fallback []Step `json:"fallback,omitempty"`
	ROMs     []ROM  `json:"roms,omitempty"`
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile without a name")
	}
	if len(p.Steps) == 0 {
		return errors.Errorf("profile %q has no firmware steps", p.Name)
	}
	for _, steps := range [][]Step{p.Steps, p.Fallback} {
		for i := range steps {
			if err := steps[i].validate(); err != nil {
				return errors.Wrapf(err, "profile %q step %d", p.Name, i)
			}
		}
		if len(steps) > 0 && steps[0].Aux {
			return errors.Errorf("profile %q starts with an auxiliary load", p.Name)
		}
	}
	for i := range p.ROMs {
		if err := p.ROMs[i].validate(); err != nil {
			return errors.Wrapf(err, "profile %q", p.Name)
		}
	}
	return nil
}

// Files lists every image a profile may open.
func (p *Profile) Files() []string {
	var files []string
	for _, steps := range [][]Step{p.Steps, p.Fallback} {
		for _, s := range steps {
			files = append(files, s.Files...)
		}
	}
	for _, r := range p.ROMs {
		files = append(files, r.Files...)
	}
	return files
}

var profiles = make(map[string]*Profile)

// Register adds a profile to the registry, replacing any with the same name.
func Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	profiles[p.Name] = p
	return nil
}

func Lookup(name string) (*Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Names returns the registered profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadProfiles reads a JSON array of profiles and registers them.
func LoadProfiles(r io.Reader) ([]*Profile, error) {
	var list []*Profile
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "could not decode machine profiles")
	}
	for _, p := range list {
		if err := Register(p); err != nil {
			return nil, err
		}
	}
	return list, nil
}

type Config struct {
	FS        *firmware.HostFS
	Bus       memory.Mapper
	CheckOnly bool
}

// Machine is the firmware side of a brought up machine.
type Machine struct {
	Profile *Profile
	BIOS    *firmware.BIOS

	// Peripherals are the installed option ROMs.
	Peripherals []peripheral.Peripheral

	// Missing lists option ROMs that could not be installed.
	Missing []string
}

func runSteps(b *firmware.BIOS, steps []Step) error {
	for i := range steps {
		if err := steps[i].Run(b); err != nil {
			return err
		}
	}
	return nil
}

// Init loads and maps the BIOS and option ROMs of p. In check-only mode the
// images are only probed for.
func Init(p *Profile, cfg Config) (*Machine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.FS == nil {
		return nil, errors.New("no host file system")
	}
	if cfg.Bus == nil && !cfg.CheckOnly {
		return nil, errors.New("no memory bus")
	}

	bios := firmware.New(firmware.Config{
		FS:        cfg.FS,
		Bus:       cfg.Bus,
		AT:        p.AT,
		Bus16:     p.Bus16,
		CheckOnly: cfg.CheckOnly,
	})

	err := runSteps(bios, p.Steps)
	if err != nil && !firmware.IsFatal(err) && len(p.Fallback) > 0 {
		debug.Log.Printf("%s: primary firmware unavailable (%v), trying fallback", p.Name, err)
		err = runSteps(bios, p.Fallback)
	}
	if err != nil {
		bios.Close()
		return nil, errors.Wrapf(err, "%s", p.Name)
	}

	m := &Machine{Profile: p, BIOS: bios}
	for i := range p.ROMs {
		r := &p.ROMs[i]
		if cfg.CheckOnly {
			for _, f := range r.Files {
				if !cfg.FS.Present(f) {
					m.Missing = append(m.Missing, r.Name)
					break
				}
			}
			continue
		}

		dev := r.device(cfg.FS)
		if err := dev.Install(cfg.Bus); err != nil {
			if firmware.IsFatal(err) {
				m.Close()
				return nil, errors.Wrapf(err, "%s", p.Name)
			}
			debug.Log.Print(err)
			m.Missing = append(m.Missing, r.Name)
			continue
		}
		m.Peripherals = append(m.Peripherals, dev)
	}
	return m, nil
}

// Close removes every mapping the machine installed.
func (m *Machine) Close() error {
	for i := len(m.Peripherals) - 1; i >= 0; i-- {
		if c, ok := m.Peripherals[i].(peripheral.PeripheralCloser); ok {
			c.Close()
		}
	}
	m.Peripherals = nil
	return m.BIOS.Close()
}
