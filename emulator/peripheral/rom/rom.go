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

package rom

import (
	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/firmware"
	"github.com/andreas-jonsson/romxt/emulator/memory"
)

type Layout int

const (
	Linear Layout = iota
	OddEven
	Interleaved
)

func (l Layout) String() string {
	switch l {
	case Linear:
		return "linear"
	case OddEven:
		return "odd/even"
	case Interleaved:
		return "interleaved"
	default:
		return "unknown"
	}
}

// Device is an option ROM or any other chip that is not part of the system
// BIOS window.
type Device struct {
	RomName string
	FS      *firmware.HostFS

	File           string
	InterleaveFile string // high byte chip of an Interleaved device
	Base           memory.Pointer
	Size           int
	Mask           uint32 // defaults to Size-1
	Offset         int64
	Layout         Layout
	Flags          memory.Flags

	mem     []byte
	bus     memory.Mapper
	mapping *memory.Mapping
}

func (m *Device) Install(bus memory.Mapper) error {
	if m.RomName == "" {
		m.RomName = "ROM"
	}
	if m.FS == nil {
		return errors.Errorf("%s: no host file system", m.RomName)
	}
	if m.Size <= 0 {
		return errors.Wrapf(firmware.ErrBounds, "%s: size %d", m.RomName, m.Size)
	}
	if m.Mask == 0 {
		m.Mask = uint32(m.Size - 1)
	}

	m.mem = make([]byte, m.Size)
	for i := range m.mem {
		m.mem[i] = 0xFF
	}

	var err error
	switch m.Layout {
	case OddEven:
		err = m.FS.LoadOddEven(m.File, 0, m.Size, m.Offset, m.mem)
	case Interleaved:
		err = m.FS.LoadInterleaved(m.File, m.InterleaveFile, 0, m.Size, m.Offset, m.mem)
	default:
		err = m.FS.LoadLinear(m.File, 0, m.Size, m.Offset, m.mem)
	}
	if err != nil {
		m.mem = nil
		return errors.WithMessage(err, m.RomName)
	}

	if n, ok := OptionSize(m.mem); ok && n <= len(m.mem) {
		if sum := Checksum(m.mem[:n]); sum != 0 {
			debug.Log.Printf("%s: option ROM checksum is 0x%X", m.RomName, sum)
		}
	}

	flags := m.Flags | memory.MappingROM
	if m.Layout == Linear {
		flags |= memory.MappingROMWaitStates
	}
	mapping := &memory.Mapping{Base: m.Base, Size: uint32(m.Size), Read: m, Backing: m.mem, Flags: flags}
	if err := bus.AddMapping(mapping); err != nil {
		m.mem = nil
		return errors.Wrapf(err, "%s: could not map %d bytes at %v", m.RomName, m.Size, m.Base)
	}
	m.bus, m.mapping = bus, mapping

	debug.Log.Printf("%s: %s image '%s' mapped at %v", m.RomName, m.Layout, m.File, mapping)
	return nil
}

func (m *Device) Name() string {
	return m.RomName
}

// Mapping returns the bus mapping of an installed device.
func (m *Device) Mapping() *memory.Mapping {
	return m.mapping
}

// Bytes returns the chip contents.
func (m *Device) Bytes() []byte {
	return m.mem
}

func (m *Device) Close() error {
	if m.mapping != nil {
		m.bus.RemoveMapping(m.mapping)
		m.bus, m.mapping = nil, nil
	}
	m.mem = nil
	return nil
}

func (m *Device) end() memory.Pointer {
	return m.Base + memory.Pointer(m.Size)
}

func (m *Device) at(addr memory.Pointer) byte {
	i := uint32(addr-m.Base) & m.Mask
	if i < uint32(len(m.mem)) {
		return m.mem[i]
	}
	return 0xFF
}

func (m *Device) ReadByte(addr memory.Pointer) byte {
	if addr < m.Base || addr >= m.end() {
		return 0xFF
	}
	return m.at(addr)
}

func (m *Device) ReadWord(addr memory.Pointer) uint16 {
	if uint64(addr)+1 < uint64(m.Base) || addr >= m.end() {
		return 0xFFFF
	}
	return uint16(m.at(addr)) | uint16(m.at(addr+1))<<8
}

func (m *Device) ReadDword(addr memory.Pointer) uint32 {
	if uint64(addr)+3 < uint64(m.Base) || addr >= m.end() {
		return 0xFFFFFFFF
	}
	return uint32(m.at(addr)) | uint32(m.at(addr+1))<<8 | uint32(m.at(addr+2))<<16 | uint32(m.at(addr+3))<<24
}
