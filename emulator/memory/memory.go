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

package memory

import (
	"fmt"

	"github.com/andreas-jonsson/romxt/emulator/debug"
)

// Pointer is a physical bus address. Real-mode code only produces 20-bit
// pointers but firmware is also aliased at the top of the 24 and 32 bit
// address spaces.
type Pointer uint32

const (
	// LowMemoryTop is the last byte of the first megabyte.
	LowMemoryTop Pointer = 0xFFFFF

	// Granularity is the smallest region the bus can map.
	Granularity     = 0x4000
	GranularityMask = Granularity - 1
)

func NewPointer(seg, offset uint16) Pointer {
	return (Pointer(seg)*0x10 + Pointer(offset)) & LowMemoryTop
}

func (p Pointer) String() string {
	return fmt.Sprintf("0x%X", uint32(p))
}

// Low folds the pointer into the first megabyte.
func (p Pointer) Low() Pointer {
	return p & LowMemoryTop
}

type Reader interface {
	ReadByte(addr Pointer) byte
	ReadWord(addr Pointer) uint16
	ReadDword(addr Pointer) uint32
}

type Writer interface {
	WriteByte(addr Pointer, data byte)
	WriteWord(addr Pointer, data uint16)
	WriteDword(addr Pointer, data uint32)
}

// Flags describe what kind of device backs a mapping.
type Flags uint32

const (
	MappingExternal Flags = 1 << iota
	MappingInternal
	MappingROM
	MappingROMWaitStates
	MappingROMCS
)

// State selects how reads and writes to a range are routed by the chipset.
type State uint32

const (
	ReadAny State = iota
	ReadInternal
	ReadExternal
	ReadROMCS
)

const (
	WriteAny State = iota << 8
	WriteInternal
	WriteExternal
	WriteROMCS
)

const (
	readStateMask  State = 0xFF
	writeStateMask State = 0xFF00
)

func (s State) Read() State {
	return s & readStateMask
}

func (s State) Write() State {
	return s & writeStateMask
}

// Mapping is one region handed to the bus. The bus only references
// Backing, the owner of the mapping keeps it alive until RemoveMapping.
type Mapping struct {
	Base    Pointer
	Size    uint32
	Read    Reader
	Write   Writer
	Backing []byte
	Flags   Flags
}

func (m *Mapping) Contains(addr Pointer) bool {
	return addr >= m.Base && uint64(addr) < uint64(m.Base)+uint64(m.Size)
}

func (m *Mapping) String() string {
	return fmt.Sprintf("%08X-%08X", uint32(m.Base), uint64(m.Base)+uint64(m.Size)-1)
}

// Mapper is the bus registrar firmware devices publish their handlers to.
type Mapper interface {
	AddMapping(m *Mapping) error
	RemoveMapping(m *Mapping)
	SetState(base Pointer, size uint32, state State)
}

type DummyMemory struct{}

func (m *DummyMemory) ReadByte(addr Pointer) byte {
	debug.Log.Printf("reading unmapped memory: %v", addr)
	return 0xFF
}

func (m *DummyMemory) ReadWord(addr Pointer) uint16 {
	debug.Log.Printf("reading unmapped memory: %v", addr)
	return 0xFFFF
}

func (m *DummyMemory) ReadDword(addr Pointer) uint32 {
	debug.Log.Printf("reading unmapped memory: %v", addr)
	return 0xFFFFFFFF
}

func (m *DummyMemory) WriteByte(addr Pointer, data byte) {
	debug.Log.Printf("writing unmapped memory: %v", addr)
}

func (m *DummyMemory) WriteWord(addr Pointer, data uint16) {
	debug.Log.Printf("writing unmapped memory: %v", addr)
}

func (m *DummyMemory) WriteDword(addr Pointer, data uint32) {
	debug.Log.Printf("writing unmapped memory: %v", addr)
}
