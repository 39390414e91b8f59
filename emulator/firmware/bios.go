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

package firmware

import (
	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/memory"
)

type Flags uint8

const (
	FlagInterleaved Flags = 1 << iota
	FlagInverted
	FlagAux
	FlagMirror
)

// Undersized images are only mirrored when the requested chip is at least this big.
const mirrorMinSize = 0x10000

// Request describes a single file to buffer transfer.
type Request struct {
	File     string
	HighFile string // interleaved only
	Addr     memory.Pointer
	Size     int
	Offset   int64
	Flags    Flags
}

type Config struct {
	FS       *HostFS
	Bus      memory.Mapper
	Geometry Geometry

	// AT machines alias the BIOS below the top of the address space.
	// Bus16 selects the 16MB alias used by CPUs with a 24-bit bus.
	AT, Bus16 bool

	// CheckOnly probes for the images without loading or mapping anything.
	CheckOnly bool
}

// BIOS is the system firmware image of one machine.
type BIOS struct {
	Base memory.Pointer
	Mask uint32

	cfg       Config
	rom       []byte
	low, high *memory.Mapping
}

func New(cfg Config) *BIOS {
	if cfg.Geometry.Granularity == 0 {
		cfg.Geometry = DefaultGeometry
	}
	return &BIOS{cfg: cfg}
}

// Bytes returns the image buffer. It is nil until a primary load.
func (b *BIOS) Bytes() []byte {
	return b.rom
}

func (b *BIOS) reset(addr memory.Pointer, size int) []byte {
	b.release()

	if size < 0 {
		size = 0
	}
	b.Base, b.Mask = b.cfg.Geometry.Window(addr, uint32(size))
	debug.Log.Printf("Load BIOS: %d bytes at %08X-%08X", b.Mask+1, uint32(b.Base), uint32(b.Base)+b.Mask)

	b.rom = make([]byte, b.Mask+1)
	for i := range b.rom {
		b.rom[i] = 0xFF
	}
	return b.rom
}

func (b *BIOS) release() {
	b.unmap()
	b.rom = nil
}

// Close removes the mappings and releases the image.
func (b *BIOS) Close() error {
	b.release()
	return nil
}

// Load performs one transfer. A primary load replaces the image and maps it,
// auxiliary loads add to the current image.
//
//  0xF0000, 65536 = prepare 64k rom starting at 0xF0000, load 64k at 0x0000
//  0xFE000, 65536 = prepare 64k rom starting at 0xF0000, load 8k at 0xE000
//  0xFE000, 49152 = prepare 48k rom starting at 0xF4000, load 8k at 0xA000
//  0xFE000, 8192  = prepare 16k rom starting at 0xFC000, load 8k at 0x2000
func (b *BIOS) Load(req Request) error {
	if b.cfg.FS == nil {
		return errNoFS
	}
	aux := req.Flags&FlagAux != 0

	var ptr []byte
	if !b.cfg.CheckOnly {
		if aux {
			ptr = b.rom
		} else {
			ptr = b.reset(req.Addr, req.Size)
		}
	}

	size := req.Size
	if !aux && uint64(req.Addr)+uint64(size) > uint64(lowMemorySize) {
		size = int(lowMemorySize) - int(req.Addr)
	}

	off := uint32(req.Addr) - uint32(b.Base)
	if !b.cfg.CheckOnly {
		kind := ""
		if aux {
			kind = "auxiliary "
		}
		debug.Log.Printf("Loading %d bytes of %sBIOS starting with ptr[%08X]", size, kind, off)
	}

	var err error
	switch {
	case req.Flags&FlagInterleaved != 0:
		err = b.cfg.FS.LoadInterleaved(req.File, req.HighFile, off, size, req.Offset, ptr)
	case req.Flags&FlagInverted != 0:
		err = b.cfg.FS.LoadLinearInverted(req.File, off, size, req.Offset, ptr)
	default:
		err = b.cfg.FS.LoadLinear(req.File, off, size, req.Offset, ptr)
	}
	if err != nil {
		if IsFatal(err) {
			b.release()
		}
		return err
	}

	if ptr != nil && req.Flags&FlagMirror != 0 && req.Size >= mirrorMinSize && size > 0 && size < req.Size {
		b.mirror(off, size, req.Size/size)
	}

	if b.cfg.CheckOnly || aux {
		return nil
	}
	return b.shadow()
}

// mirror repeats the loaded block from the start of the image.
func (b *BIOS) mirror(off uint32, size, count int) {
	src, err := span(b.rom, off, size)
	if err != nil {
		debug.Log.Print("ROM: can't mirror image: ", err)
		return
	}
	for i := 0; i < count-1; i++ {
		debug.Log.Printf("Copying ptr[%08X] to ptr[%08X]", off, i*size)
		copy(b.rom[i*size:], src)
	}
}

func (b *BIOS) LoadLinear(name string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: name, Addr: addr, Size: size, Offset: off})
}

// LoadLinearMirrored repeats an undersized image across the requested size.
func (b *BIOS) LoadLinearMirrored(name string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: name, Addr: addr, Size: size, Offset: off, Flags: FlagMirror})
}

func (b *BIOS) LoadLinearInverted(name string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: name, Addr: addr, Size: size, Offset: off, Flags: FlagInverted})
}

func (b *BIOS) LoadAuxLinear(name string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: name, Addr: addr, Size: size, Offset: off, Flags: FlagAux})
}

func (b *BIOS) LoadInterleaved(low, high string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: low, HighFile: high, Addr: addr, Size: size, Offset: off, Flags: FlagInterleaved})
}

func (b *BIOS) LoadAuxInterleaved(low, high string, addr memory.Pointer, size int, off int64) error {
	return b.Load(Request{File: low, HighFile: high, Addr: addr, Size: size, Offset: off, Flags: FlagInterleaved | FlagAux})
}

func (b *BIOS) offset(addr memory.Pointer) (uint32, bool) {
	addr = addr.Low()
	if b.rom == nil || addr < b.Base || uint32(addr) > uint32(b.Base)+b.Mask {
		return 0, false
	}
	return uint32(addr - b.Base), true
}

func (b *BIOS) at(i uint32) byte {
	if i < uint32(len(b.rom)) {
		return b.rom[i]
	}
	return 0xFF
}

func (b *BIOS) ReadByte(addr memory.Pointer) byte {
	if o, ok := b.offset(addr); ok {
		return b.rom[o]
	}
	return 0xFF
}

func (b *BIOS) ReadWord(addr memory.Pointer) uint16 {
	if o, ok := b.offset(addr); ok {
		return uint16(b.at(o)) | uint16(b.at(o+1))<<8
	}
	return 0xFFFF
}

func (b *BIOS) ReadDword(addr memory.Pointer) uint32 {
	if o, ok := b.offset(addr); ok {
		return uint32(b.at(o)) | uint32(b.at(o+1))<<8 | uint32(b.at(o+2))<<16 | uint32(b.at(o+3))<<24
	}
	return 0xFFFFFFFF
}

var errNoFS = errors.New("no host file system")
