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

const (
	// BIOS images above 128K are only shadowed at 0xE0000-0xFFFFF.
	lowShadowBase memory.Pointer = 0xE0000
	lowShadowSize                = 0x20000

	highAlias16 memory.Pointer = 0x00F00000
	highAlias32 memory.Pointer = 0xFFF00000

	romFlags = memory.MappingExternal | memory.MappingROM | memory.MappingROMCS
	romState = memory.ReadROMCS | memory.WriteROMCS
)

// HighAlias returns where an AT chipset repeats the BIOS window.
func (b *BIOS) HighAlias() memory.Pointer {
	if b.cfg.Bus16 {
		return b.Base | highAlias16
	}
	return b.Base | highAlias32
}

// Mappings returns the low and, on AT machines, the high mapping.
func (b *BIOS) Mappings() (low, high *memory.Mapping) {
	return b.low, b.high
}

func (b *BIOS) shadow() error {
	b.unmap()

	bus := b.cfg.Bus
	if bus == nil {
		return nil
	}

	size := b.Mask + 1
	low := &memory.Mapping{Base: b.Base, Size: size, Read: b, Backing: b.rom, Flags: romFlags}
	if size > lowShadowSize {
		low.Base = lowShadowBase
		low.Size = lowShadowSize
		low.Backing = b.rom[len(b.rom)-lowShadowSize:]
	}

	if err := bus.AddMapping(low); err != nil {
		return errors.Wrap(err, "could not map BIOS")
	}
	bus.SetState(low.Base, low.Size, romState)
	b.low = low
	debug.Log.Printf("BIOS mapped at %v", low)

	if !b.cfg.AT {
		return nil
	}

	high := &memory.Mapping{Base: b.HighAlias(), Size: size, Read: b, Backing: b.rom, Flags: romFlags}
	if err := bus.AddMapping(high); err != nil {
		b.unmap()
		return errors.Wrap(err, "could not map BIOS high alias")
	}
	bus.SetState(high.Base, high.Size, romState)
	b.high = high
	debug.Log.Printf("BIOS aliased at %v", high)
	return nil
}

func (b *BIOS) unmap() {
	if bus := b.cfg.Bus; bus != nil {
		if b.high != nil {
			bus.RemoveMapping(b.high)
		}
		if b.low != nil {
			bus.RemoveMapping(b.low)
		}
	}
	b.low, b.high = nil, nil
}
