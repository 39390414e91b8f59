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

import "github.com/andreas-jonsson/romxt/emulator/memory"

const (
	lowMemoryTop  = uint32(memory.LowMemoryTop)
	lowMemorySize = lowMemoryTop + 1
)

// Geometry rounds firmware windows to what the bus can map.
// Granularity must be a power of two.
type Geometry struct {
	Granularity uint32
}

var DefaultGeometry = Geometry{Granularity: memory.Granularity}

//  0x2000 -> 0x0000 (0x4000 if up)
//  0x4000 -> 0x4000
//  0x6000 -> 0x4000 (0x8000 if up)
func (g Geometry) Normalize(n uint32, up bool) uint32 {
	t := n &^ (g.Granularity - 1)
	if up && n%g.Granularity != 0 {
		t += g.Granularity
	}
	return t
}

// Window returns the base and size mask of a firmware window that holds
// size bytes at addr. The window never crosses the top of the first
// megabyte; if it would, it is pulled down to end exactly there.
func (g Geometry) Window(addr memory.Pointer, size uint32) (memory.Pointer, uint32) {
	if size == 0 {
		size = 1
	} else if size > lowMemorySize {
		size = lowMemorySize
	}

	base := g.Normalize(uint32(addr), false)
	mask := g.Normalize(size, true) - 1
	if uint64(base)+uint64(mask) > uint64(lowMemoryTop) {
		base = lowMemoryTop - mask
	}
	return memory.Pointer(base), mask
}
