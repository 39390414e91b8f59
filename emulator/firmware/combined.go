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

// Fixed recipes for firmware sets that are split over several chips at
// addresses outside the single window model. The offsets and sizes follow
// the board layouts.

// recipe runs every step even if an earlier one failed and returns the
// first error. A fatal error stops it at once.
func (b *BIOS) recipe(reqs ...Request) error {
	var res error
	for _, req := range reqs {
		if err := b.Load(req); err != nil {
			if IsFatal(err) {
				return err
			}
			if res == nil {
				res = err
			}
		}
	}
	return res
}

// LoadCombined maps a 64K BIOS at 0xF0000 and its extension at 0xE0000.
// Both images carry a 128 byte header. The off argument is not used.
func (b *BIOS) LoadCombined(fn1, fn2 string, size int, off int64) error {
	return b.recipe(
		Request{File: fn1, Addr: 0xF0000, Size: 131072, Offset: 128},
		Request{File: fn2, Addr: 0xE0000, Size: size - 65536, Offset: 128, Flags: FlagAux},
	)
}

// LoadCombined2 builds a 256K window at 0xC0000 from four chips plus an
// optional 16K chip at 0xEC000.
func (b *BIOS) LoadCombined2(fn1, fn2, fn3, fn4, fn5 string, size int, off int64) error {
	reqs := []Request{
		{File: fn3, Addr: 0xF0000, Size: 262144, Offset: off},
		{File: fn1, Addr: 0xD0000, Size: 65536, Offset: off, Flags: FlagAux},
		{File: fn2, Addr: 0xC0000, Size: 65536, Offset: off, Flags: FlagAux},
		{File: fn4, Addr: 0xE0000, Size: size - 196608, Offset: off, Flags: FlagAux},
	}
	if fn5 != "" {
		reqs = append(reqs, Request{File: fn5, Addr: 0xEC000, Size: 16384, Flags: FlagAux})
	}
	return b.recipe(reqs...)
}

// LoadCombined2Ex is LoadCombined2 with the chips in the alternate order
// and the optional chip at 0xFC000.
func (b *BIOS) LoadCombined2Ex(fn1, fn2, fn3, fn4, fn5 string, size int, off int64) error {
	reqs := []Request{
		{File: fn3, Addr: 0xE0000, Size: 262144, Offset: off},
		{File: fn1, Addr: 0xC0000, Size: 65536, Offset: off, Flags: FlagAux},
		{File: fn2, Addr: 0xD0000, Size: 65536, Offset: off, Flags: FlagAux},
		{File: fn4, Addr: 0xF0000, Size: size - 196608, Offset: off, Flags: FlagAux},
	}
	if fn5 != "" {
		reqs = append(reqs, Request{File: fn5, Addr: 0xFC000, Size: 16384, Flags: FlagAux})
	}
	return b.recipe(reqs...)
}
