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

package machine

import "github.com/andreas-jonsson/romxt/emulator/firmware/pe"

func u32(v uint32) *uint32 {
	return &v
}

var builtin = []*Profile{
	{
		Name:        "ibmpc",
		Description: "IBM PC 5150, 8K BIOS repeated across the F segment",
		Steps: []Step{
			{Kind: KindLinear, Files: []string{"machines/ibmpc/pc102782.bin"}, Addr: 0xFE000, Size: 65536, Mirror: true},
		},
	},
	{
		Name:        "ibmxt",
		Description: "IBM PC/XT 5160 with an XT-IDE option ROM",
		Steps: []Step{
			{Kind: KindLinear, Files: []string{"machines/ibmxt/xt.rom"}, Addr: 0xF0000, Size: 65536},
		},
		ROMs: []ROM{
			{Name: "XT-IDE", Files: []string{"hdd/xtide/ide_xt.bin"}, Base: 0xC8000, Size: 8192},
		},
	},
	{
		Name:        "ibmat",
		Description: "IBM PC/AT 5170, split even/odd chips",
		AT:          true,
		Bus16:       true,
		Steps: []Step{
			{Kind: KindInterleaved, Files: []string{"machines/ibmat/62x0820.u27", "machines/ibmat/62x0821.u47"}, Addr: 0xF0000, Size: 65536},
		},
	},
	{
		Name:        "inverted",
		Description: "AT clone with a 128K BIOS stored with swapped halves",
		AT:          true,
		Bus16:       true,
		Steps: []Step{
			{Kind: KindInverted, Files: []string{"machines/inverted/bios.bin"}, Addr: 0xE0000, Size: 131072},
		},
	},
	{
		Name:        "combined",
		Description: "BIOS and extension chip with 128 byte headers",
		AT:          true,
		Steps: []Step{
			{Kind: KindCombined, Files: []string{"machines/combined/bios.bin", "machines/combined/ext.bin"}, Size: 131072},
		},
	},
	{
		Name:        "combined2",
		Description: "Five chip 256K firmware",
		AT:          true,
		Steps: []Step{
			{Kind: KindCombined2, Files: []string{
				"machines/combined2/d.bin",
				"machines/combined2/c.bin",
				"machines/combined2/f.bin",
				"machines/combined2/e.bin",
				"machines/combined2/ec.bin",
			}, Size: 262144},
		},
	},
	{
		Name:        "combined2ex",
		Description: "Five chip 256K firmware, alternate order",
		AT:          true,
		Steps: []Step{
			{Kind: KindCombined2Ex, Files: []string{
				"machines/combined2ex/c.bin",
				"machines/combined2ex/d.bin",
				"machines/combined2ex/e.bin",
				"machines/combined2ex/f.bin",
				"machines/combined2ex/fc.bin",
			}, Size: 262144},
		},
	},
	{
		Name:        "vpc2007",
		Description: "Virtual PC 2007, BIOS from an installed Virtual PC if the image is missing",
		AT:          true,
		Steps: []Step{
			{Kind: KindLinear, Files: []string{"machines/vpc2007/13500.bin"}, Addr: 0xC0000, Size: 262144},
		},
		Fallback: []Step{
			{
				Kind: KindPE,
				Files: []string{
					`%ProgramFiles%\Microsoft Virtual PC\Virtual PC.exe`,
					`%ProgramFiles(x86)%\Microsoft Virtual PC\Virtual PC.exe`,
					`%ProgramW6432%\Microsoft Virtual PC\Virtual PC.exe`,
					`%SystemRoot%\System32\vpc.exe`,
					`%SystemRoot%\Sysnative\vpc.exe`,
				},
				Type: "BIOS",
				ID:   13500,
				Sub:  u32(pe.AnySub),
			},
		},
	},
}

func init() {
	for _, p := range builtin {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}
