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

// Package platform shows the firmware mapped on the bus in a terminal.
package platform

import (
	"fmt"

	"github.com/gdamore/tcell"
	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/memory"
)

const bytesPerRow = 16

// Region is a named address range the viewer can page through.
type Region struct {
	Name string
	Base memory.Pointer
	Size uint32
}

func (r Region) String() string {
	return fmt.Sprintf("%s %08X-%08X", r.Name, uint32(r.Base), uint64(r.Base)+uint64(r.Size)-1)
}

type Viewer struct {
	screen  tcell.Screen
	mem     memory.Reader
	regions []Region

	region int
	offset uint32 // top row, relative to the region base
}

func NewViewer(s tcell.Screen, mem memory.Reader, regions []Region) *Viewer {
	return &Viewer{screen: s, mem: mem, regions: regions}
}

// View runs a viewer on the controlling terminal until the user quits.
func View(mem memory.Reader, regions []Region) error {
	if len(regions) == 0 {
		return errors.New("nothing to view")
	}

	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	s.HideCursor()
	s.DisableMouse()
	s.Clear()
	return NewViewer(s, mem, regions).Run()
}

// Addr returns the address of the top row.
func (v *Viewer) Addr() memory.Pointer {
	return v.regions[v.region].Base + memory.Pointer(v.offset)
}

func (v *Viewer) rows() int {
	_, h := v.screen.Size()
	if h -= 2; h < 1 {
		h = 1
	}
	return h
}

func (v *Viewer) maxOffset() uint32 {
	size := v.regions[v.region].Size
	size = (size + bytesPerRow - 1) &^ (bytesPerRow - 1)
	page := uint32(v.rows() * bytesPerRow)
	if size <= page {
		return 0
	}
	return size - page
}

func (v *Viewer) scroll(rows int) {
	off := int64(v.offset) + int64(rows)*bytesPerRow
	if off < 0 {
		off = 0
	} else if max := int64(v.maxOffset()); off > max {
		off = max
	}
	v.offset = uint32(off)
}

func (v *Viewer) selectRegion(i int) {
	n := len(v.regions)
	v.region = ((i % n) + n) % n
	v.offset = 0
}

func (v *Viewer) puts(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func printable(b byte) rune {
	if b < 0x20 || b > 0x7E {
		return '.'
	}
	return rune(b)
}

func (v *Viewer) Draw() {
	s := v.screen
	s.Clear()

	reg := v.regions[v.region]
	bar := tcell.StyleDefault.Reverse(true)
	w, h := s.Size()
	for x := 0; x < w; x++ {
		s.SetContent(x, 0, ' ', nil, bar)
		s.SetContent(x, h-1, ' ', nil, bar)
	}
	v.puts(1, 0, fmt.Sprintf("%s  [%d/%d]", reg, v.region+1, len(v.regions)), bar)
	v.puts(1, h-1, "Up/Down PgUp/PgDn Home/End  Tab: region  q: quit", bar)

	for row := 0; row < v.rows(); row++ {
		off := v.offset + uint32(row*bytesPerRow)
		if off >= reg.Size {
			break
		}
		addr := reg.Base + memory.Pointer(off)

		line := []rune(fmt.Sprintf("%08X ", uint32(addr)))
		ascii := make([]rune, 0, bytesPerRow)
		for i := uint32(0); i < bytesPerRow; i++ {
			if off+i >= reg.Size {
				line = append(line, ' ', ' ', ' ')
				continue
			}
			b := v.mem.ReadByte(addr + memory.Pointer(i))
			line = append(line, []rune(fmt.Sprintf(" %02X", b))...)
			ascii = append(ascii, printable(b))
		}
		line = append(line, ' ', ' ', '|')
		line = append(line, ascii...)
		line = append(line, '|')
		v.puts(0, row+1, string(line), tcell.StyleDefault)
	}
	s.Show()
}
