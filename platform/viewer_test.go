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

package platform

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell"

	"github.com/andreas-jonsson/romxt/emulator/memory"
)

type addrMemory struct{}

func (addrMemory) ReadByte(addr memory.Pointer) byte {
	return byte(addr)
}

func (m addrMemory) ReadWord(addr memory.Pointer) uint16 {
	return uint16(m.ReadByte(addr)) | uint16(m.ReadByte(addr+1))<<8
}

func (m addrMemory) ReadDword(addr memory.Pointer) uint32 {
	return uint32(m.ReadWord(addr)) | uint32(m.ReadWord(addr+2))<<16
}

func newViewer(t *testing.T) (*Viewer, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(80, 10)
	return NewViewer(s, addrMemory{}, []Region{
		{Name: "BIOS", Base: 0xF0000, Size: 0x10000},
		{Name: "BIOS alias", Base: 0xFFFF0000, Size: 0x10000},
		{Name: "Option ROM", Base: 0xC8000, Size: 0x28},
	}), s
}

func screenLine(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var sb strings.Builder
	for _, c := range cells[y*w : (y+1)*w] {
		if len(c.Runes) > 0 {
			sb.WriteRune(c.Runes[0])
		} else {
			sb.WriteByte(' ')
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func TestViewerDraw(t *testing.T) {
	v, s := newViewer(t)
	defer s.Fini()

	v.Draw()
	if l := screenLine(s, 0); !strings.Contains(l, "BIOS 000F0000-000FFFFF") {
		t.Errorf("header = %q", l)
	}
	expected := "000F0010  10 11 12 13 14 15 16 17 18 19 1A 1B 1C 1D 1E 1F  |................|"
	if l := screenLine(s, 2); l != expected {
		t.Errorf("row = %q", l)
	}

	v.selectRegion(2)
	v.Draw()
	if l := screenLine(s, 3); !strings.HasPrefix(l, "000C8020  20 21 22 23 24 25 26 27") || !strings.HasSuffix(l, "| !\"#$%&'|") {
		t.Errorf("short row = %q", l)
	}
	if l := screenLine(s, 4); l != "" {
		t.Errorf("row past the region = %q", l)
	}
}

func TestViewerKeys(t *testing.T) {
	v, s := newViewer(t)
	defer s.Fini()

	tests := []struct {
		name string
		ev   *tcell.EventKey
		addr memory.Pointer
	}{
		{"Down", key(tcell.KeyDown), 0xF0010},
		{"PageDown", key(tcell.KeyPgDn), 0xF0090},
		{"Up", tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone), 0xF0080},
		{"PageUpClamped", key(tcell.KeyPgUp), 0xF0000},
		{"UpClamped", key(tcell.KeyUp), 0xF0000},
		{"End", key(tcell.KeyEnd), 0xFFF80},
		{"DownClamped", key(tcell.KeyDown), 0xFFF80},
		{"Home", key(tcell.KeyHome), 0xF0000},
		{"Tab", key(tcell.KeyTab), 0xFFFF0000},
		{"Backtab", key(tcell.KeyBacktab), 0xF0000},
		{"Wrap", key(tcell.KeyBacktab), 0xC8000},
		{"EndShort", key(tcell.KeyEnd), 0xC8000},
	}
	for _, tt := range tests {
		if !v.HandleKey(tt.ev) {
			t.Fatalf("%s: viewer quit", tt.name)
		}
		if a := v.Addr(); a != tt.addr {
			t.Errorf("%s: address = %v, expected %v", tt.name, a, tt.addr)
		}
	}

	if v.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q did not quit")
	}
	if v.HandleKey(key(tcell.KeyEscape)) {
		t.Error("escape did not quit")
	}
}

func TestViewerRun(t *testing.T) {
	v, s := newViewer(t)
	defer s.Fini()

	s.InjectKey(tcell.KeyDown, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if v.Addr() != 0xF0010 {
		t.Errorf("address = %v", v.Addr())
	}
	if l := screenLine(s, 1); !strings.HasPrefix(l, "000F0010") {
		t.Errorf("first row = %q", l)
	}
}
