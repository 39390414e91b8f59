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
	"os"
	"testing"

	"github.com/andreas-jonsson/romxt/emulator/debug"
)

func TestMain(m *testing.M) {
	debug.MuteLogging(true)
	os.Exit(m.Run())
}

type ram []byte

func (r ram) ReadByte(addr Pointer) byte {
	return r[uint32(addr)%uint32(len(r))]
}

func (r ram) ReadWord(addr Pointer) uint16 {
	return uint16(r.ReadByte(addr)) | uint16(r.ReadByte(addr+1))<<8
}

func (r ram) ReadDword(addr Pointer) uint32 {
	return uint32(r.ReadWord(addr)) | uint32(r.ReadWord(addr+2))<<16
}

func (r ram) WriteByte(addr Pointer, data byte) {
	r[uint32(addr)%uint32(len(r))] = data
}

func (r ram) WriteWord(addr Pointer, data uint16) {
	r.WriteByte(addr, byte(data))
	r.WriteByte(addr+1, byte(data>>8))
}

func (r ram) WriteDword(addr Pointer, data uint32) {
	r.WriteWord(addr, uint16(data))
	r.WriteWord(addr+2, uint16(data>>16))
}

func filled(n int, v byte) ram {
	r := make(ram, n)
	for i := range r {
		r[i] = v
	}
	return r
}

func TestPointer(t *testing.T) {
	if p := NewPointer(0xF000, 0xFFF0); p != 0xFFFF0 {
		t.Errorf("F000:FFF0 = %v", p)
	}
	if p := NewPointer(0xFFFF, 0x0010); p != 0 {
		t.Errorf("FFFF:0010 = %v", p)
	}
	if p := Pointer(0xFFFF0000).Low(); p != 0xF0000 {
		t.Errorf("Low() = %v", p)
	}
}

func TestBusMapping(t *testing.T) {
	bus := NewBus()
	lower := &Mapping{Base: 0xF0000, Size: 0x10000, Read: filled(0x10000, 0x11)}
	upper := &Mapping{Base: 0xF8000, Size: 0x4000, Read: filled(0x4000, 0x22)}

	if err := bus.AddMapping(lower); err != nil {
		t.Fatal(err)
	}
	if err := bus.AddMapping(upper); err != nil {
		t.Fatal(err)
	}

	if v := bus.ReadByte(0xF0000); v != 0x11 {
		t.Errorf("read = 0x%X", v)
	}
	if v := bus.ReadByte(0xF8000); v != 0x22 {
		t.Error("newest mapping does not win")
	}
	if v := bus.ReadByte(0xEFFFF); v != 0xFF {
		t.Errorf("unmapped read = 0x%X", v)
	}
	if v := bus.ReadDword(0x100000); v != 0xFFFFFFFF {
		t.Errorf("unmapped dword = 0x%X", v)
	}
	if n := len(bus.Mappings()); n != 2 {
		t.Errorf("%d mappings", n)
	}

	bus.RemoveMapping(upper)
	if v := bus.ReadByte(0xF8000); v != 0x11 {
		t.Error("mapping below was not uncovered")
	}
	bus.RemoveMapping(lower)
	if bus.Lookup(0xF0000) != nil || len(bus.Mappings()) != 0 {
		t.Error("mapping not removed")
	}
}

func TestBusHighMapping(t *testing.T) {
	bus := NewBus()
	top := &Mapping{Base: 0xFFFF0000, Size: 0x10000, Read: filled(0x10000, 0x33)}
	if err := bus.AddMapping(top); err != nil {
		t.Fatal(err)
	}
	if bus.Lookup(0xFFFFFFFF) != top {
		t.Error("top of the address space not mapped")
	}

	wrap := &Mapping{Base: 0xFFFF0000, Size: 0x20000, Read: filled(1, 0)}
	if err := bus.AddMapping(wrap); err == nil {
		t.Error("wrapping mapping accepted")
	}
	if err := bus.AddMapping(&Mapping{Base: 0, Size: 0x100}); err == nil {
		t.Error("mapping without a reader accepted")
	}
}

func TestBusWriteProtect(t *testing.T) {
	bus := NewBus()
	r := filled(0x4000, 0)
	m := &Mapping{Base: 0xD0000, Size: 0x4000, Read: r, Write: r}
	if err := bus.AddMapping(m); err != nil {
		t.Fatal(err)
	}

	bus.WriteWord(0xD0010, 0xBEEF)
	if v := bus.ReadWord(0xD0010); v != 0xBEEF {
		t.Errorf("write = 0x%X", v)
	}

	bus.SetState(0xD0000, 0x4000, ReadROMCS|WriteROMCS)
	if s := bus.State(0xD2000); s.Read() != ReadROMCS || s.Write() != WriteROMCS {
		t.Errorf("state = 0x%X", s)
	}
	bus.WriteDword(0xD0010, 0)
	if v := bus.ReadWord(0xD0010); v != 0xBEEF {
		t.Error("write to protected range went through")
	}
}
