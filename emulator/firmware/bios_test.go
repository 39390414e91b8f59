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
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/memory"
)

func TestBIOSRoundTrip(t *testing.T) {
	data := pattern(40960, 0x01)
	b, bus := newBIOS(t, map[string][]byte{"bios.bin": data}, false, false)

	if err := b.LoadLinear("bios.bin", 0xF6000, len(data), 0); err != nil {
		t.Fatal(err)
	}
	if b.Base != 0xF4000 || b.Mask != 0xBFFF {
		t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
	}

	for i, v := range data {
		addr := memory.Pointer(0xF6000 + i)
		if r := bus.ReadByte(addr); r != v {
			t.Fatalf("bus read at %v = 0x%X, expected 0x%X", addr, r, v)
		}
	}
	for addr := memory.Pointer(0xF4000); addr < 0xF6000; addr++ {
		if r := bus.ReadByte(addr); r != 0xFF {
			t.Fatalf("unloaded byte at %v = 0x%X", addr, r)
		}
	}
	if r := b.ReadByte(0xF3FFF); r != 0xFF {
		t.Errorf("read below the window = 0x%X", r)
	}
	if bus.Lookup(0xF3FFF) != nil {
		t.Error("mapping extends below the window")
	}
	if r := b.ReadWord(0xFFFFF); r != 0xFF00|uint16(data[len(data)-1]) {
		t.Errorf("word read at the top of the window = 0x%X", r)
	}
	if r := b.ReadDword(0xF6000); r != uint32(data[0])|uint32(data[1])<<8|uint32(data[2])<<16|uint32(data[3])<<24 {
		t.Errorf("dword read = 0x%X", r)
	}
}

func TestBIOSMapping(t *testing.T) {
	data := pattern(0x10000, 0x02)
	b, bus := newBIOS(t, map[string][]byte{"bios.bin": data}, false, false)

	if err := b.LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err != nil {
		t.Fatal(err)
	}
	low, high := b.Mappings()
	if low == nil || high != nil {
		t.Fatalf("mappings = %v, %v", low, high)
	}
	if low.Base != 0xF0000 || low.Size != 0x10000 {
		t.Errorf("low mapping = %v", low)
	}
	if low.Flags != memory.MappingExternal|memory.MappingROM|memory.MappingROMCS {
		t.Errorf("flags = 0x%X", low.Flags)
	}
	if s := bus.State(0xF8000); s != memory.ReadROMCS|memory.WriteROMCS {
		t.Errorf("state = 0x%X", s)
	}

	bus.WriteByte(0xF0000, ^data[0])
	if r := bus.ReadByte(0xF0000); r != data[0] {
		t.Error("write to the BIOS went through")
	}

	// A new primary load replaces the previous mapping.
	if err := b.LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err != nil {
		t.Fatal(err)
	}
	if n := len(bus.Mappings()); n != 1 {
		t.Errorf("%d mappings after reload", n)
	}

	b.Close()
	if n := len(bus.Mappings()); n != 0 || b.Bytes() != nil {
		t.Errorf("%d mappings after close", n)
	}
}

func TestBIOSHighAlias(t *testing.T) {
	data := pattern(0x10000, 0x03)

	for _, tt := range []struct {
		name  string
		bus16 bool
		alias memory.Pointer
	}{
		{"Bus16", true, 0xFF0000},
		{"Bus32", false, 0xFFFF0000},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b, bus := newBIOS(t, map[string][]byte{"bios.bin": data}, true, tt.bus16)
			if err := b.LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err != nil {
				t.Fatal(err)
			}
			if b.HighAlias() != tt.alias {
				t.Fatalf("alias = %v", b.HighAlias())
			}
			if _, high := b.Mappings(); high == nil || high.Base != tt.alias {
				t.Fatalf("high mapping = %v", high)
			}
			for k := memory.Pointer(0); k <= 0xFFFC; k++ {
				if a, e := bus.ReadDword(tt.alias+k), bus.ReadDword(0xF0000+k); a != e {
					t.Fatalf("alias read at +0x%X = 0x%X, expected 0x%X", k, a, e)
				}
			}
		})
	}
}

func TestBIOSLargeWindow(t *testing.T) {
	data := pattern(0x40000, 0x04)
	b, bus := newBIOS(t, map[string][]byte{"big.bin": data}, true, false)

	if err := b.LoadLinear("big.bin", 0xC0000, 0x40000, 0); err != nil {
		t.Fatal(err)
	}
	if b.Base != 0xC0000 || b.Mask != 0x3FFFF {
		t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
	}

	low, high := b.Mappings()
	if low.Base != 0xE0000 || low.Size != 0x20000 {
		t.Errorf("low mapping = %v", low)
	}
	if bus.Lookup(0xC0000) != nil || bus.Lookup(0xDFFFF) != nil {
		t.Error("window below 0xE0000 is mapped")
	}
	if !bytes.Equal(low.Backing, data[0x20000:]) {
		t.Error("low mapping is not backed by the top 128K")
	}
	for k := memory.Pointer(0); k < 0x20000; k += 0x101 {
		if r := bus.ReadByte(0xE0000 + k); r != data[0x20000+k] {
			t.Fatalf("read at %v = 0x%X", 0xE0000+k, r)
		}
	}

	if high.Base != 0xFFFC0000 || high.Size != 0x40000 {
		t.Errorf("high mapping = %v", high)
	}
	for k := memory.Pointer(0); k < 0x40000; k += 0x101 {
		if r := bus.ReadByte(0xFFFC0000 + k); r != data[k] {
			t.Fatalf("alias read at +0x%X = 0x%X", k, r)
		}
	}
	if r := b.ReadByte(0xD0000); r != data[0x10000] {
		t.Errorf("direct read = 0x%X", r)
	}
}

func TestBIOSMirror(t *testing.T) {
	data := pattern(0x8000, 0x05)
	files := map[string][]byte{"small.bin": data}

	t.Run("Mirrored", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadLinearMirrored("small.bin", 0xF8000, 0x20000, 0); err != nil {
			t.Fatal(err)
		}
		if b.Base != 0xE0000 || b.Mask != 0x1FFFF {
			t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
		}
		rom := b.Bytes()
		for q := 0; q < 4; q++ {
			if !bytes.Equal(rom[q*0x8000:(q+1)*0x8000], data) {
				t.Errorf("quarter %d differs from the image", q)
			}
		}
	})

	t.Run("Plain", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadLinear("small.bin", 0xF8000, 0x20000, 0); err != nil {
			t.Fatal(err)
		}
		rom := b.Bytes()
		if !allFF(rom[:0x18000]) || !bytes.Equal(rom[0x18000:], data) {
			t.Error("unmirrored image misplaced")
		}
	})

	t.Run("SmallChip", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadLinearMirrored("small.bin", 0xFC000, 0x8000, 0); err != nil {
			t.Fatal(err)
		}
		rom := b.Bytes()
		if !allFF(rom[:0x4000]) || !bytes.Equal(rom[0x4000:], data[:0x4000]) {
			t.Error("chips below 64K must not be mirrored")
		}
	})
}

func TestBIOSLayouts(t *testing.T) {
	lo, hi := pattern(0x8000, 0x06), pattern(0x8000, 0x07)
	inv := pattern(0x20000, 0x08)
	b, _ := newBIOS(t, map[string][]byte{"lo.bin": lo, "hi.bin": hi, "inv.bin": inv}, false, false)

	if err := b.LoadInterleaved("lo.bin", "hi.bin", 0xF0000, 0x10000, 0); err != nil {
		t.Fatal(err)
	}
	rom := b.Bytes()
	for i := range lo {
		if rom[2*i] != lo[i] || rom[2*i+1] != hi[i] {
			t.Fatalf("interleaved pair %d misplaced", i)
		}
	}

	if err := b.LoadLinearInverted("inv.bin", 0xE0000, 0x20000, 0); err != nil {
		t.Fatal(err)
	}
	rom = b.Bytes()
	if !bytes.Equal(rom[0x10000:], inv[:0x10000]) || !bytes.Equal(rom[:0x10000], inv[0x10000:]) {
		t.Error("inverted halves misplaced")
	}
}

func TestBIOSFailures(t *testing.T) {
	data := pattern(0x10000, 0x09)
	files := map[string][]byte{"bios.bin": data, "short.bin": data[:0x8000]}

	t.Run("Missing", func(t *testing.T) {
		b, bus := newBIOS(t, files, false, false)
		err := b.LoadLinear("none.bin", 0xF0000, 0x10000, 0)
		if errors.Cause(err) != ErrNotFound || IsFatal(err) {
			t.Fatalf("err = %v", err)
		}
		if len(b.Bytes()) != 0x10000 || !allFF(b.Bytes()) {
			t.Error("window should stay blank")
		}
		if len(bus.Mappings()) != 0 {
			t.Error("missing image was mapped")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		b, bus := newBIOS(t, files, false, false)
		if err := b.LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err != nil {
			t.Fatal(err)
		}
		err := b.LoadLinear("short.bin", 0xF0000, 0x10000, 0)
		if !IsFatal(err) {
			t.Fatalf("err = %v, expected a fatal error", err)
		}
		if b.Bytes() != nil {
			t.Error("buffer not released")
		}
		if len(bus.Mappings()) != 0 {
			t.Error("previous mapping survived")
		}
	})

	t.Run("NoFS", func(t *testing.T) {
		if err := New(Config{}).LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err == nil {
			t.Error("load without a file system succeeded")
		}
	})
}

func TestBIOSCheckOnly(t *testing.T) {
	data := pattern(0x10000, 0x0A)
	bus := memory.NewBus()
	b := New(Config{
		FS:        newFS(t, map[string][]byte{"bios.bin": data, "lo.bin": data, "short.bin": data[:0x100]}),
		Bus:       bus,
		CheckOnly: true,
	})

	if err := b.LoadLinear("bios.bin", 0xF0000, 0x10000, 0); err != nil {
		t.Error(err)
	}
	if err := b.LoadLinear("none.bin", 0xF0000, 0x10000, 0); errors.Cause(err) != ErrNotFound {
		t.Errorf("err = %v", err)
	}
	if err := b.LoadInterleaved("lo.bin", "none.bin", 0xF0000, 0x10000, 0); errors.Cause(err) != ErrNotFound {
		t.Errorf("err = %v", err)
	}
	if err := b.LoadLinearInverted("short.bin", 0xE0000, 0x20000, 0); errors.Cause(err) != ErrTruncated {
		t.Errorf("err = %v", err)
	}
	if b.Bytes() != nil || len(bus.Mappings()) != 0 {
		t.Error("check-only load read or mapped an image")
	}
}

func TestCombined(t *testing.T) {
	header := bytes.Repeat([]byte{0xAA}, 128)
	c1, c2 := pattern(0x10000, 0x10), pattern(0x8000, 0x11)

	b, bus := newBIOS(t, map[string][]byte{
		"c1.bin": append(append([]byte(nil), header...), c1...),
		"c2.bin": append(append([]byte(nil), header...), c2...),
	}, false, false)

	if err := b.LoadCombined("c1.bin", "c2.bin", 98304, 0); err != nil {
		t.Fatal(err)
	}
	if b.Base != 0xE0000 || b.Mask != 0x1FFFF {
		t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
	}
	rom := b.Bytes()
	if !bytes.Equal(rom[0x10000:], c1) {
		t.Error("main image misplaced")
	}
	if !bytes.Equal(rom[:0x8000], c2) {
		t.Error("extension misplaced")
	}
	if !allFF(rom[0x8000:0x10000]) {
		t.Error("gap was written")
	}
	if r := bus.ReadByte(0xE0000); r != c2[0] {
		t.Errorf("extension not visible on the bus: 0x%X", r)
	}
}

func TestCombined2(t *testing.T) {
	f1, f2, f3 := pattern(0x10000, 0x21), pattern(0x10000, 0x22), pattern(0x20000, 0x23)
	f4, f5 := pattern(0x10000, 0x24), pattern(0x4000, 0x25)
	files := map[string][]byte{"f1": f1, "f2": f2, "f3": f3, "f4": f4, "f5": f5}

	t.Run("Standard", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadCombined2("f1", "f2", "f3", "f4", "f5", 262144, 0); err != nil {
			t.Fatal(err)
		}
		if b.Base != 0xC0000 || b.Mask != 0x3FFFF {
			t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
		}
		rom := b.Bytes()
		checks := []struct {
			name string
			got  []byte
			want []byte
		}{
			{"fn2 at 0xC0000", rom[0x00000:0x10000], f2},
			{"fn1 at 0xD0000", rom[0x10000:0x20000], f1},
			{"fn4 at 0xE0000", rom[0x20000:0x2C000], f4[:0xC000]},
			{"fn5 at 0xEC000", rom[0x2C000:0x30000], f5},
			{"fn3 at 0xF0000", rom[0x30000:0x40000], f3[:0x10000]},
		}
		for _, c := range checks {
			if !bytes.Equal(c.got, c.want) {
				t.Errorf("%s misplaced", c.name)
			}
		}
	})

	t.Run("NoFifth", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadCombined2("f1", "f2", "f3", "f4", "", 262144, 0); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b.Bytes()[0x20000:0x30000], f4) {
			t.Error("fn4 misplaced")
		}
	})

	t.Run("Extended", func(t *testing.T) {
		b, _ := newBIOS(t, files, false, false)
		if err := b.LoadCombined2Ex("f1", "f2", "f3", "f4", "f5", 262144, 0); err != nil {
			t.Fatal(err)
		}
		if b.Base != 0xC0000 || b.Mask != 0x3FFFF {
			t.Fatalf("window = %v/0x%X", b.Base, b.Mask)
		}
		rom := b.Bytes()
		checks := []struct {
			name string
			got  []byte
			want []byte
		}{
			{"fn1 at 0xC0000", rom[0x00000:0x10000], f1},
			{"fn2 at 0xD0000", rom[0x10000:0x20000], f2},
			{"fn3 at 0xE0000", rom[0x20000:0x30000], f3[:0x10000]},
			{"fn4 at 0xF0000", rom[0x30000:0x3C000], f4[:0xC000]},
			{"fn5 at 0xFC000", rom[0x3C000:0x40000], f5},
		}
		for _, c := range checks {
			if !bytes.Equal(c.got, c.want) {
				t.Errorf("%s misplaced", c.name)
			}
		}
	})

	t.Run("MissingAux", func(t *testing.T) {
		b, bus := newBIOS(t, files, false, false)
		err := b.LoadCombined2("none", "f2", "f3", "f4", "f5", 262144, 0)
		if errors.Cause(err) != ErrNotFound {
			t.Fatalf("err = %v", err)
		}
		rom := b.Bytes()
		if !allFF(rom[0x10000:0x20000]) {
			t.Error("missing chip area was written")
		}
		if !bytes.Equal(rom[:0x10000], f2) || !bytes.Equal(rom[0x2C000:0x30000], f5) {
			t.Error("later chips were skipped")
		}
		if len(bus.Mappings()) == 0 {
			t.Error("primary chip not mapped")
		}
	})
}
