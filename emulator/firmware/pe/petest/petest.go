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

// Package petest builds minimal PE executables with a resource tree.
package petest

import (
	"encoding/binary"
	"unicode/utf16"
)

const (
	peOffset      = 0x40
	sectionTable  = 0x68
	sectionSize   = 40
	textOffset    = 0x200
	textVA        = 0x1000
	rsrcOffset    = 0x400
	rsrcVA        = 0x2000
	optHeaderSize = 16

	// DecoyType is a numeric root entry that Find must skip.
	DecoyType = 3
)

// RsrcNameOffset is the file offset of the resource section name.
const RsrcNameOffset = sectionTable + sectionSize

// Leaf is one language entry of the resource.
type Leaf struct {
	Sub  uint32
	Data []byte
}

type image []byte

func (b *image) grow(n int) {
	if n > len(*b) {
		*b = append(*b, make([]byte, n-len(*b))...)
	}
}

func (b *image) put16(off int, v uint16) {
	b.grow(off + 2)
	binary.LittleEndian.PutUint16((*b)[off:], v)
}

func (b *image) put32(off int, v uint32) {
	b.grow(off + 4)
	binary.LittleEndian.PutUint32((*b)[off:], v)
}

func (b *image) put(off int, data []byte) {
	b.grow(off + len(data))
	copy((*b)[off:], data)
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// DataOffset returns the file offset of the data of leaf i in an image
// produced by Build with the same arguments.
func DataOffset(typ string, leaves []Leaf, i int) int64 {
	l := layout(typ, leaves)
	return int64(rsrcOffset + l.data[i])
}

type rsrcLayout struct {
	typeDir, idDir, decoyIDDir, decoyTypeDir, name, entries int
	data                                                    []int
	end                                                     int
}

// Resource section layout, offsets relative to the section start:
//  root:         "typ" -> typeDir, DecoyType -> decoyTypeDir
//  typeDir:      id+1 -> decoyIDDir, id -> idDir
//  idDir:        leaves
//  decoyIDDir:   one leaf with junk data
func layout(typ string, leaves []Leaf) rsrcLayout {
	var l rsrcLayout
	l.typeDir = 16 + 2*8
	l.idDir = l.typeDir + 16 + 2*8
	l.decoyIDDir = l.idDir + 16 + len(leaves)*8
	l.decoyTypeDir = l.decoyIDDir + 16 + 8
	l.name = l.decoyTypeDir + 16
	l.entries = align4(l.name + 2 + 2*len(utf16.Encode([]rune(typ))))

	off := l.entries + 16*(len(leaves)+1)
	for _, lf := range leaves {
		l.data = append(l.data, off)
		off = align4(off + len(lf.Data))
	}
	l.data = append(l.data, off)
	l.end = align4(off + len(decoy))
	return l
}

var decoy = []byte("DECOY")

// Build returns a PE image whose resource tree holds typ/id with leaves.
func Build(typ string, id uint32, leaves ...Leaf) []byte {
	l := layout(typ, leaves)
	var img image

	// DOS stub and PE signature.
	img.put(0, []byte("MZ"))
	img.put32(60, peOffset)
	img.put(peOffset, []byte("PE\x00\x00"))

	// COFF header.
	coff := peOffset + 4
	img.put16(coff, 0x14C)
	img.put16(coff+2, 2)
	img.put16(coff+16, optHeaderSize)
	img.put16(coff+18, 0x0102)
	img.grow(sectionTable)

	section := func(i int, name string, va, size, ptr int) {
		off := sectionTable + i*sectionSize
		img.put(off, []byte(name))
		img.put32(off+8, uint32(size))
		img.put32(off+12, uint32(va))
		img.put32(off+16, uint32(size))
		img.put32(off+20, uint32(ptr))
	}
	section(0, ".text", textVA, textOffset, textOffset)
	section(1, ".rsrc", rsrcVA, l.end, rsrcOffset)

	for i := 0; i < textOffset; i++ {
		img.put(textOffset+i, []byte{0xCC})
	}

	dir := func(off, named, ids int) {
		img.put16(rsrcOffset+off+12, uint16(named))
		img.put16(rsrcOffset+off+14, uint16(ids))
	}
	entry := func(off int, name, target uint32) {
		img.put32(rsrcOffset+off, name)
		img.put32(rsrcOffset+off+4, target)
	}
	const hi = 0x80000000

	dir(0, 1, 1)
	entry(16, hi|uint32(l.name), hi|uint32(l.typeDir))
	entry(24, DecoyType, hi|uint32(l.decoyTypeDir))

	dir(l.typeDir, 0, 2)
	entry(l.typeDir+16, id+1, hi|uint32(l.decoyIDDir))
	entry(l.typeDir+24, id, hi|uint32(l.idDir))

	dir(l.idDir, 0, len(leaves))
	for i, lf := range leaves {
		entry(l.idDir+16+i*8, lf.Sub, uint32(l.entries+16*i))
	}

	dir(l.decoyIDDir, 0, 1)
	entry(l.decoyIDDir+16, 0, uint32(l.entries+16*len(leaves)))

	dir(l.decoyTypeDir, 0, 0)

	units := utf16.Encode([]rune(typ))
	img.put16(rsrcOffset+l.name, uint16(len(units)))
	for i, u := range units {
		img.put16(rsrcOffset+l.name+2+2*i, u)
	}

	dataEntry := func(i, data, size int) {
		off := rsrcOffset + l.entries + 16*i
		img.put32(off, uint32(rsrcVA+data))
		img.put32(off+4, uint32(size))
		img.put32(off+8, 1252)
	}
	for i, lf := range leaves {
		dataEntry(i, l.data[i], len(lf.Data))
		img.put(rsrcOffset+l.data[i], lf.Data)
	}
	dataEntry(len(leaves), l.data[len(leaves)], len(decoy))
	img.put(rsrcOffset+l.data[len(leaves)], decoy)

	img.grow(rsrcOffset + l.end)
	return img
}
