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

// Package pe locates embedded blobs in the resource tree of a PE executable.
//
// Only the parts of the format needed to walk type, ID and language levels
// of the resource directory are decoded. Every short read or missing entry
// fails closed with a recoverable error.
package pe

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// AnySub matches the first leaf of a resource.
const AnySub = 0xFFFFFFFF

const (
	lfanewOffset = 60
	signature    = 0x00004550 // "PE\0\0"
	highBit      = 0x80000000
)

var rsrcName = [8]byte{'.', 'r', 's', 'r', 'c'}

var (
	ErrNotExecutable = errors.New("not a recognized executable")
	ErrNoResources   = errors.New("no resource section")
	ErrNotFound      = errors.New("resource not found")
)

// Key names one leaf of the resource tree.
type Key struct {
	Type string
	ID   uint32
	Sub  uint32
}

// Blob is where the resource data lives in the file.
type Blob struct {
	Offset int64
	Size   uint32
}

type fileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type sectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// contains uses an inclusive end, like the loaders that produced these images.
func (s *sectionHeader) contains(rva uint32) bool {
	return rva >= s.VirtualAddress && uint64(rva) <= uint64(s.VirtualAddress)+uint64(s.SizeOfRawData)
}

func (s *sectionHeader) fileOffset(rva uint32) int64 {
	return int64(s.PointerToRawData) + int64(rva-s.VirtualAddress)
}

type directory struct {
	Characteristics     uint32
	TimeDateStamp       uint32
	MajorVersion        uint16
	MinorVersion        uint16
	NumberOfNameEntries uint16
	NumberOfIDEntries   uint16
}

func (d *directory) entries() int {
	return int(d.NumberOfNameEntries) + int(d.NumberOfIDEntries)
}

type dirEntry struct {
	Name   uint32 // name offset if the high bit is set, integer ID otherwise
	Offset uint32 // subdirectory if the high bit is set, data entry otherwise
}

func (e *dirEntry) named() bool  { return e.Name&highBit != 0 }
func (e *dirEntry) subdir() bool { return e.Offset&highBit != 0 }
func (e *dirEntry) target() uint32 {
	return e.Offset &^ highBit
}

type dataEntry struct {
	DataRVA  uint32
	Size     uint32
	Codepage uint32
	Reserved uint32
}

type parser struct {
	r        io.ReadSeeker
	sections []sectionHeader
	rsrc     *sectionHeader
}

func (p *parser) read(off int64, v interface{}) error {
	if _, err := p.r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	return binary.Read(p.r, binary.LittleEndian, v)
}

// Find walks the resource tree of the executable in r and returns the
// location of the data for key.
func Find(r io.ReadSeeker, key Key) (Blob, error) {
	p := &parser{r: r}
	if err := p.readHeaders(); err != nil {
		return Blob{}, err
	}

	typeDir, err := p.findType(key.Type)
	if err != nil {
		return Blob{}, err
	}
	idDir, err := p.findID(typeDir, key.ID)
	if err != nil {
		return Blob{}, err
	}
	leaf, err := p.findLeaf(idDir, key.Sub)
	if err != nil {
		return Blob{}, err
	}
	return p.resolve(leaf)
}

func (p *parser) readHeaders() error {
	var lfanew, sig uint32
	if err := p.read(lfanewOffset, &lfanew); err != nil {
		return errors.Wrap(ErrNotExecutable, "PE signature short read")
	}
	if err := p.read(int64(lfanew), &sig); err != nil {
		return errors.Wrap(ErrNotExecutable, "PE signature short read")
	}
	if sig != signature {
		return errors.Wrapf(ErrNotExecutable, "PE signature mismatch (%08X)", sig)
	}

	var coff fileHeader
	if err := binary.Read(p.r, binary.LittleEndian, &coff); err != nil {
		return errors.Wrap(err, "COFF header short read")
	}

	// Skip the optional header.
	sectionsOffset := int64(lfanew) + 4 + int64(binary.Size(coff)) + int64(coff.SizeOfOptionalHeader)
	if _, err := p.r.Seek(sectionsOffset, io.SeekStart); err != nil {
		return errors.Wrap(err, "COFF header short read")
	}

	p.sections = make([]sectionHeader, coff.NumberOfSections)
	for i := range p.sections {
		if err := binary.Read(p.r, binary.LittleEndian, &p.sections[i]); err != nil {
			return errors.Wrapf(err, "section %d header short read", i)
		}
		if p.rsrc == nil && p.sections[i].Name == rsrcName {
			p.rsrc = &p.sections[i]
		}
	}
	if p.rsrc == nil {
		return errors.Wrapf(ErrNoResources, "no .rsrc section found (out of %d)", coff.NumberOfSections)
	}
	return nil
}

func (p *parser) dirOffset(off uint32) int64 {
	return int64(p.rsrc.PointerToRawData) + int64(off)
}

func (p *parser) readDir(off uint32, what string) ([]dirEntry, error) {
	var hdr directory
	if err := p.read(p.dirOffset(off), &hdr); err != nil {
		return nil, errors.Wrapf(err, "%s header short read", what)
	}
	entries := make([]dirEntry, hdr.entries())
	if err := binary.Read(p.r, binary.LittleEndian, entries); err != nil {
		return nil, errors.Wrapf(err, "%s entries short read", what)
	}
	return entries, nil
}

func (p *parser) readName(off uint32) ([]uint16, error) {
	var n uint16
	if err := p.read(p.dirOffset(off), &n); err != nil {
		return nil, err
	}
	name := make([]uint16, n)
	if err := binary.Read(p.r, binary.LittleEndian, name); err != nil {
		return nil, err
	}
	return name, nil
}

func equalUTF16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// findType returns the offset of the named type directory.
func (p *parser) findType(typ string) (uint32, error) {
	entries, err := p.readDir(0, "root directory")
	if err != nil {
		return 0, err
	}

	want := utf16.Encode([]rune(typ))
	for i, e := range entries {
		if !e.named() || !e.subdir() {
			continue
		}
		name, err := p.readName(e.Name &^ highBit)
		if err != nil {
			return 0, errors.Wrapf(err, "root directory entry %d name short read", i)
		}
		if equalUTF16(name, want) {
			return e.target(), nil
		}
	}
	return 0, errors.Wrapf(ErrNotFound, "root directory %q", typ)
}

func (p *parser) findID(dir, id uint32) (uint32, error) {
	entries, err := p.readDir(dir, "subdirectory")
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if !e.named() && e.subdir() && e.Name == id {
			return e.target(), nil
		}
	}
	return 0, errors.Wrapf(ErrNotFound, "subdirectory %d", id)
}

func (p *parser) findLeaf(dir, sub uint32) (uint32, error) {
	entries, err := p.readDir(dir, "leaf")
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.named() || e.subdir() {
			continue
		}
		if sub == AnySub || e.Name == sub {
			return e.Offset, nil
		}
	}
	if sub == AnySub {
		return 0, errors.Wrap(ErrNotFound, "no leaves found")
	}
	return 0, errors.Wrapf(ErrNotFound, "leaf %d", sub)
}

func (p *parser) section(rva uint32) *sectionHeader {
	for i := range p.sections {
		if p.sections[i].contains(rva) {
			return &p.sections[i]
		}
	}
	return nil
}

// resolve translates the data entry of a leaf into a file range.
func (p *parser) resolve(leaf uint32) (Blob, error) {
	rva := leaf + p.rsrc.VirtualAddress
	sec := p.section(rva)
	if sec == nil {
		return Blob{}, errors.Wrapf(ErrNotFound, "no section matching VA %08X", rva)
	}

	var data dataEntry
	if err := p.read(sec.fileOffset(rva), &data); err != nil {
		return Blob{}, errors.Wrap(err, "data entry short read")
	}

	if s := p.section(data.DataRVA); s != nil {
		sec = s
	} else if data.DataRVA < sec.VirtualAddress {
		return Blob{}, errors.Wrapf(ErrNotFound, "no section matching data VA %08X", data.DataRVA)
	}
	return Blob{Offset: sec.fileOffset(data.DataRVA), Size: data.Size}, nil
}
