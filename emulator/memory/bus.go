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
	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
)

var ErrInvalidMapping = errors.New("invalid memory mapping")

// Bus is a minimal page-table bus. Each granularity page holds a stack of
// mappings and the most recently added mapping that covers an address wins.
// Mappings must be added and removed before the CPU starts issuing reads.
type Bus struct {
	pages  map[uint32][]*Mapping
	states map[uint32]State
	dummy  DummyMemory
}

func NewBus() *Bus {
	return &Bus{
		pages:  make(map[uint32][]*Mapping),
		states: make(map[uint32]State),
	}
}

func pageOf(addr Pointer) uint32 {
	return uint32(addr) / Granularity
}

func pageSpan(base Pointer, size uint32) (uint32, uint32) {
	last := uint64(base) + uint64(size) - 1
	return pageOf(base), uint32(last / Granularity)
}

func (b *Bus) AddMapping(m *Mapping) error {
	if m == nil || m.Read == nil || m.Size == 0 {
		return ErrInvalidMapping
	}
	if uint64(m.Base)+uint64(m.Size) > 1<<32 {
		return errors.Wrapf(ErrInvalidMapping, "mapping %v wraps the address space", m)
	}

	first, last := pageSpan(m.Base, m.Size)
	for p := first; ; p++ {
		b.pages[p] = append(b.pages[p], m)
		if p == last {
			break
		}
	}
	return nil
}

func (b *Bus) RemoveMapping(m *Mapping) {
	if m == nil || m.Size == 0 {
		return
	}

	first, last := pageSpan(m.Base, m.Size)
	for p := first; ; p++ {
		stack := b.pages[p]
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == m {
				stack = append(stack[:i], stack[i+1:]...)
				break
			}
		}
		if len(stack) == 0 {
			delete(b.pages, p)
		} else {
			b.pages[p] = stack
		}
		if p == last {
			break
		}
	}
}

func (b *Bus) SetState(base Pointer, size uint32, state State) {
	if size == 0 {
		return
	}
	first, last := pageSpan(base, size)
	for p := first; ; p++ {
		b.states[p] = state
		if p == last {
			break
		}
	}
}

// State returns the access state of the page containing addr.
func (b *Bus) State(addr Pointer) State {
	return b.states[pageOf(addr)]
}

// Lookup returns the mapping serving addr or nil.
func (b *Bus) Lookup(addr Pointer) *Mapping {
	stack := b.pages[pageOf(addr)]
	for i := len(stack) - 1; i >= 0; i-- {
		if m := stack[i]; m.Contains(addr) {
			return m
		}
	}
	return nil
}

// Mappings returns every distinct mapping currently installed.
func (b *Bus) Mappings() []*Mapping {
	var (
		res  []*Mapping
		seen = make(map[*Mapping]bool)
	)
	for _, stack := range b.pages {
		for _, m := range stack {
			if !seen[m] {
				seen[m] = true
				res = append(res, m)
			}
		}
	}
	return res
}

func (b *Bus) reader(addr Pointer) Reader {
	if m := b.Lookup(addr); m != nil {
		return m.Read
	}
	return &b.dummy
}

func (b *Bus) ReadByte(addr Pointer) byte {
	return b.reader(addr).ReadByte(addr)
}

func (b *Bus) ReadWord(addr Pointer) uint16 {
	return b.reader(addr).ReadWord(addr)
}

func (b *Bus) ReadDword(addr Pointer) uint32 {
	return b.reader(addr).ReadDword(addr)
}

func (b *Bus) writer(addr Pointer) Writer {
	m := b.Lookup(addr)
	if m == nil {
		return &b.dummy
	}
	if m.Write == nil || b.State(addr).Write() == WriteROMCS {
		return nil
	}
	return m.Write
}

func (b *Bus) WriteByte(addr Pointer, data byte) {
	if w := b.writer(addr); w != nil {
		w.WriteByte(addr, data)
		return
	}
	debug.Log.Printf("write to ROM trapped: %v <- 0x%X", addr, data)
}

func (b *Bus) WriteWord(addr Pointer, data uint16) {
	if w := b.writer(addr); w != nil {
		w.WriteWord(addr, data)
		return
	}
	debug.Log.Printf("write to ROM trapped: %v <- 0x%X", addr, data)
}

func (b *Bus) WriteDword(addr Pointer, data uint32) {
	if w := b.writer(addr); w != nil {
		w.WriteDword(addr, data)
		return
	}
	debug.Log.Printf("write to ROM trapped: %v <- 0x%X", addr, data)
}
