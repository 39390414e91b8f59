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

import (
	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/firmware"
	"github.com/andreas-jonsson/romxt/emulator/firmware/pe"
	"github.com/andreas-jonsson/romxt/emulator/memory"
)

type Kind string

const (
	KindLinear      Kind = "linear"
	KindInverted    Kind = "inverted"
	KindInterleaved Kind = "interleaved"
	KindCombined    Kind = "combined"
	KindCombined2   Kind = "combined2"
	KindCombined2Ex Kind = "combined2ex"
	KindPE          Kind = "pe"
)

// Step is one firmware load of a machine bring-up.
type Step struct {
	Kind   Kind     `json:"kind"`
	Files  []string `json:"files"`
	Addr   uint32   `json:"addr,omitempty"`
	Size   int      `json:"size,omitempty"`
	Offset int64    `json:"offset,omitempty"`
	Aux    bool     `json:"aux,omitempty"`
	Mirror bool     `json:"mirror,omitempty"`

	// Resource key for KindPE. Files are candidate executables tried in order.
	Type string  `json:"type,omitempty"`
	ID   uint32  `json:"id,omitempty"`
	Sub  *uint32 `json:"sub,omitempty"`
}

var ErrInvalidStep = errors.New("invalid firmware step")

func (s *Step) validate() error {
	files := map[Kind][2]int{
		KindLinear:      {1, 1},
		KindInverted:    {1, 1},
		KindInterleaved: {2, 2},
		KindCombined:    {2, 2},
		KindCombined2:   {4, 5},
		KindCombined2Ex: {4, 5},
		KindPE:          {1, -1},
	}
	n, ok := files[s.Kind]
	if !ok {
		return errors.Wrapf(ErrInvalidStep, "unknown kind %q", s.Kind)
	}
	if len(s.Files) < n[0] {
		return errors.Wrapf(ErrInvalidStep, "%s needs at least %d files, got %d", s.Kind, n[0], len(s.Files))
	}
	if n[1] >= 0 && len(s.Files) > n[1] {
		return errors.Wrapf(ErrInvalidStep, "%s takes at most %d files, got %d", s.Kind, n[1], len(s.Files))
	}

	switch s.Kind {
	case KindPE:
		if s.Type == "" {
			return errors.Wrap(ErrInvalidStep, "pe step without a resource type")
		}
	case KindCombined, KindCombined2, KindCombined2Ex:
		if s.Aux {
			return errors.Wrapf(ErrInvalidStep, "%s cannot be auxiliary", s.Kind)
		}
		fallthrough
	default:
		if s.Size <= 0 {
			return errors.Wrapf(ErrInvalidStep, "%s step with size %d", s.Kind, s.Size)
		}
	}
	return nil
}

func (s *Step) request() firmware.Request {
	req := firmware.Request{File: s.Files[0], Addr: memory.Pointer(s.Addr), Size: s.Size, Offset: s.Offset}
	if s.Aux {
		req.Flags |= firmware.FlagAux
	}
	if s.Mirror {
		req.Flags |= firmware.FlagMirror
	}
	switch s.Kind {
	case KindInverted:
		req.Flags |= firmware.FlagInverted
	case KindInterleaved:
		req.Flags |= firmware.FlagInterleaved
		req.HighFile = s.Files[1]
	}
	return req
}

func (s *Step) file(i int) string {
	if i < len(s.Files) {
		return s.Files[i]
	}
	return ""
}

// Run performs the step on b.
func (s *Step) Run(b *firmware.BIOS) error {
	switch s.Kind {
	case KindCombined:
		return b.LoadCombined(s.file(0), s.file(1), s.Size, s.Offset)
	case KindCombined2:
		return b.LoadCombined2(s.file(0), s.file(1), s.file(2), s.file(3), s.file(4), s.Size, s.Offset)
	case KindCombined2Ex:
		return b.LoadCombined2Ex(s.file(0), s.file(1), s.file(2), s.file(3), s.file(4), s.Size, s.Offset)
	case KindPE:
		return s.runPE(b)
	default:
		return b.Load(s.request())
	}
}

func (s *Step) runPE(b *firmware.BIOS) error {
	sub := uint32(pe.AnySub)
	if s.Sub != nil {
		sub = *s.Sub
	}

	var err error
	for _, path := range s.Files {
		if err = b.LoadPEResource(path, s.Type, s.ID, sub); err == nil || firmware.IsFatal(err) {
			return err
		}
		debug.Log.Printf("ROM: skipping '%s': %v", path, err)
	}
	return err
}
