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
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/andreas-jonsson/romxt/emulator/debug"
)

// Only the low 256K of a chip select is decoded.
const chipSelectWindow = 0x40000

// Upper half destination of an inverted image.
const invertedHalf = 0x10000

func chipOffset(addr uint32) uint32 {
	if addr >= chipSelectWindow {
		return 0
	}
	return addr & (chipSelectWindow - 1)
}

func span(dst []byte, offset uint32, n int) ([]byte, error) {
	end := uint64(offset) + uint64(n)
	if n < 0 || end > uint64(len(dst)) {
		return nil, errors.Wrapf(ErrBounds, "%d bytes at 0x%X in a %d byte buffer", n, offset, len(dst))
	}
	return dst[offset:end], nil
}

func (h *HostFS) openImage(name string) (afero.File, error) {
	fp, err := h.Open(name)
	if err != nil {
		debug.Log.Printf("ROM: image '%s' not found", name)
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return fp, nil
}

// The chip loaders below copy an image into dst at addr, folded into the
// chip select window. A nil dst only checks that the image exists.

// LoadLinear copies size bytes from offset off of the image.
func (h *HostFS) LoadLinear(name string, addr uint32, size int, off int64, dst []byte) error {
	fp, err := h.openImage(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	addr = chipOffset(addr)
	if dst == nil {
		return nil
	}

	buf, err := span(dst, addr, size)
	if err != nil {
		return err
	}
	if _, err := fp.Seek(off, io.SeekStart); err != nil {
		return fatal("LoadLinear", name, errors.Wrap(err, "error seeking to the beginning of the file"))
	}
	if _, err := io.ReadFull(fp, buf); err != nil {
		return fatal("LoadLinear", name, errors.Wrap(err, "error reading data"))
	}
	return nil
}

// LoadLinearInverted loads an image whose halves are swapped. The first half
// of the file lands 64K above addr and the second half at addr.
func (h *HostFS) LoadLinearInverted(name string, addr uint32, size int, off int64, dst []byte) error {
	fp, err := h.openImage(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	addr = chipOffset(addr)

	length, err := fp.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, name)
	}
	if length < int64(size) {
		return errors.Wrapf(ErrTruncated, "%s: %d of %d bytes", name, length, size)
	}
	if dst == nil {
		return nil
	}

	half := size >> 1
	upper, err := span(dst, addr+invertedHalf, half)
	if err != nil {
		return err
	}
	lower, err := span(dst, addr, half)
	if err != nil {
		return err
	}

	if _, err := fp.Seek(off, io.SeekStart); err != nil {
		return fatal("LoadLinearInverted", name, errors.Wrap(err, "error seeking to the beginning of the file"))
	}
	if _, err := io.ReadFull(fp, upper); err != nil {
		return fatal("LoadLinearInverted", name, errors.Wrap(err, "error reading the upper half of the data"))
	}
	if _, err := io.ReadFull(fp, lower); err != nil {
		return fatal("LoadLinearInverted", name, errors.Wrap(err, "error reading the lower half of the data"))
	}
	return nil
}

// LoadInterleaved merges a low and a high byte chip. Even bytes come from
// low, odd bytes from high. Past the end of either file the chip reads 0xFF.
func (h *HostFS) LoadInterleaved(low, high string, addr uint32, size int, off int64, dst []byte) error {
	fl, errl := h.Open(low)
	fh, errh := h.Open(high)

	if errl != nil || errh != nil {
		var missing []string
		if errl != nil {
			debug.Log.Printf("ROM: image '%s' not found", low)
			missing = append(missing, low)
		} else {
			fl.Close()
		}
		if errh != nil {
			debug.Log.Printf("ROM: image '%s' not found", high)
			missing = append(missing, high)
		} else {
			fh.Close()
		}
		return errors.Wrap(ErrNotFound, strings.Join(missing, ", "))
	}
	defer fl.Close()
	defer fh.Close()

	addr = chipOffset(addr)
	if dst == nil {
		return nil
	}

	buf, err := span(dst, addr, (size+1)&^1)
	if err != nil {
		return err
	}

	rl, rh := seekReader(fl, off), seekReader(fh, off)
	for c := 0; c < size; c += 2 {
		buf[c] = nextByte(rl)
		buf[c+1] = nextByte(rh)
	}
	return nil
}

// LoadOddEven loads a single file that holds all even bytes followed by
// all odd bytes.
func (h *HostFS) LoadOddEven(name string, addr uint32, size int, off int64, dst []byte) error {
	fp, err := h.openImage(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	addr = chipOffset(addr)
	if dst == nil {
		return nil
	}

	half := size >> 1
	buf, err := span(dst, addr, half<<1)
	if err != nil {
		return err
	}
	if _, err := fp.Seek(off, io.SeekStart); err != nil {
		return fatal("LoadOddEven", name, errors.Wrap(err, "error seeking to the beginning of the file"))
	}

	data := make([]byte, half)
	if _, err := io.ReadFull(fp, data); err != nil {
		return fatal("LoadOddEven", name, errors.Wrap(err, "error reading even data"))
	}
	for i, v := range data {
		buf[i<<1] = v
	}
	if _, err := io.ReadFull(fp, data); err != nil {
		return fatal("LoadOddEven", name, errors.Wrap(err, "error reading odd data"))
	}
	for i, v := range data {
		buf[i<<1+1] = v
	}
	return nil
}

func seekReader(fp afero.File, off int64) io.ByteReader {
	if _, err := fp.Seek(off, io.SeekStart); err != nil {
		return strings.NewReader("")
	}
	return bufio.NewReader(fp)
}

func nextByte(r io.ByteReader) byte {
	b, err := r.ReadByte()
	if err != nil {
		return 0xFF
	}
	return b
}
