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
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/debug"
	"github.com/andreas-jonsson/romxt/emulator/firmware/pe"
	"github.com/andreas-jonsson/romxt/emulator/memory"
)

// ExpandEnv replaces %NAME% references with environment variables.
// An unterminated or undefined reference is an error.
func ExpandEnv(s string) (string, error) {
	var sb strings.Builder
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			sb.WriteString(s)
			return sb.String(), nil
		}
		j := strings.IndexByte(s[i+1:], '%')
		if j < 0 {
			return "", errors.Errorf("unterminated environment reference in %q", s)
		}

		name := s[i+1 : i+1+j]
		v, ok := os.LookupEnv(name)
		if !ok || name == "" {
			return "", errors.Errorf("environment variable %q is not set", name)
		}
		sb.WriteString(s[:i])
		sb.WriteString(v)
		s = s[i+2+j:]
	}
}

// FindPEResource locates a resource in a host executable. The returned
// image name is the absolute form of the expanded path.
func (h *HostFS) FindPEResource(path string, key pe.Key) (string, pe.Blob, error) {
	expanded, err := ExpandEnv(path)
	if err != nil {
		return "", pe.Blob{}, err
	}
	name := Absolute(expanded)

	fp, err := h.openImage(name)
	if err != nil {
		return "", pe.Blob{}, err
	}
	defer fp.Close()

	blob, err := pe.Find(fp, key)
	if err == nil {
		err = fits(fp, blob)
	}
	if err != nil {
		debug.Log.Printf("ROM: PE \"%s\" resource %s/%d/%d: %v", expanded, key.Type, key.ID, int32(key.Sub), err)
		return "", pe.Blob{}, err
	}
	return name, blob, nil
}

// fits checks that the resource data lies within the file.
func fits(fp io.Seeker, blob pe.Blob) error {
	if _, err := fp.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(pe.ErrNotFound, err.Error())
	}
	length, err := Remaining(fp)
	if err != nil {
		return errors.Wrap(pe.ErrNotFound, err.Error())
	}
	if blob.Offset < 0 || blob.Offset+int64(blob.Size) > length {
		return errors.Wrapf(pe.ErrNotFound, "resource data %d bytes at %d past the end of a %d byte file", blob.Size, blob.Offset, length)
	}
	return nil
}

// LoadPEResource loads a BIOS embedded in the resource tree of a host
// executable. The image is placed so it ends at the top of the first megabyte.
func (b *BIOS) LoadPEResource(path, typ string, id, sub uint32) error {
	if b.cfg.FS == nil {
		return errNoFS
	}

	name, blob, err := b.cfg.FS.FindPEResource(path, pe.Key{Type: typ, ID: id, Sub: sub})
	if err != nil {
		return err
	}
	if blob.Size == 0 || blob.Size > lowMemorySize {
		return errors.Wrapf(ErrBounds, "resource %s/%d is %d bytes", typ, id, blob.Size)
	}

	debug.Log.Printf("ROM: loading %d bytes from offset %d", blob.Size, blob.Offset)
	return b.LoadLinear(name, memory.Pointer(lowMemorySize-blob.Size), int(blob.Size), blob.Offset)
}
