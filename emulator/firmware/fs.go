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
	"path/filepath"

	"github.com/spf13/afero"
)

// AbsolutePath is the escape byte that marks an image name as a host path.
// Names without it are relative to the ROM directory. The convention is
// shared with machine profiles and must not change.
const AbsolutePath = '\x01'

// Absolute encodes a host path as an image name.
func Absolute(path string) string {
	return string(AbsolutePath) + path
}

// HostFS resolves image names against a ROM directory on an afero file system.
type HostFS struct {
	Fs   afero.Fs
	Root string
}

func NewHostFS(fs afero.Fs, root string) *HostFS {
	return &HostFS{Fs: fs, Root: root}
}

// NewOsFS serves images from the host file system, read-only.
func NewOsFS(root string) *HostFS {
	return NewHostFS(afero.NewReadOnlyFs(afero.NewOsFs()), root)
}

// Resolve returns the host path an image name refers to.
func (h *HostFS) Resolve(name string) string {
	if len(name) > 0 && name[0] == AbsolutePath {
		return name[1:]
	}
	return filepath.Join(h.Root, name)
}

func (h *HostFS) Open(name string) (afero.File, error) {
	return h.Fs.Open(h.Resolve(name))
}

// Present reports if the image can be opened.
func (h *HostFS) Present(name string) bool {
	fp, err := h.Open(name)
	if err != nil {
		return false
	}
	fp.Close()
	return true
}

// Remaining returns the number of bytes between the current position and
// the end of s. The position is left unchanged.
func Remaining(s io.Seeker) (int64, error) {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end - cur, nil
}
