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
	"github.com/gdamore/tcell"
)

// HandleKey applies a key press and reports whether the viewer keeps running.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.scroll(-1)
	case tcell.KeyDown:
		v.scroll(1)
	case tcell.KeyPgUp:
		v.scroll(-v.rows())
	case tcell.KeyPgDn:
		v.scroll(v.rows())
	case tcell.KeyHome:
		v.offset = 0
	case tcell.KeyEnd:
		v.offset = v.maxOffset()
	case tcell.KeyTab:
		v.selectRegion(v.region + 1)
	case tcell.KeyBacktab:
		v.selectRegion(v.region - 1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			v.scroll(-1)
		case 'j':
			v.scroll(1)
		}
	}
	return true
}

func (v *Viewer) Run() error {
	s := v.screen
	v.Draw()
	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			if !v.HandleKey(ev) {
				return nil
			}
			v.Draw()
		case *tcell.EventResize:
			v.scroll(0)
			s.Sync()
			v.Draw()
		}
	}
}
