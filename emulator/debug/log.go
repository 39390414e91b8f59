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

package debug

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"sync"
)

var (
	internalLogger = &Logger{out: os.Stderr}
	Log            = log.New(internalLogger, "", log.LstdFlags)
)

// Logger is the shared log sink. Output can be muted while a front-end
// owns the terminal.
type Logger struct {
	sync.RWMutex
	out   io.Writer
	muted bool
}

func (l *Logger) Write(p []byte) (int, error) {
	l.RLock()
	defer l.RUnlock()

	if l.muted {
		return len(p), nil
	}
	return l.out.Write(p)
}

func MuteLogging(b bool) {
	internalLogger.Lock()
	internalLogger.muted = b
	internalLogger.Unlock()
}

// SetOutput redirects the shared log. A nil writer discards everything.
func SetOutput(w io.Writer) {
	if w == nil {
		w = ioutil.Discard
	}
	internalLogger.Lock()
	internalLogger.out = w
	internalLogger.Unlock()
}
