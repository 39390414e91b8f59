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

package main

import (
	"flag"
	"log"
	"os"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/romxt/emulator/peripheral/rom"
)

var (
	inputFile string
	fix       bool
)

func init() {
	flag.StringVar(&inputFile, "in", "", "ROM image to check")
	flag.BoolVar(&fix, "fix", false, "Patch the last byte so the image sums to zero")
}

func main() {
	flag.Parse()
	if inputFile == "" {
		flag.Usage()
		os.Exit(-1)
	}

	fs := afero.NewOsFs()
	data, err := afero.ReadFile(fs, inputFile)
	if err != nil {
		log.Print(err)
		os.Exit(-1)
	}

	image := data
	if n, ok := rom.OptionSize(data); ok {
		log.Printf("Option ROM header, %d bytes declared", n)
		if n > len(data) {
			log.Printf("Image is only %d bytes", len(data))
			os.Exit(-1)
		}
		image = data[:n]
	}

	if sum := rom.Checksum(image); sum == 0 {
		log.Print("Checksum: OK")
		return
	} else if !fix {
		log.Printf("Checksum: 0x%X", sum)
		os.Exit(1)
	}

	log.Printf("Checksum: 0x%X", rom.Fix(image))
	if err := afero.WriteFile(fs, inputFile, data, 0644); err != nil {
		log.Print(err)
		os.Exit(-1)
	}
}
