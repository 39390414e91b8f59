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

package rom

// OptionSize returns the length declared in an option ROM header.
func OptionSize(data []byte) (int, bool) {
	if len(data) < 3 || data[0] != 0x55 || data[1] != 0xAA {
		return 0, false
	}
	return int(data[2]) * 512, true
}

// Checksum returns the 8-bit sum of data. Valid ROMs sum to zero.
func Checksum(data []byte) byte {
	var sum byte
	for _, v := range data {
		sum += v
	}
	return sum
}

// Fix sets the last byte of data so the image sums to zero and returns it.
func Fix(data []byte) byte {
	if len(data) == 0 {
		return 0
	}
	n := len(data) - 1
	data[n] = byte(256 - int(Checksum(data[:n])))
	return data[n]
}
