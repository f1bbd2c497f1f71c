/*
   us64 image: operating-system image loader.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package image parses and builds the on-disk operating-system image
// format the emulator boots from: a small fixed header followed by a
// raw kernel payload.
package image

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/rcornwell/us64/memory"
	"github.com/rcornwell/us64/vm"
)

// Magic is the 4-byte signature every image must begin with.
var Magic = [4]byte{0x45, 0x45, 0xFA, 0xDE}

const headerSize = 36

// Image is a parsed, not-yet-installed boot image.
type Image struct {
	MemSize uint64 // bytes, after scaling mem_size KiB by 1024
	KerAddr uint64
	KerSize uint64
	KerJump uint64
	Payload []byte
}

// Load reads path and parses it as a boot image.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes a complete image held in memory.
func Parse(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("image: truncated header (%d bytes)", len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return nil, fmt.Errorf("image: bad magic % x", data[0:4])
	}

	memKiB := binary.LittleEndian.Uint64(data[4:12])
	kerAddr := binary.LittleEndian.Uint64(data[12:20])
	kerSize := binary.LittleEndian.Uint64(data[20:28])
	kerJump := binary.LittleEndian.Uint64(data[28:36])
	memSize := memKiB * 1024

	if kerAddr+kerSize < kerAddr || kerAddr+kerSize > memSize {
		return nil, fmt.Errorf("image: kernel [%d,%d) exceeds memory of %d bytes", kerAddr, kerAddr+kerSize, memSize)
	}
	if kerJump >= kerSize {
		return nil, fmt.Errorf("image: entry offset %d outside kernel of %d bytes", kerJump, kerSize)
	}
	if uint64(len(data)-headerSize) < kerSize {
		return nil, fmt.Errorf("image: payload shorter than ker_size (%d < %d)", len(data)-headerSize, kerSize)
	}

	payload := make([]byte, kerSize)
	copy(payload, data[headerSize:uint64(headerSize)+kerSize])

	return &Image{
		MemSize: memSize,
		KerAddr: kerAddr,
		KerSize: kerSize,
		KerJump: kerJump,
		Payload: payload,
	}, nil
}

// Build serializes the fields above into the on-disk layout, primarily
// for tests and tooling that construct images programmatically.
func Build(memKiB, kerAddr, kerSize, kerJump uint64, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint64(buf[4:12], memKiB)
	binary.LittleEndian.PutUint64(buf[12:20], kerAddr)
	binary.LittleEndian.PutUint64(buf[20:28], kerSize)
	binary.LittleEndian.PutUint64(buf[28:36], kerJump)
	copy(buf[headerSize:], payload)
	return buf
}

// NewMachine allocates memory sized to img, copies the kernel payload
// in, zeroes all machine state, and sets IP to the kernel's entry
// point. Segment registers and the translator are left at their
// zero/identity defaults; a bootscript typically configures them
// afterward.
func (img *Image) NewMachine(opt vm.Options, log *slog.Logger) *vm.Machine {
	mem := memory.New(img.MemSize)
	mem.WritePhysical(img.KerAddr, img.Payload)

	m := vm.New(mem, opt, log)
	m.Reset()
	m.Regs[vm.IP] = img.KerAddr + img.KerJump
	return m
}
