// Command mat73dump reports the fixed root-group layout of a file written
// by this module: the superblock's recorded end-of-file address, the local
// heap's data-segment size, and the symbol node's member count, followed by
// a raw hex dump of the region the caller asks for. It knows only this
// module's own dialect, not general HDF5.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/scigolib/mat73/internal/core"
	"github.com/scigolib/mat73/internal/structures"
)

func main() {
	offset := flag.Int64("offset", 0, "Additional offset in file to hex-dump from")
	length := flag.Int("length", 128, "Number of bytes to hex-dump")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: mat73dump [flags] <file.mat>")
		flag.PrintDefaults()
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("failed to open file: %v", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		log.Fatalf("failed to stat file: %v", err)
	}
	fileSize := fileInfo.Size()

	fmt.Printf("%s: %d bytes\n", args[0], fileSize)
	printLayout(f, fileSize)

	if *length > 0 {
		dumpHex(f, *offset, *length, fileSize)
	}
}

func printLayout(f *os.File, fileSize int64) {
	if fileSize < int64(core.PreambleSize+core.SuperblockSize) {
		fmt.Println("file too small to contain a superblock; skipping layout summary")
		return
	}

	var eofField [8]byte
	sbEOFAddr := core.BaseAddress + 40 // offset 40 within the superblock: EOF address field
	if _, err := f.ReadAt(eofField[:], int64(sbEOFAddr)); err == nil {
		fmt.Printf("  superblock eof_location:    0x%x\n", binary.LittleEndian.Uint64(eofField[:]))
	}

	heapAddr := core.BaseAddress + core.RootHeapRelAddr
	var segSizeField [8]byte
	if _, err := f.ReadAt(segSizeField[:], int64(heapAddr+structures.DataSegmentSizeOffset)); err != nil {
		return
	}
	segSize := binary.LittleEndian.Uint64(segSizeField[:])
	fmt.Printf("  heap data_segment_size:     0x%x\n", segSize)

	// The symbol node sits immediately past the heap data area, wherever
	// heap expansion left it.
	snodAddr := heapAddr + structures.LocalHeapHeaderSize + segSize
	var numSymbolsField [2]byte
	if _, err := f.ReadAt(numSymbolsField[:], int64(snodAddr+structures.NumSymbolsOffset)); err != nil {
		return
	}
	numSymbols := binary.LittleEndian.Uint16(numSymbolsField[:])
	fmt.Printf("  symbol node num_symbols:    %d\n", numSymbols)

	for i := uint16(0); i < numSymbols; i++ {
		stePos := snodAddr + uint64(structures.SNODHeaderSize) + uint64(i)*uint64(structures.SNODEntrySize)
		var ste [16]byte
		if _, err := f.ReadAt(ste[:], int64(stePos)); err != nil {
			return
		}
		nameOffset := binary.LittleEndian.Uint64(ste[0:8])
		objAddr := binary.LittleEndian.Uint64(ste[8:16]) + core.BaseAddress
		fmt.Printf("  member %d: %-20q heap_offset=0x%-4x object_header=0x%x\n",
			i, readHeapName(f, heapAddr+structures.LocalHeapHeaderSize+nameOffset), nameOffset, objAddr)
	}
}

// readHeapName reads the NUL-terminated link name at the given absolute
// file position. Names are at most 255 bytes by construction.
func readHeapName(f *os.File, pos uint64) string {
	buf := make([]byte, 256)
	n, _ := f.ReadAt(buf, int64(pos))
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return string(buf[:i])
		}
	}
	return string(buf[:n])
}

func dumpHex(f *os.File, offset int64, length int, fileSize int64) {
	if offset < 0 || offset >= fileSize {
		log.Fatalf("invalid offset: %d (file size: %d)", offset, fileSize)
	}

	remaining := fileSize - offset
	readLength := int64(length)
	if readLength > remaining {
		readLength = remaining
	}

	buf := make([]byte, readLength)
	n, err := f.ReadAt(buf, offset)
	if err != nil {
		log.Printf("read error: %v (read %d of %d bytes)", err, n, readLength)
	}

	fmt.Printf("hex dump of %d bytes at offset 0x%x:\n", n, offset)
	for i := 0; i < n; i += 16 {
		end := i + 16
		if end > n {
			end = n
		}
		chunk := buf[i:end]

		fmt.Printf("%08x: ", offset+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Printf("%02x ", chunk[j])
			} else {
				fmt.Print("   ")
			}
			if j == 7 {
				fmt.Print(" ")
			}
		}
		fmt.Print(" |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
}
