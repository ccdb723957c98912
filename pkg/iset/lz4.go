package iset

import (
	"bytes"
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// Element byte sizes for the hibernation columns.
const (
	uint32ByteSize  = 4
	float64ByteSize = 8
)

// CompressUInt32Slice compresses a slice of uint32-s with LZ4.
func CompressUInt32Slice(data []uint32) []byte {
	buf := new(bytes.Buffer)

	writeErr := binary.Write(buf, binary.LittleEndian, data)
	if writeErr != nil {
		return nil
	}

	return CompressBytes(buf.Bytes())
}

// DecompressUInt32Slice decompresses a slice of uint32-s previously compressed
// with LZ4. `result` must be preallocated to the original length.
func DecompressUInt32Slice(data []byte, result []uint32) {
	decompressed := DecompressBytes(data, len(result)*uint32ByteSize)
	if decompressed == nil {
		return
	}

	readErr := binary.Read(bytes.NewReader(decompressed), binary.LittleEndian, result)
	if readErr != nil {
		return
	}
}

// CompressFloat64Slice compresses a slice of float64-s with LZ4.
func CompressFloat64Slice(data []float64) []byte {
	buf := new(bytes.Buffer)

	writeErr := binary.Write(buf, binary.LittleEndian, data)
	if writeErr != nil {
		return nil
	}

	return CompressBytes(buf.Bytes())
}

// DecompressFloat64Slice decompresses a slice of float64-s previously
// compressed with LZ4. `result` must be preallocated to the original length.
func DecompressFloat64Slice(data []byte, result []float64) {
	decompressed := DecompressBytes(data, len(result)*float64ByteSize)
	if decompressed == nil {
		return
	}

	readErr := binary.Read(bytes.NewReader(decompressed), binary.LittleEndian, result)
	if readErr != nil {
		return
	}
}

// Block encoding markers. LZ4 reports incompressible input by writing zero
// bytes; such blocks are stored raw instead.
const (
	blockRaw = 0
	blockLZ4 = 1
)

// CompressBytes compresses a raw byte slice into a single marked LZ4 block.
// Incompressible input is stored raw behind the marker byte.
func CompressBytes(data []byte) []byte {
	compressed := make([]byte, 1+lz4.CompressBlockBound(len(data)))
	compressed[0] = blockLZ4

	written, err := lz4.CompressBlock(data, compressed[1:], nil)
	if err != nil || written == 0 {
		raw := make([]byte, 1+len(data))
		raw[0] = blockRaw
		copy(raw[1:], data)

		return raw
	}

	return compressed[:1+written]
}

// DecompressBytes decompresses a single marked block whose original length is
// known to the caller.
func DecompressBytes(data []byte, originalLen int) []byte {
	if len(data) == 0 {
		return nil
	}

	decompressed := make([]byte, originalLen)

	if data[0] == blockRaw {
		copy(decompressed, data[1:])

		return decompressed
	}

	_, err := lz4.UncompressBlock(data[1:], decompressed)
	if err != nil {
		return nil
	}

	return decompressed
}
