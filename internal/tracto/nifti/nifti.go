// Package nifti loads binary masks from NIfTI-1 volumes. It reads just
// enough of the format for scoring: grid dimensions, datatype and the raw
// data section, with any non-zero voxel treated as set. Plain and gzipped
// files are supported, in either byte order.
package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/tractometry/tractoscore/internal/tracto"
)

// NIfTI-1 header layout offsets and constants.
const (
	headerSize     = 348
	offsetDim      = 40  // int16 dim[8]
	offsetDatatype = 70  // int16
	offsetVoxOff   = 108 // float32
	offsetMagic    = 344 // "n+1\x00" or "ni1\x00"
)

// Supported NIfTI datatype codes.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
)

// Reader implements the tracto mask-loading collaborator for NIfTI-1 files.
type Reader struct{}

var _ tracto.MaskReader = Reader{}

// ReadMask implements tracto.MaskReader.
func (Reader) ReadMask(path string) (*tracto.Mask, error) {
	return ReadMask(path)
}

// ReadMask loads a NIfTI-1 volume as a binary mask. Voxels with a non-zero
// value are set. Only 3-D volumes are accepted.
func ReadMask(path string) (*tracto.Mask, error) {
	data, err := readMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("read nifti file: %w", err)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("nifti file %s too short: %d bytes", path, len(data))
	}

	magic := string(data[offsetMagic : offsetMagic+4])
	if magic != "n+1\x00" && magic != "ni1\x00" {
		return nil, fmt.Errorf("nifti file %s has bad magic %q", path, magic)
	}

	order, err := detectByteOrder(data)
	if err != nil {
		return nil, fmt.Errorf("nifti file %s: %w", path, err)
	}

	ndim := int(int16(order.Uint16(data[offsetDim:])))
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("nifti file %s has %d dimensions, want 3", path, ndim)
	}
	var dim [3]int
	for i := 0; i < 3; i++ {
		dim[i] = int(int16(order.Uint16(data[offsetDim+2*(i+1):])))
		if dim[i] <= 0 {
			return nil, fmt.Errorf("nifti file %s has non-positive dim[%d] = %d", path, i+1, dim[i])
		}
	}
	// Trailing singleton dimensions (e.g. a 4-D file with one volume) are fine.
	for i := 4; i <= ndim; i++ {
		if extra := int(int16(order.Uint16(data[offsetDim+2*i:]))); extra > 1 {
			return nil, fmt.Errorf("nifti file %s has non-singleton dim[%d] = %d", path, i, extra)
		}
	}

	datatype := int(int16(order.Uint16(data[offsetDatatype:])))
	voxOffset := int(math.Float32frombits(order.Uint32(data[offsetVoxOff:])))
	if voxOffset < headerSize {
		voxOffset = headerSize + 4 // header plus extension flag
	}
	if voxOffset > len(data) {
		return nil, fmt.Errorf("nifti file %s declares data offset %d beyond file size %d", path, voxOffset, len(data))
	}

	nvox := dim[0] * dim[1] * dim[2]
	body := data[voxOffset:]

	mask := tracto.NewMask(dim)
	switch datatype {
	case dtUint8:
		if len(body) < nvox {
			return nil, truncErr(path, nvox, len(body))
		}
		for i := 0; i < nvox; i++ {
			mask.Data[i] = body[i] != 0
		}
	case dtInt16:
		if len(body) < 2*nvox {
			return nil, truncErr(path, 2*nvox, len(body))
		}
		for i := 0; i < nvox; i++ {
			mask.Data[i] = int16(order.Uint16(body[2*i:])) != 0
		}
	case dtInt32:
		if len(body) < 4*nvox {
			return nil, truncErr(path, 4*nvox, len(body))
		}
		for i := 0; i < nvox; i++ {
			mask.Data[i] = int32(order.Uint32(body[4*i:])) != 0
		}
	case dtFloat32:
		if len(body) < 4*nvox {
			return nil, truncErr(path, 4*nvox, len(body))
		}
		for i := 0; i < nvox; i++ {
			mask.Data[i] = math.Float32frombits(order.Uint32(body[4*i:])) != 0
		}
	case dtFloat64:
		if len(body) < 8*nvox {
			return nil, truncErr(path, 8*nvox, len(body))
		}
		for i := 0; i < nvox; i++ {
			mask.Data[i] = math.Float64frombits(order.Uint64(body[8*i:])) != 0
		}
	default:
		return nil, fmt.Errorf("nifti file %s has unsupported datatype %d", path, datatype)
	}

	return mask, nil
}

func truncErr(path string, want, got int) error {
	return fmt.Errorf("nifti file %s data section truncated: want %d bytes, got %d", path, want, got)
}

// detectByteOrder uses the sizeof_hdr field (always 348) to decide the
// volume's byte order.
func detectByteOrder(data []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(data) == headerSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(data) == headerSize {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("cannot determine byte order (sizeof_hdr != %d)", headerSize)
}

// readMaybeGzip reads the whole file, transparently decompressing when the
// name ends in .gz or the content starts with the gzip magic.
func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var head [2]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && n < 2 {
		return nil, fmt.Errorf("file too short")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, ".gz") || (head[0] == 0x1f && head[1] == 0x8b) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return io.ReadAll(f)
}
