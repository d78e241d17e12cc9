// Package tckio reads and writes MRtrix .tck streamline files. Coordinates
// are passed through as stored; the scoring pipeline expects files already
// expressed in the reference voxel space.
package tckio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tractometry/tractoscore/internal/tracto"
)

const (
	magicLine    = "mrtrix tracks"
	headerEnd    = "END"
	datatypeF32  = "Float32LE"
	writerSource = "tractoscore"
)

// IO implements the tracto streamline I/O collaborator interfaces for the
// .tck format. It is stateless and safe for concurrent use.
type IO struct{}

var (
	_ tracto.TractogramReader = IO{}
	_ tracto.TractogramWriter = IO{}
)

// ReadTractogram implements tracto.TractogramReader. The orientation
// attribute is accepted for interface compatibility and ignored: .tck files
// carry a fixed datatype and byte order in their header.
func (IO) ReadTractogram(path string, _ tracto.TractAttributes) (*tracto.Tractogram, error) {
	return Read(path)
}

// WriteTractogram implements tracto.TractogramWriter.
func (IO) WriteTractogram(path string, t *tracto.Tractogram) error {
	return Write(path, t)
}

// Read loads a .tck file. Streamlines are delimited by NaN triplets; an Inf
// triplet terminates the stream.
func Read(path string) (*tracto.Tractogram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tck file: %w", err)
	}

	offset, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("parse tck header %s: %w", path, err)
	}

	body := data[offset:]
	if len(body)%12 != 0 {
		return nil, fmt.Errorf("tck data section of %s is not a whole number of triplets", path)
	}

	tg := &tracto.Tractogram{}
	var current tracto.Streamline
	for i := 0; i+12 <= len(body); i += 12 {
		x := math.Float32frombits(binary.LittleEndian.Uint32(body[i:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(body[i+4:]))
		z := math.Float32frombits(binary.LittleEndian.Uint32(body[i+8:]))

		switch {
		case isNaN3(x, y, z):
			if len(current) > 0 {
				tg.Streamlines = append(tg.Streamlines, current)
				current = nil
			}
		case isInf3(x, y, z):
			if len(current) > 0 {
				tg.Streamlines = append(tg.Streamlines, current)
			}
			return tg, nil
		default:
			current = append(current, tracto.Point3{X: x, Y: y, Z: z})
		}
	}
	if len(current) > 0 {
		tg.Streamlines = append(tg.Streamlines, current)
	}
	return tg, nil
}

// Write stores a tractogram as a .tck file. Auxiliary data tables have no
// representation in this format and are not written.
func Write(path string, t *tracto.Tractogram) error {
	var body bytes.Buffer
	sep := [3]float32{float32(math.NaN()), float32(math.NaN()), float32(math.NaN())}
	end := [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}

	writeTriplet := func(x, y, z float32) {
		var buf [12]byte
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(x))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(y))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(z))
		body.Write(buf[:])
	}

	for _, s := range t.Streamlines {
		for _, p := range s {
			writeTriplet(p.X, p.Y, p.Z)
		}
		writeTriplet(sep[0], sep[1], sep[2])
	}
	writeTriplet(end[0], end[1], end[2])

	// The file offset in the header depends on the header length, which in
	// turn contains the offset. Fix it by computing with a placeholder and
	// padding the offset field to a stable width.
	header := func(offset int) string {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", magicLine)
		fmt.Fprintf(&b, "count: %d\n", len(t.Streamlines))
		fmt.Fprintf(&b, "datatype: %s\n", datatypeF32)
		fmt.Fprintf(&b, "tractoscore_source: %s\n", writerSource)
		fmt.Fprintf(&b, "file: . %10d\n", offset)
		fmt.Fprintf(&b, "%s\n", headerEnd)
		return b.String()
	}
	offset := len(header(0))

	var out bytes.Buffer
	out.WriteString(header(offset))
	out.Write(body.Bytes())

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write tck file: %w", err)
	}
	return nil
}

// parseHeader validates the magic line and returns the binary data offset
// declared by the "file: . N" field.
func parseHeader(data []byte) (int, error) {
	headerLimit := len(data)
	if headerLimit > 4096 {
		headerLimit = 4096
	}
	lines := strings.Split(string(data[:headerLimit]), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != magicLine {
		return 0, fmt.Errorf("not a tck file (missing %q magic)", magicLine)
	}

	offset := -1
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == headerEnd {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "file":
			fields := strings.Fields(strings.TrimSpace(value))
			if len(fields) != 2 || fields[0] != "." {
				return 0, fmt.Errorf("unsupported file field %q", value)
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return 0, fmt.Errorf("bad data offset %q: %w", fields[1], err)
			}
			offset = v
		case "datatype":
			if dt := strings.TrimSpace(value); dt != datatypeF32 {
				return 0, fmt.Errorf("unsupported datatype %q (want %s)", dt, datatypeF32)
			}
		}
	}
	if offset < 0 {
		return 0, fmt.Errorf("header missing file offset field")
	}
	if offset > len(data) {
		return 0, fmt.Errorf("data offset %d beyond file size %d", offset, len(data))
	}
	return offset, nil
}

func isNaN3(x, y, z float32) bool {
	return math.IsNaN(float64(x)) && math.IsNaN(float64(y)) && math.IsNaN(float64(z))
}

func isInf3(x, y, z float32) bool {
	return math.IsInf(float64(x), 0) && math.IsInf(float64(y), 0) && math.IsInf(float64(z), 0)
}
