package tckio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tractometry/tractoscore/internal/tracto"
)

func TestRoundTrip(t *testing.T) {
	want := &tracto.Tractogram{Streamlines: []tracto.Streamline{
		{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
		{{X: -1.5, Y: 0, Z: 10.25}, {X: 7, Y: 8, Z: 9}, {X: 0.125, Y: -2, Z: 3.5}},
		{{X: 0, Y: 0, Z: 0}},
	}}

	path := filepath.Join(t.TempDir(), "sub.tck")
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(want.Streamlines, got.Streamlines); diff != "" {
		t.Errorf("streamlines differ after round trip (-want +got):\n%s", diff)
	}
}

func TestWriteHeaderOffsetIsSelfConsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.tck")
	tg := &tracto.Tractogram{Streamlines: []tracto.Streamline{{{X: 1, Y: 1, Z: 1}}}}
	if err := Write(path, tg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	offset, err := parseHeader(data)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	header := string(data[:offset])
	if !strings.HasSuffix(header, "END\n") {
		t.Errorf("declared offset %d does not land right after the header END, got %q", offset, header)
	}
}

func TestReadEmptyTractogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tck")
	if err := Write(path, &tracto.Tractogram{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("expected no streamlines, got %d", got.Len())
	}
}

// rawTCK assembles a file by hand so header errors can be provoked.
func rawTCK(t *testing.T, header string, triplets ...[3]float32) string {
	t.Helper()
	var body []byte
	for _, tr := range triplets {
		for _, v := range tr {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
	}
	path := filepath.Join(t.TempDir(), "raw.tck")
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadHeaderErrors(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name   string
		header string
	}{
		{"missing magic", "not tracks\nfile: . 30\nEND\n"},
		{"missing offset", "mrtrix tracks\ndatatype: Float32LE\nEND\n"},
		{"wrong datatype", "mrtrix tracks\ndatatype: Float32BE\nfile: . 52\nEND\n"},
		{"offset beyond file", "mrtrix tracks\nfile: . 99999\nEND\n"},
		{"non-dot file field", "mrtrix tracks\nfile: other 30\nEND\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := rawTCK(t, tc.header, [3]float32{nan, nan, nan})
			if _, err := Read(path); err == nil {
				t.Error("expected header error, got nil")
			}
		})
	}
}

func TestReadToleratesMissingTerminator(t *testing.T) {
	nan := float32(math.NaN())
	// Padded offset keeps the header length independent of the value.
	format := "mrtrix tracks\ndatatype: Float32LE\nfile: . %10d\nEND\n"
	header := fmt.Sprintf(format, len(fmt.Sprintf(format, 0)))
	path := rawTCK(t, header,
		[3]float32{1, 2, 3},
		[3]float32{4, 5, 6},
		[3]float32{nan, nan, nan},
		[3]float32{7, 8, 9},
	)

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 streamlines, got %d", got.Len())
	}
	if got.Streamlines[1][0] != (tracto.Point3{X: 7, Y: 8, Z: 9}) {
		t.Errorf("unexpected trailing streamline: %+v", got.Streamlines[1])
	}
}

func TestReadRejectsRaggedBody(t *testing.T) {
	format := "mrtrix tracks\nfile: . %10d\nEND\n"
	header := fmt.Sprintf(format, len(fmt.Sprintf(format, 0)))
	path := filepath.Join(t.TempDir(), "ragged.tck")
	if err := os.WriteFile(path, append([]byte(header), 0x01, 0x02, 0x03), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("expected triplet alignment error, got nil")
	}
}
