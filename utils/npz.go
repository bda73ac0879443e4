package utils

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteNPZ writes a single named float64 array into an uncompressed-zip
// .npz archive, the format numpy's savez produces. Rank-4 latent
// trajectories rule out the npyio writer (it handles 1-D slices and
// matrices only), so the ~60-byte npy header is emitted by hand here;
// the npyio reader verifies round-trips in tests.
func WriteNPZ(path, name string, shape []int, data []float64) error {
	total := 1
	for _, d := range shape {
		total *= d
	}
	if total != len(data) {
		return fmt.Errorf("npz: shape %v holds %d elements, got %d", shape, total, len(data))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npz: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	// Store uncompressed, as numpy.savez does.
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name + ".npy",
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("npz: %w", err)
	}
	if err := writeNPY(w, shape, data); err != nil {
		return fmt.Errorf("npz: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("npz: %w", err)
	}
	return f.Close()
}

// writeNPY emits one npy v1.0 stream: magic, padded header dict, raw
// little-endian float64 payload.
func writeNPY(w io.Writer, shape []int, data []float64) error {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	tuple := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	tuple += ")"
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", tuple)

	// Pad so that magic+version+len+header is a multiple of 64, newline last.
	preamble := 6 + 2 + 2
	pad := 64 - (preamble+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write([]byte("\x93NUMPY\x01\x00")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}
