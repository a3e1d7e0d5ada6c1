// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NPY format v1.0 (the NumPy .npy layout): magic, version, little-endian
// header length, then a Python dict literal padded so the data starts on a
// 64-byte boundary. The writer must match np.load byte-for-byte.
var npyMagic = []byte("\x93NUMPY")

const (
	npyVersionMajor   = 1
	npyVersionMinor   = 0
	npyHeaderAlign    = 64
	npyPreambleLength = 10 // magic (6) + version (2) + header length (2)
)

// Dtype descriptors used by this package.
const (
	DtypeUint8   = "|u1"
	DtypeFloat32 = "<f4"
)

// Array is an n-dimensional tensor in NPY terms: a dtype descriptor, a
// shape, and the raw little-endian element bytes.
type Array struct {
	Descr string
	Shape []int
	Data  []byte
}

// elementSize returns the byte width of the array's dtype.
func (a Array) elementSize() (int, error) {
	switch a.Descr {
	case DtypeUint8:
		return 1, nil
	case DtypeFloat32:
		return 4, nil
	default:
		return 0, errors.Errorf("unsupported dtype descriptor %q", a.Descr)
	}
}

// elementCount returns the number of elements the shape implies.
func (a Array) elementCount() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Float32Bytes packs float32 values as little-endian bytes.
func Float32Bytes(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Float32Values unpacks little-endian bytes into float32 values.
func Float32Values(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func shapeLiteral(shape []int) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	if len(dims) == 1 {
		return "(" + dims[0] + ",)"
	}
	return "(" + strings.Join(dims, ", ") + ")"
}

// WriteNPY writes a single array in NPY v1.0 format.
func WriteNPY(w io.Writer, a Array) error {
	size, err := a.elementSize()
	if err != nil {
		return err
	}
	if want := a.elementCount() * size; want != len(a.Data) {
		return errors.Errorf("shape %v with dtype %s implies %d bytes, have %d", a.Shape, a.Descr, want, len(a.Data))
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", a.Descr, shapeLiteral(a.Shape))
	// Pad with spaces so preamble+header (newline included) is a multiple
	// of the alignment, then terminate with a newline.
	padded := npyPreambleLength + len(header) + 1
	if rem := padded % npyHeaderAlign; rem != 0 {
		header += strings.Repeat(" ", npyHeaderAlign-rem)
	}
	header += "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return errors.Wrap(err, "failed writing NPY magic")
	}
	if _, err := w.Write([]byte{npyVersionMajor, npyVersionMinor}); err != nil {
		return errors.Wrap(err, "failed writing NPY version")
	}
	var headerLen [2]byte
	binary.LittleEndian.PutUint16(headerLen[:], uint16(len(header)))
	if _, err := w.Write(headerLen[:]); err != nil {
		return errors.Wrap(err, "failed writing NPY header length")
	}
	if _, err := io.WriteString(w, header); err != nil {
		return errors.Wrap(err, "failed writing NPY header")
	}
	if _, err := w.Write(a.Data); err != nil {
		return errors.Wrap(err, "failed writing NPY data")
	}
	return nil
}

// ReadNPY reads a single NPY v1.0 array. Only the dtypes this package
// writes are supported; used to verify archives and in tests.
func ReadNPY(r io.Reader) (Array, error) {
	preamble := make([]byte, npyPreambleLength)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return Array{}, errors.Wrap(err, "failed reading NPY preamble")
	}
	if string(preamble[:6]) != string(npyMagic) {
		return Array{}, errors.New("not an NPY file: bad magic")
	}
	if preamble[6] != npyVersionMajor || preamble[7] != npyVersionMinor {
		return Array{}, errors.Errorf("unsupported NPY version %d.%d", preamble[6], preamble[7])
	}
	headerLen := int(binary.LittleEndian.Uint16(preamble[8:10]))
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return Array{}, errors.Wrap(err, "failed reading NPY header")
	}

	a, err := parseNPYHeader(string(headerBytes))
	if err != nil {
		return Array{}, err
	}
	size, err := a.elementSize()
	if err != nil {
		return Array{}, err
	}
	a.Data = make([]byte, a.elementCount()*size)
	if _, err := io.ReadFull(r, a.Data); err != nil {
		return Array{}, errors.Wrap(err, "failed reading NPY data")
	}
	return a, nil
}

func parseNPYHeader(header string) (Array, error) {
	descr, err := headerField(header, "'descr':")
	if err != nil {
		return Array{}, err
	}
	if strings.Contains(header, "'fortran_order': True") {
		return Array{}, errors.New("fortran-ordered NPY arrays are not supported")
	}

	start := strings.Index(header, "(")
	end := strings.Index(header, ")")
	if start == -1 || end == -1 || end < start {
		return Array{}, errors.New("malformed NPY header: no shape tuple")
	}
	var shape []int
	for _, part := range strings.Split(header[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return Array{}, errors.Wrapf(err, "malformed shape dimension %q", part)
		}
		shape = append(shape, d)
	}
	return Array{Descr: descr, Shape: shape}, nil
}

func headerField(header, key string) (string, error) {
	idx := strings.Index(header, key)
	if idx == -1 {
		return "", errors.Errorf("malformed NPY header: missing %s", key)
	}
	rest := header[idx+len(key):]
	open := strings.IndexAny(rest, "'\"")
	if open == -1 {
		return "", errors.Errorf("malformed NPY header: unquoted %s", key)
	}
	quote := rest[open]
	end := strings.IndexByte(rest[open+1:], quote)
	if end == -1 {
		return "", errors.Errorf("malformed NPY header: unterminated %s", key)
	}
	return rest[open+1 : open+1+end], nil
}

// WriteNPZ writes named arrays as a compressed NPZ (a zip of .npy members,
// what np.savez_compressed produces). Entries are written in the given
// order so archives are reproducible.
func WriteNPZ(w io.Writer, names []string, arrays map[string]Array) error {
	zw := zip.NewWriter(w)
	for _, name := range names {
		a, ok := arrays[name]
		if !ok {
			return errors.Errorf("no array named %q", name)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name + ".npy",
			Method: zip.Deflate,
		})
		if err != nil {
			return errors.Wrapf(err, "failed creating NPZ member %q", name)
		}
		if err := WriteNPY(fw, a); err != nil {
			return errors.Wrapf(err, "failed writing NPZ member %q", name)
		}
	}
	return errors.Wrap(zw.Close(), "failed finalizing NPZ archive")
}

// ReadNPZ reads all members of an NPZ archive.
func ReadNPZ(r io.ReaderAt, size int64) (map[string]Array, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening NPZ archive")
	}
	out := make(map[string]Array, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed opening NPZ member %q", f.Name)
		}
		a, err := ReadNPY(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading NPZ member %q", f.Name)
		}
		out[strings.TrimSuffix(f.Name, ".npy")] = a
	}
	return out, nil
}
