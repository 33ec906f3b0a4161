// Package dump stores growth snapshots on disk so a run can be resumed later,
// possibly under different parameters.
//
// A dump file is a plain-text JSON header line followed by the gzip-compressed
// JSON snapshot. The header carries a sha256 checksum of the compressed body,
// so corruption is detected before anything is decoded.
package dump

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tumour-sim/casim/sim"
)

// FormatVersion is the current dump layout version.
const FormatVersion = 1

// MaxDecompressedSize bounds the decoded snapshot (1GB); a 1000x1000 lattice
// with a deep lineage stays well below it.
const MaxDecompressedSize = 1 << 30

// ErrCorrupt is returned when a dump's header or body cannot be trusted.
var ErrCorrupt = errors.New("corrupt snapshot dump")

// Header is the plain-text first line of a dump file.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	Seed       int64     `json:"seed"`
	Generation int       `json:"generation"`
	MatrixSize int       `json:"matrix_size"`
	Population int       `json:"population"`
	Records    int       `json:"records"`
	Compressed bool      `json:"compressed"`
}

// Encode writes snap to w as a header line and a compressed body.
func Encode(w io.Writer, snap *sim.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:    FormatVersion,
		CreatedAt:  time.Now().UTC(),
		Checksum:   checksum(compressed.Bytes()),
		Seed:       snap.Seed,
		Generation: snap.Generation,
		MatrixSize: snap.MatrixSize,
		Population: population(snap.Cells),
		Records:    len(snap.Records),
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if _, err := w.Write(append(headerBytes, '\n')); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("writing snapshot body: %w", err)
	}
	return nil
}

// Decode reads a dump produced by Encode, verifying its checksum.
func Decode(r io.Reader) (*sim.Snapshot, error) {
	reader := bufio.NewReader(r)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	if got := checksum(body); got != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch: expected %s, got %s", ErrCorrupt, header.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", ErrCorrupt, err)
	}
	if len(decompressed) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: snapshot exceeds %d bytes", ErrCorrupt, MaxDecompressedSize)
	}

	var snap sim.Snapshot
	if err := json.Unmarshal(decompressed, &snap); err != nil {
		return nil, fmt.Errorf("%w: parsing snapshot: %v", ErrCorrupt, err)
	}
	return &snap, nil
}

// Write stores snap at path, creating parent directories.
func Write(path string, snap *sim.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating dump file: %w", err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing dump file: %w", err)
	}
	logrus.Infof("Snapshot at generation %d written to %s", snap.Generation, path)
	return nil
}

// Read loads the snapshot stored at path.
func Read(path string) (*sim.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ReadHeader returns only the header line of the dump at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

func readHeader(reader *bufio.Reader) (*Header, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading header line: %v", ErrCorrupt, err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("%w: parsing header: %v", ErrCorrupt, err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: dump version %d, want %d", ErrCorrupt, header.Version, FormatVersion)
	}
	return &header, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

func population(cells []sim.MutationID) int {
	n := 0
	for _, h := range cells {
		if h != sim.Empty {
			n++
		}
	}
	return n
}
