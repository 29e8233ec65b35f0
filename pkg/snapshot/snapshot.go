// Package snapshot persists clustering runs as compressed, checksummed files.
//
// File format: [Magic:4][Version:1][PayloadLen:4][Payload:N][Checksum:4]
// where Payload is snappy-compressed JSON and Checksum is the CRC32 (IEEE)
// of the compressed payload. Integers are big-endian.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

const (
	// Version is the current file format version.
	Version byte = 1

	// MaxPayloadSize bounds the compressed payload accepted by Read.
	MaxPayloadSize = 1 << 30
)

var magic = [4]byte{'L', 'V', 'S', 'N'}

var (
	ErrBadMagic         = errors.New("not a louvain snapshot")
	ErrUnsupported      = errors.New("unsupported snapshot version")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrPayloadTooLarge  = errors.New("snapshot payload too large")
)

// Options is the serializable part of algorithms.LouvainOptions.
type Options struct {
	Epsilon             float64 `json:"epsilon"`
	MaxPassesPerLevel   int     `json:"max_passes_per_level"`
	TruncateOnPassBound bool    `json:"truncate_on_pass_bound"`
	Workers             int     `json:"workers"`
	BatchSize           int     `json:"batch_size,omitempty"`
}

// OptionsFrom copies the serializable fields of opts.
func OptionsFrom(opts algorithms.LouvainOptions) Options {
	return Options{
		Epsilon:             opts.Epsilon,
		MaxPassesPerLevel:   opts.MaxPassesPerLevel,
		TruncateOnPassBound: opts.TruncateOnPassBound,
		Workers:             opts.Workers,
		BatchSize:           opts.BatchSize,
	}
}

// Snapshot is one persisted clustering run.
type Snapshot struct {
	RunID       uuid.UUID                 `json:"run_id"`
	Fingerprint string                    `json:"fingerprint"`
	CreatedAt   time.Time                 `json:"created_at"`
	Nodes       int                       `json:"nodes"`
	Edges       int                       `json:"edges"`
	Options     Options                   `json:"options"`
	Result      *algorithms.LouvainResult `json:"result"`
	Names       []string                  `json:"names,omitempty"`
}

// New builds a snapshot of result for g with a fresh run id.
func New(g *algorithms.WeightedGraph, opts algorithms.LouvainOptions, result *algorithms.LouvainResult, names []string) *Snapshot {
	return &Snapshot{
		RunID:       uuid.New(),
		Fingerprint: Fingerprint(g),
		CreatedAt:   time.Now().UTC(),
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		Options:     OptionsFrom(opts),
		Result:      result,
		Names:       names,
	}
}

// Write encodes snap to w.
func Write(w io.Writer, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	compressed := snappy.Encode(nil, data)
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(Version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := bw.Write(compressed); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return err
	}

	return bw.Flush()
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)

	var header [4]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if header != magic {
		return nil, ErrBadMagic
	}

	version, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, version)
	}

	var payloadLen uint32
	if err := binary.Read(br, binary.BigEndian, &payloadLen); err != nil {
		return nil, fmt.Errorf("failed to read payload length: %w", err)
	}
	if payloadLen > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payloadLen)
	}

	compressed := make([]byte, payloadLen)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var checksum uint32
	if err := binary.Read(br, binary.BigEndian, &checksum); err != nil {
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, ErrChecksumMismatch
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Encode returns the encoded bytes of snap.
func Encode(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes snap to path through a synced temporary file and rename.
func WriteFile(path string, snap *Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, snap); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
