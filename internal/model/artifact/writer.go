// Package artifact stores opaque payloads in a framed, checksummed file that
// is replaced atomically on every write.
package artifact

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

// MagicBytes identifies a sentiment model file ("SPMD").
const (
	MagicBytes    uint32 = 0x444d5053
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

var (
	// ErrNotFound is returned by Read when no artifact exists at the path.
	ErrNotFound = errors.New("artifact not found")
	// ErrCorrupt is returned when the file exists but fails validation.
	ErrCorrupt = errors.New("artifact corrupt")
)

// Header is the fixed-size prefix of every artifact file.
type Header struct {
	Magic      uint32
	Version    uint32
	PayloadLen uint64
	Checksum   uint32
	CreatedAt  int64
}

// Created returns the write time recorded in the header.
func (h Header) Created() time.Time {
	return time.Unix(0, h.CreatedAt)
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint64(b[8:16], h.PayloadLen)
	binary.LittleEndian.PutUint32(b[16:20], h.Checksum)
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.CreatedAt))
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		PayloadLen: binary.LittleEndian.Uint64(b[8:16]),
		Checksum:   binary.LittleEndian.Uint32(b[16:20]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[24:32])),
	}
}

// Write atomically replaces the file at path with a framed copy of payload.
// Each call writes its own uniquely named temp file, syncs it and renames it
// over path, so readers and concurrent writers see either the previous
// artifact or one complete new one.
func Write(path string, payload []byte) (Header, error) {
	if len(payload) == 0 {
		return Header{}, fmt.Errorf("cannot write empty artifact")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Header{}, fmt.Errorf("creating artifact directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return Header{}, fmt.Errorf("creating temp artifact file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		PayloadLen: uint64(len(payload)),
		Checksum:   crc32.ChecksumIEEE(payload),
		CreatedAt:  time.Now().UnixNano(),
	}
	if err := f.Chmod(0644); err != nil {
		return Header{}, fmt.Errorf("setting artifact permissions: %w", err)
	}
	if _, err := f.Write(header.encode()); err != nil {
		return Header{}, fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return Header{}, fmt.Errorf("writing payload: %w", err)
	}
	if err := f.Sync(); err != nil {
		return Header{}, fmt.Errorf("syncing artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Header{}, fmt.Errorf("closing artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return Header{}, fmt.Errorf("renaming artifact file: %w", err)
	}
	committed = true
	syncDir(dir)
	return header, nil
}

// syncDir flushes the rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
