package artifact

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
)

// Read loads and validates the artifact at path. A missing file yields
// ErrNotFound; any framing or checksum problem yields ErrCorrupt.
func Read(path string) (Header, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Header{}, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Header{}, nil, fmt.Errorf("reading artifact: %w", err)
	}
	if len(data) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: file is %d bytes, shorter than header", ErrCorrupt, len(data))
	}
	header := decodeHeader(data[:HeaderSize])
	if header.Magic != MagicBytes {
		return Header{}, nil, fmt.Errorf("%w: bad magic bytes %x", ErrCorrupt, header.Magic)
	}
	if header.Version != FormatVersion {
		return Header{}, nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, header.Version)
	}
	payload := data[HeaderSize:]
	if uint64(len(payload)) != header.PayloadLen {
		return Header{}, nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(payload), header.PayloadLen)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != header.Checksum {
		return Header{}, nil, fmt.Errorf("%w: checksum mismatch (%08x != %08x)", ErrCorrupt, sum, header.Checksum)
	}
	return header, payload, nil
}
