package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.spm")
	payload := []byte(`{"hello":"world"}`)

	written, err := Write(path, payload)
	require.NoError(t, err)

	header, got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, written, header)
	assert.Equal(t, uint64(len(payload)), header.PayloadLen)
	assert.False(t, header.Created().IsZero())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp file must not survive a successful write")
}

func TestConcurrentWritersEachCommitWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.spm")
	large := bytes.Repeat([]byte("a"), 4<<20)
	small := bytes.Repeat([]byte("b"), 1<<20)

	for range 10 {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, payload := range [][]byte{large, small} {
			wg.Go(func() {
				_, errs[i] = Write(path, payload)
			})
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		_, got, err := Read(path)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(got, large) || bytes.Equal(got, small),
			"artifact must hold one complete payload")
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.spm")
	_, err := Write(path, []byte("first"))
	require.NoError(t, err)
	_, err = Write(path, []byte("second"))
	require.NoError(t, err)

	_, got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestWriteRejectsEmptyPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.spm")
	_, err := Write(path, nil)
	assert.Error(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadMissing(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "absent.spm"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.spm")
	_, err := Write(path, []byte("payload bytes"))
	require.NoError(t, err)
	valid, err := os.ReadFile(path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated header", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-1] }},
		{"flipped payload bit", func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), valid...))
			p := filepath.Join(dir, tt.name+".spm")
			require.NoError(t, os.WriteFile(p, data, 0644))

			_, _, err := Read(p)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
