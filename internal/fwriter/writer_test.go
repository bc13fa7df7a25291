package fwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileWriter(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name          string
		filename      string
		mode          CreateMode
		setupExisting bool
		wantErr       bool
	}{
		{
			name:     "create new file truncate mode",
			filename: "test1.mat",
			mode:     ModeTruncate,
		},
		{
			name:     "create new file exclusive mode",
			filename: "test2.mat",
			mode:     ModeExclusive,
		},
		{
			name:          "truncate existing file",
			filename:      "test3.mat",
			mode:          ModeTruncate,
			setupExisting: true,
		},
		{
			name:          "exclusive mode fails on existing",
			filename:      "test4.mat",
			mode:          ModeExclusive,
			setupExisting: true,
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)

			if tt.setupExisting {
				require.NoError(t, os.WriteFile(path, []byte("existing content"), 0666))
			}

			writer, err := NewFileWriter(path, tt.mode, 0)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, writer)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, writer)
			defer writer.Close()

			assert.Equal(t, uint64(0), writer.EndOfFile())

			_, err = os.Stat(path)
			assert.NoError(t, err)
		})
	}
}

func TestFileWriterWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 0)
	require.NoError(t, err)
	defer writer.Close()

	data := []byte("MATLAB 7.3 MAT-file")
	addr, err := writer.Allocate(uint64(len(data)))
	require.NoError(t, err)

	n, err := writer.WriteAt(data, int64(addr))
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	_, err = writer.ReadAt(buf, int64(addr))
	require.NoError(t, err)
	assert.Equal(t, data, buf)
}

func TestFileWriterWriteEmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 0)
	require.NoError(t, err)
	defer writer.Close()

	n, err := writer.WriteAt([]byte{}, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileWriterFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 0)
	require.NoError(t, err)
	defer writer.Close()

	data := []byte("HEAP")
	addr, err := writer.DirectWrite(data)
	require.NoError(t, err)
	require.NoError(t, writer.Flush())

	// The data must be visible to an independent reader after Flush.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, len(data))
	_, err = f.ReadAt(buf, int64(addr))
	require.NoError(t, err)
	assert.Equal(t, data, buf)
}

func TestFileWriterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 0)
	require.NoError(t, err)

	assert.NoError(t, writer.Close())
	assert.NoError(t, writer.Close()) // Idempotent.

	_, err = writer.Allocate(100)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	_, err = writer.WriteAt([]byte("test"), 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	err = writer.Flush()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestFileWriterEndOfFileTracksAllocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 512)
	require.NoError(t, err)
	defer writer.Close()

	assert.Equal(t, uint64(512), writer.EndOfFile())

	_, err = writer.DirectWrite(make([]byte, 56))
	require.NoError(t, err)
	_, err = writer.DirectWrite(make([]byte, 40))
	require.NoError(t, err)

	assert.Equal(t, uint64(608), writer.EndOfFile())
	assert.NoError(t, writer.Allocator().ValidateNoOverlaps())
}

func TestFileWriterBufferFlushAndDirectWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.mat")

	writer, err := NewFileWriter(path, ModeTruncate, 100)
	require.NoError(t, err)
	defer writer.Close()

	t.Run("flushing an empty buffer is a no-op", func(t *testing.T) {
		addr, err := writer.FlushBuffer()
		require.NoError(t, err)
		assert.Equal(t, uint64(100), addr)
	})

	t.Run("buffer writes flush to end of file", func(t *testing.T) {
		_, err := writer.Buffer.Write([]byte("header"))
		require.NoError(t, err)

		addr, err := writer.FlushBuffer()
		require.NoError(t, err)
		assert.Equal(t, uint64(100), addr)
		assert.Equal(t, 0, writer.Buffer.Len())

		buf := make([]byte, 6)
		_, err = writer.ReadAt(buf, int64(addr))
		require.NoError(t, err)
		assert.Equal(t, "header", string(buf))
	})

	t.Run("direct write refuses a non-empty buffer", func(t *testing.T) {
		_, err := writer.Buffer.Write([]byte("x"))
		require.NoError(t, err)
		defer writer.Buffer.Reset()

		_, err = writer.DirectWrite([]byte("name"))
		assert.Error(t, err)
	})

	t.Run("direct write appends at EOF", func(t *testing.T) {
		before := writer.EndOfFile()
		addr, err := writer.DirectWrite([]byte("SNOD"))
		require.NoError(t, err)
		assert.Equal(t, before, addr)
		assert.Equal(t, before+4, writer.EndOfFile())
	})
}
