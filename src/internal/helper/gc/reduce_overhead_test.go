// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package gc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBufferInterface verifies that bytebufferpool.ByteBuffer satisfies Buffer interface
func TestBufferInterface(t *testing.T) {
	tests := []struct {
		name  string
		setup func(buf Buffer)
		check func(t *testing.T, buf Buffer)
	}{
		{
			name: "Write byte slice",
			setup: func(buf Buffer) {
				buf.Write([]byte("hello"))
			},
			check: func(t *testing.T, buf Buffer) {
				assert.Equal(t, "hello", buf.String())
				assert.Equal(t, 5, buf.Len())
			},
		},
		{
			name: "Multiple operations",
			setup: func(buf Buffer) {
				buf.Write([]byte("hello"))
				buf.WriteString(" test")
				buf.WriteByte('!')
			},
			check: func(t *testing.T, buf Buffer) {
				expected := "hello test!"
				assert.Equal(t, expected, buf.String())
				assert.Equal(t, []byte(expected), buf.Bytes())
				assert.Equal(t, len(expected), buf.Len())
			},
		},
		{
			name: "Set replaces content",
			setup: func(buf Buffer) {
				buf.WriteString("initial")
				buf.Set([]byte("replaced"))
			},
			check: func(t *testing.T, buf Buffer) {
				assert.Equal(t, "replaced", buf.String())
			},
		},
		{
			name: "SetString replaces content",
			setup: func(buf Buffer) {
				buf.WriteString("initial")
				buf.SetString("string")
			},
			check: func(t *testing.T, buf Buffer) {
				assert.Equal(t, "string", buf.String())
			},
		},
		{
			name: "Reset clears buffer",
			setup: func(buf Buffer) {
				buf.WriteString("data")
				buf.Reset()
			},
			check: func(t *testing.T, buf Buffer) {
				assert.Zero(t, buf.Len())
				assert.Empty(t, buf.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Default.Get()
			defer func() {
				buf.Reset()
				Default.Put(buf)
			}()

			tt.setup(buf)
			tt.check(t, buf)
		})
	}
}

func TestBufferReadFromAndWriteTo(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Small data", "hello"},
		{"Empty reader", ""},
		{"Large data (10KB)", strings.Repeat("x", 10*1024)},
		{"Multiline PEM", "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Default.Get()
			defer func() {
				buf.Reset()
				Default.Put(buf)
			}()

			n, err := buf.ReadFrom(strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.data)), n)

			var out bytes.Buffer
			_, err = buf.WriteTo(&out)
			require.NoError(t, err)
			assert.Equal(t, tt.data, out.String())
		})
	}
}

func TestBufferReadFromError(t *testing.T) {
	buf := Default.Get()
	defer Default.Put(buf)

	want := errors.New("read failed")
	_, err := buf.ReadFrom(&errorReader{err: want})
	assert.ErrorIs(t, err, want)
}

func TestPoolPutNonByteBuffer(t *testing.T) {
	foreign := &foreignBuffer{}
	foreign.SetString("kept")

	assert.NotPanics(t, func() { Default.Put(foreign) })
	assert.Equal(t, "kept", foreign.String())
}

func TestPoolConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 100 {
				buf := Default.Get()
				buf.WriteByte(byte('a' + i))
				assert.Equal(t, 1, buf.Len())
				buf.Reset()
				Default.Put(buf)
			}
		}(i)
	}
	wg.Wait()
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "certificate_chain")
	content := []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")
	require.NoError(t, os.WriteFile(name, content, 0o644))

	got, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// The returned slice must not alias pooled memory.
	buf := Default.Get()
	buf.SetString(strings.Repeat("z", len(content)))
	assert.Equal(t, content, got)
	buf.Reset()
	Default.Put(buf)

	_, err = ReadFile(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
