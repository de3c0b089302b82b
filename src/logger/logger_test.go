// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/logger"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), "line %q", sc.Text())
		out = append(out, entry)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestCLILogger(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Printf",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewCLILogger()
				log.SetOutput(&buf)

				log.Printf("Wrote %s", "ca.key")

				assert.Equal(t, "Wrote ca.key\n", buf.String())
			},
		},
		{
			name: "Println",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewCLILogger()
				log.SetOutput(&buf)

				log.Println("test", "message")

				assert.Contains(t, buf.String(), "test message")
			},
		},
		{
			name: "SetOutput",
			testFunc: func(t *testing.T) {
				var buf1, buf2 bytes.Buffer
				log := logger.NewCLILogger()

				log.SetOutput(&buf1)
				log.Println("first")

				log.SetOutput(&buf2)
				log.Println("second")

				assert.Contains(t, buf1.String(), "first")
				assert.Contains(t, buf2.String(), "second")
				assert.NotContains(t, buf1.String(), "second")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestJSONLogger(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Printf",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewJSONLogger(&buf)

				log.Printf("issued %s serial %d", "root", 5)

				entries := decodeLines(t, buf.Bytes())
				require.Len(t, entries, 1)
				assert.Equal(t, "info", entries[0]["level"])
				assert.Equal(t, "issued root serial 5", entries[0]["message"])
			},
		},
		{
			name: "Println",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewJSONLogger(&buf)

				log.Println("chain", "verified")

				entries := decodeLines(t, buf.Bytes())
				require.Len(t, entries, 1)
				assert.Equal(t, "chain verified", entries[0]["message"])
			},
		},
		{
			name: "Structured Fields",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				var log logger.StructuredLogger = logger.NewJSONLogger(&buf)

				log.Info("artifact written", zap.String("tier", "leaf"), zap.String("file", "leaf.key"))
				log.Error("build failed", zap.Error(errors.New("boom")))

				entries := decodeLines(t, buf.Bytes())
				require.Len(t, entries, 2)
				assert.Equal(t, "leaf", entries[0]["tier"])
				assert.Equal(t, "leaf.key", entries[0]["file"])
				assert.Equal(t, "error", entries[1]["level"])
				assert.Equal(t, "boom", entries[1]["error"])
			},
		},
		{
			name: "Special Characters",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewJSONLogger(&buf)

				log.Printf(`subject=/CN=dcstore.ROOT/dnQualifier=a\/b "quoted"`)

				entries := decodeLines(t, buf.Bytes())
				require.Len(t, entries, 1)
				assert.Equal(t, `subject=/CN=dcstore.ROOT/dnQualifier=a\/b "quoted"`, entries[0]["message"])
			},
		},
		{
			name: "SetOutput",
			testFunc: func(t *testing.T) {
				var buf1, buf2 bytes.Buffer
				log := logger.NewJSONLogger(&buf1)

				log.Println("first")
				log.SetOutput(&buf2)
				log.Println("second")
				log.SetOutput(nil)
				log.Println("dropped")

				assert.Contains(t, buf1.String(), "first")
				assert.NotContains(t, buf1.String(), "second")
				assert.Contains(t, buf2.String(), "second")
				assert.NotContains(t, buf2.String(), "dropped")
			},
		},
		{
			name: "Concurrent",
			testFunc: func(t *testing.T) {
				var buf bytes.Buffer
				log := logger.NewJSONLogger(&buf)

				const numGoroutines = 50
				const messagesPerGoroutine = 10

				var wg sync.WaitGroup
				wg.Add(numGoroutines)
				for i := range numGoroutines {
					go func(id int) {
						defer wg.Done()
						for j := range messagesPerGoroutine {
							log.Printf("goroutine %d message %d", id, j)
						}
					}(i)
				}
				wg.Wait()

				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				assert.Len(t, lines, numGoroutines*messagesPerGoroutine)
				decodeLines(t, buf.Bytes())
			},
		},
		{
			name: "Nil Writer",
			testFunc: func(t *testing.T) {
				log := logger.NewJSONLogger(nil)
				assert.NotPanics(t, func() { log.Println("discarded") })
				assert.NoError(t, log.Sync())
				assert.NotNil(t, log.Zap())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}
