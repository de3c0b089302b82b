// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package gc

import "bytes"

// foreignBuffer satisfies Buffer without coming from a bytebufferpool.
type foreignBuffer struct{ bytes.Buffer }

func (f *foreignBuffer) Set(p []byte) {
	f.Reset()
	f.Write(p)
}

func (f *foreignBuffer) SetString(s string) {
	f.Reset()
	f.WriteString(s)
}

type errorReader struct{ err error }

func (e *errorReader) Read([]byte) (int, error) { return 0, e.err }
