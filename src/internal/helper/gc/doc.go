// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package gc provides reusable byte buffer pooling to reduce garbage collection overhead.
// It abstracts the [bytebufferpool] library to provide a consistent interface for
// buffer management across the application. The chain builder uses it to assemble the
// chain file and to read artifacts back from disk.
//
// [bytebufferpool]: https://github.com/valyala/bytebufferpool
package gc
