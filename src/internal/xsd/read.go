// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/helper/gc"
)

var (
	// ErrRead indicates a file that could not be read.
	ErrRead = errors.New("xsd: failed to read file")

	errNoRoot = errors.New("document is empty")
)

// SyntaxError reports a document that is not well-formed. Line is 1-based, or 0 when
// the parser did not report a position.
type SyntaxError struct {
	File string
	Line int
	Err  error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("Syntax error: %s: %v", e.File, e.Err) }

// Unwrap returns the parser error.
func (e *SyntaxError) Unwrap() error { return e.Err }

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ReadFile parses the XML document at path. Documents in encodings other than UTF-8 are
// transcoded according to their byte order mark or XML declaration.
//
// Returns:
//   - *etree.Document: Parsed document with a root element
//   - error: ErrRead for I/O failures, *SyntaxError for malformed documents
func ReadFile(path string) (*etree.Document, error) {
	data, err := gc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	data, transcoded, err := decodeBOM(data)
	if err != nil {
		return nil, &SyntaxError{File: path, Err: err}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader(transcoded)
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, syntaxError(path, diagnose(data, transcoded, err))
	}
	if doc.Root() == nil {
		return nil, &SyntaxError{File: path, Err: errNoRoot}
	}
	return doc, nil
}

// diagnose recovers position and cause for errors etree reports only as [etree.ErrXML]
// (mismatched or unclosed tags) by replaying the input through a strict decoder.
func diagnose(data []byte, transcoded bool, err error) error {
	if !errors.Is(err, etree.ErrXML) {
		return err
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader(transcoded)
	for {
		_, derr := dec.Token()
		switch {
		case derr == io.EOF:
			return err
		case derr != nil:
			return derr
		}
	}
}

func syntaxError(path string, err error) *SyntaxError {
	se := &SyntaxError{File: path, Err: err}
	var xe *xml.SyntaxError
	if errors.As(err, &xe) {
		se.Line = xe.Line
	}
	return se
}

// decodeBOM strips a UTF-8 byte order mark and transcodes UTF-16 input to UTF-8.
func decodeBOM(data []byte) ([]byte, bool, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], false, nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		return out, true, err
	default:
		return data, false, nil
	}
}

// charsetReader decodes the encoding named in the XML declaration. Input already
// transcoded from UTF-16 is passed through.
func charsetReader(transcoded bool) func(string, io.Reader) (io.Reader, error) {
	return func(label string, input io.Reader) (io.Reader, error) {
		if transcoded && strings.HasPrefix(strings.ToLower(label), "utf-16") {
			return input, nil
		}

		enc, err := lookupEncoding(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
}

func lookupEncoding(label string) (encoding.Encoding, error) {
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(label); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", label)
}
