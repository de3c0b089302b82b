// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/beevik/etree"
)

// Report lines.
const (
	MsgUsage       = "2 arguments required: 1 XML file, 1 XSD file (Order doesn't matter)"
	MsgIdentical   = "Identical files provided"
	MsgValid       = "XML document is valid"
	MsgNotValid    = "XML document is not valid"
	MsgWrongSchema = "Wrong XSD file?"
)

var (
	// ErrArgCount indicates a call with other than two paths.
	ErrArgCount = errors.New("xsd: " + MsgUsage)

	// ErrIdentical indicates the same path given twice.
	ErrIdentical = errors.New("xsd: " + MsgIdentical)

	// ErrNoSchema indicates that neither file is an XML Schema.
	ErrNoSchema = errors.New("xsd: neither file is an XML Schema")

	// ErrNoDocument indicates that both files are XML Schemas.
	ErrNoDocument = errors.New("xsd: both files are XML Schemas, no document to validate")
)

var wrongSchema = regexp.MustCompile(`Element.*No matching global declaration available`)

// Result is the outcome of checking a document against a schema.
type Result struct {
	Schema   string
	Document string

	// Syntax holds the well-formedness errors of both files. When present, no schema
	// validation took place.
	Syntax []*SyntaxError

	// SchemaErr is set when the schema could not be compiled.
	SchemaErr error

	Errors []*ValidationError
}

// Valid reports whether the document was validated without findings.
func (r *Result) Valid() bool {
	return len(r.Syntax) == 0 && r.SchemaErr == nil && len(r.Errors) == 0
}

// WrongSchema reports whether the findings suggest that the schema does not describe the
// document at all.
func (r *Result) WrongSchema() bool {
	for _, e := range r.Errors {
		if wrongSchema.MatchString(e.Error()) {
			return true
		}
	}
	return false
}

// WriteTo writes the report lines.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	var n int64
	line := func(format string, args ...any) error {
		k, err := fmt.Fprintf(w, format+"\n", args...)
		n += int64(k)
		return err
	}

	if len(r.Syntax) > 0 {
		for _, e := range r.Syntax {
			if err := line("%s", e); err != nil {
				return n, err
			}
		}
		return n, nil
	}

	if r.SchemaErr != nil {
		if err := line("Schema error: %s: %v", r.Schema, r.SchemaErr); err != nil {
			return n, err
		}
	}
	for _, e := range r.Errors {
		if err := line("Validation: %s: %s", r.Document, e); err != nil {
			return n, err
		}
	}

	switch {
	case r.Valid():
		return n, line(MsgValid)
	case r.WrongSchema():
		if err := line(MsgWrongSchema); err != nil {
			return n, err
		}
	}
	return n, line(MsgNotValid)
}

// Check validates the XML document among paths against the XML Schema among them. The
// order of the two paths does not matter: the file whose root element is named schema is
// the schema.
//
// Returns:
//   - *Result: Findings; see [Result.Valid]
//   - error: ErrArgCount, ErrIdentical, ErrNoSchema, ErrNoDocument or ErrRead
func Check(paths ...string) (*Result, error) {
	if len(paths) != 2 {
		return nil, ErrArgCount
	}
	if paths[0] == paths[1] {
		return nil, ErrIdentical
	}

	res := &Result{}
	var schemaDoc, instance *etree.Document

	for _, p := range paths {
		doc, err := ReadFile(p)
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				res.Syntax = append(res.Syntax, se)
				continue
			}
			return nil, err
		}

		if doc.Root().Tag == "schema" {
			if schemaDoc != nil {
				return nil, ErrNoDocument
			}
			schemaDoc, res.Schema = doc, p
		} else {
			if instance != nil {
				return nil, ErrNoSchema
			}
			instance, res.Document = doc, p
		}
	}

	if len(res.Syntax) > 0 {
		return res, nil
	}

	s, err := Compile(schemaDoc, res.Schema)
	if err != nil {
		res.SchemaErr = err
		return res, nil
	}

	res.Errors = s.Validate(instance)
	return res, nil
}
