// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

const (
	// NamespaceXSD is the XML Schema namespace.
	NamespaceXSD = "http://www.w3.org/2001/XMLSchema"

	// NamespaceXSI is the XML Schema instance namespace.
	NamespaceXSI = "http://www.w3.org/2001/XMLSchema-instance"

	namespaceXML = "http://www.w3.org/XML/1998/namespace"
)

var (
	// ErrSchema indicates a schema document that cannot be compiled.
	ErrSchema = errors.New("xsd: invalid schema")

	// ErrNotSchema indicates a document whose root is not xs:schema.
	ErrNotSchema = errors.New("xsd: root element is not an XML Schema")
)

// QName is an expanded name.
type QName struct {
	Space string
	Local string
}

// String formats q the way validation messages do: {namespace}local.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// typeDef is a *SimpleType or a *complexType.
type typeDef interface {
	label() string
}

type contentKind int

const (
	contentEmpty contentKind = iota
	contentSimple
	contentElementOnly
	contentMixed
)

type complexType struct {
	name    QName
	anyType bool
	content contentKind
	// particle is nil for empty, simple and text-only mixed content.
	particle *particle
	simple   *SimpleType
	attrs    attrSet
}

func (c *complexType) label() string {
	if c.anyType {
		return "xs:anyType"
	}
	return c.name.String()
}

var anyType = &complexType{name: QName{Space: NamespaceXSD, Local: "anyType"}, anyType: true, content: contentMixed}

type particleKind int

const (
	pElement particleKind = iota
	pWildcard
	pSequence
	pChoice
	pAll
)

// unbounded is the maxOccurs of an unbounded particle.
const unbounded = -1

type particle struct {
	kind     particleKind
	min, max int
	elem     *elementDecl
	wild     *wildcard
	children []*particle
}

type elementDecl struct {
	name     QName
	typ      typeDef
	nillable bool
	fixed    *string
	def      *string
}

type attributeDecl struct {
	name  QName
	typ   *SimpleType
	fixed *string
	def   *string
}

type attrUse struct {
	decl       *attributeDecl
	required   bool
	prohibited bool
	fixed      *string
}

// attrSet is the attribute uses and attribute wildcard of a complex type.
type attrSet struct {
	uses []*attrUse
	any  *wildcard
}

func (a *attrSet) lookup(q QName) *attrUse {
	for _, u := range a.uses {
		if u.decl.name == q {
			return u
		}
	}
	return nil
}

// merge adds the uses of o, replacing uses of the same name; prohibited uses remove.
func (a *attrSet) merge(o attrSet) {
	for _, u := range o.uses {
		kept := a.uses[:0]
		for _, existing := range a.uses {
			if existing.decl.name != u.decl.name {
				kept = append(kept, existing)
			}
		}
		a.uses = kept
		if !u.prohibited {
			a.uses = append(a.uses, u)
		}
	}
	if o.any != nil {
		a.any = o.any
	}
}

type wildcard struct {
	any     bool
	other   string
	allowed map[string]bool
	process string
}

func (w *wildcard) allows(ns string) bool {
	switch {
	case w.any:
		return true
	case w.allowed != nil:
		return w.allowed[ns]
	default:
		return ns != "" && ns != w.other
	}
}

func (w *wildcard) String() string {
	if w.allowed == nil && !w.any {
		return "##other{" + w.other + "}*"
	}
	return "*"
}

type schemaDoc struct {
	path          string
	target        string
	chameleon     bool
	elemQualified bool
	attrQualified bool
}

type component struct {
	el  *etree.Element
	doc *schemaDoc
}

// Schema is a compiled XML Schema.
type Schema struct {
	loaded map[string]bool
	lax    map[string]bool

	elementDefs   map[QName]component
	typeDefs      map[QName]component
	attributeDefs map[QName]component
	attrGroupDefs map[QName]component
	groupDefs     map[QName]component

	elements   map[QName]*elementDecl
	types      map[QName]typeDef
	attributes map[QName]*attributeDecl
	attrGroups map[QName]*attrSet
	groups     map[QName]*particle
	pending    map[pendingKey]bool
}

// pendingKey identifies a definition that is being compiled, per symbol space.
type pendingKey struct {
	space string
	name  QName
}

func newSchema() *Schema {
	return &Schema{
		loaded:        make(map[string]bool),
		lax:           map[string]bool{namespaceXML: true},
		elementDefs:   make(map[QName]component),
		typeDefs:      make(map[QName]component),
		attributeDefs: make(map[QName]component),
		attrGroupDefs: make(map[QName]component),
		groupDefs:     make(map[QName]component),
		elements:      make(map[QName]*elementDecl),
		types:         make(map[QName]typeDef),
		attributes:    make(map[QName]*attributeDecl),
		attrGroups:    make(map[QName]*attrSet),
		groups:        make(map[QName]*particle),
		pending:       make(map[pendingKey]bool),
	}
}

// Load reads and compiles the schema at path together with its includes and imports.
func Load(path string) (*Schema, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Compile(doc, path)
}

// Compile compiles an already parsed schema document. Relative schemaLocation values are
// resolved against the directory of path.
//
// Imports that cannot be read make their namespace lax: elements and types from it are
// accepted without validation. Includes that cannot be read are errors.
func Compile(doc *etree.Document, path string) (*Schema, error) {
	s := newSchema()
	if err := s.addDocument(path, doc.Root(), nil); err != nil {
		return nil, err
	}
	if err := s.compileAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) addDocument(path string, root *etree.Element, includer *schemaDoc) error {
	if root == nil || root.Tag != "schema" || root.NamespaceURI() != NamespaceXSD {
		return fmt.Errorf("%w: %s", ErrNotSchema, path)
	}

	d := &schemaDoc{
		path:          path,
		target:        root.SelectAttrValue("targetNamespace", ""),
		elemQualified: root.SelectAttrValue("elementFormDefault", "") == "qualified",
		attrQualified: root.SelectAttrValue("attributeFormDefault", "") == "qualified",
	}
	if includer != nil && d.target == "" && includer.target != "" {
		d.target = includer.target
		d.chameleon = true
	}

	key := filepath.Clean(path) + "\x00" + d.target
	if s.loaded[key] {
		return nil
	}
	s.loaded[key] = true

	for _, c := range root.ChildElements() {
		if c.NamespaceURI() != NamespaceXSD {
			continue
		}

		var err error
		switch c.Tag {
		case "include":
			err = s.include(d, c)
		case "import":
			err = s.importSchema(d, c)
		case "redefine":
			err = schemaErrorf(c, "", "xs:redefine is not supported.")
		case "element":
			err = s.register(s.elementDefs, d, c)
		case "simpleType", "complexType":
			err = s.register(s.typeDefs, d, c)
		case "attribute":
			err = s.register(s.attributeDefs, d, c)
		case "attributeGroup":
			err = s.register(s.attrGroupDefs, d, c)
		case "group":
			err = s.register(s.groupDefs, d, c)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Schema) include(d *schemaDoc, c *etree.Element) error {
	loc := c.SelectAttrValue("schemaLocation", "")
	path, ok := resolveLocation(d.path, loc)
	if !ok {
		return schemaErrorf(c, "schemaLocation", "Failed to load the document '%s' for inclusion.", loc)
	}

	doc, err := ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: failed to include '%s': %w", ErrSchema, d.path, loc, err)
	}
	return s.addDocument(path, doc.Root(), d)
}

func (s *Schema) importSchema(d *schemaDoc, c *etree.Element) error {
	ns := c.SelectAttrValue("namespace", "")
	path, ok := resolveLocation(d.path, c.SelectAttrValue("schemaLocation", ""))
	if !ok {
		s.lax[ns] = true
		return nil
	}

	doc, err := ReadFile(path)
	if err != nil {
		s.lax[ns] = true
		return nil
	}
	return s.addDocument(path, doc.Root(), nil)
}

// resolveLocation resolves a schemaLocation against the including document. Remote
// locations are not fetched.
func resolveLocation(base, loc string) (string, bool) {
	switch {
	case loc == "", strings.Contains(loc, "://") && !strings.HasPrefix(loc, "file://"):
		return "", false
	case strings.HasPrefix(loc, "file://"):
		return strings.TrimPrefix(loc, "file://"), true
	case filepath.IsAbs(loc):
		return loc, true
	default:
		return filepath.Join(filepath.Dir(base), filepath.FromSlash(loc)), true
	}
}

func (s *Schema) register(defs map[QName]component, d *schemaDoc, c *etree.Element) error {
	name := c.SelectAttrValue("name", "")
	if name == "" {
		return schemaErrorf(c, "name", "The attribute 'name' is required but missing.")
	}

	q := QName{Space: d.target, Local: name}
	if _, dup := defs[q]; dup {
		return schemaErrorf(c, "name", "A global %s '%s' does already exist.", c.Tag, q)
	}
	defs[q] = component{el: c, doc: d}
	return nil
}

// compileAll compiles every global component so that schema errors surface before any
// instance is validated.
func (s *Schema) compileAll() error {
	for q := range s.typeDefs {
		if _, err := s.typeByName(q, nil); err != nil {
			return err
		}
	}
	for q := range s.elementDefs {
		if _, err := s.globalElement(q); err != nil {
			return err
		}
	}
	for q := range s.attributeDefs {
		if _, err := s.globalAttribute(q); err != nil {
			return err
		}
	}
	for q := range s.attrGroupDefs {
		if _, err := s.attributeGroup(q, nil); err != nil {
			return err
		}
	}
	for q := range s.groupDefs {
		if _, err := s.group(q, nil); err != nil {
			return err
		}
	}
	return nil
}

func schemaErrorf(el *etree.Element, attr, format string, args ...any) error {
	if el == nil {
		return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
	}
	where := "Element '" + QName{Space: NamespaceXSD, Local: el.Tag}.String() + "'"
	if attr != "" {
		where += ", attribute '" + attr + "'"
	}
	return fmt.Errorf("%w: %s: %s", ErrSchema, where, fmt.Sprintf(format, args...))
}

func unresolved(el *etree.Element, attr string, q QName, kind string) error {
	return schemaErrorf(el, attr, "The QName value '%s' does not resolve to a(n) %s.", q, kind)
}

// lookupNamespace resolves prefix in the scope of el. The empty prefix resolves to the
// default namespace, or to no namespace when none is declared.
func lookupNamespace(el *etree.Element, prefix string) (string, bool) {
	if prefix == "xml" {
		return namespaceXML, true
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value, true
			}
			if a.Space == "xmlns" && a.Key == prefix {
				return a.Value, true
			}
		}
	}
	return "", prefix == ""
}

func splitQName(value string) (prefix, local string) {
	value = strings.TrimSpace(value)
	if p, l, ok := strings.Cut(value, ":"); ok {
		return p, l
	}
	return "", value
}

// qnameAttr resolves the QName-valued attribute attr of el.
func qnameAttr(el *etree.Element, d *schemaDoc, attr string) (QName, error) {
	return resolveQName(el, d, attr, el.SelectAttrValue(attr, ""))
}

func resolveQName(el *etree.Element, d *schemaDoc, attr, value string) (QName, error) {
	prefix, local := splitQName(value)
	ns, ok := lookupNamespace(el, prefix)
	if !ok {
		return QName{}, schemaErrorf(el, attr, "The QName value '%s' has no corresponding namespace declaration in scope.", value)
	}
	if ns == "" && d.chameleon {
		ns = d.target
	}
	return QName{Space: ns, Local: local}, nil
}

// schemaChildren returns the XML Schema children of el without annotations.
func schemaChildren(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.NamespaceURI() == NamespaceXSD && c.Tag != "annotation" {
			out = append(out, c)
		}
	}
	return out
}

func optional(el *etree.Element, attr string) *string {
	if a := el.SelectAttr(attr); a != nil {
		v := a.Value
		return &v
	}
	return nil
}
