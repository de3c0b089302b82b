// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ValidationError is one schema violation found in an instance document. Its text
// follows the libxml2 wording.
type ValidationError struct {
	Element   string
	Attribute string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("Element '%s', attribute '%s': %s", e.Element, e.Attribute, e.Message)
	}
	return fmt.Sprintf("Element '%s': %s", e.Element, e.Message)
}

// Validate checks doc against s and returns every violation found. Validation does not
// stop at the first error.
func (s *Schema) Validate(doc *etree.Document) []*ValidationError {
	v := &validator{s: s}

	root := doc.Root()
	if root == nil {
		return nil
	}

	q := qnameOf(root)
	decl, _ := s.globalElement(q)
	switch {
	case decl != nil:
		v.element(root, decl)
	case !s.lax[q.Space]:
		v.errorf(root, "No matching global declaration available for the validation root.")
	}

	return v.errs
}

type validator struct {
	s    *Schema
	errs []*ValidationError
}

func (v *validator) errorf(e *etree.Element, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Element: qnameOf(e).String(), Message: fmt.Sprintf(format, args...)})
}

func (v *validator) attrErrorf(e *etree.Element, attr, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{
		Element:   qnameOf(e).String(),
		Attribute: attr,
		Message:   fmt.Sprintf(format, args...),
	})
}

func qnameOf(e *etree.Element) QName {
	return QName{Space: e.NamespaceURI(), Local: e.Tag}
}

func attrName(a *etree.Attr) string {
	return QName{Space: a.NamespaceURI(), Local: a.Key}.String()
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

func xsiAttr(e *etree.Element, key string) *etree.Attr {
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Key == key && a.Space != "" && a.NamespaceURI() == NamespaceXSI {
			return a
		}
	}
	return nil
}

// textOf concatenates the character data children of e.
func textOf(e *etree.Element) string {
	var b strings.Builder
	for _, tok := range e.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}

func (v *validator) element(e *etree.Element, decl *elementDecl) {
	typ := decl.typ

	if a := xsiAttr(e, "type"); a != nil {
		prefix, local := splitQName(a.Value)
		ns, ok := lookupNamespace(e, prefix)
		var t typeDef
		if ok {
			t, _ = v.s.typeByName(QName{Space: ns, Local: local}, nil)
		}
		if t == nil {
			v.attrErrorf(e, "{"+NamespaceXSI+"}type", "The QName value '%s' of the xsi:type attribute does not resolve to a type definition.", a.Value)
			return
		}
		typ = t
	}

	if a := xsiAttr(e, "nil"); a != nil {
		nilled := strings.TrimSpace(a.Value) == "true" || strings.TrimSpace(a.Value) == "1"
		if !decl.nillable {
			v.errorf(e, "The element is not 'nillable'.")
			return
		}
		if nilled {
			if len(e.ChildElements()) > 0 || strings.TrimSpace(textOf(e)) != "" {
				v.errorf(e, "The element cannot have character or element children since it is 'nilled'.")
			}
			if ct, ok := typ.(*complexType); ok {
				v.attributes(e, ct)
			}
			return
		}
	}

	switch t := typ.(type) {
	case *SimpleType:
		v.onlySchemaAttributes(e)
		if len(e.ChildElements()) > 0 {
			v.errorf(e, "Element content is not allowed, because the content type is a simple type.")
			return
		}
		v.simpleValue(e, t, textOf(e), decl)
	case *complexType:
		v.complex(e, t, decl)
	}
}

func (v *validator) onlySchemaAttributes(e *etree.Element) {
	for i := range e.Attr {
		a := &e.Attr[i]
		if isNamespaceDecl(*a) || a.NamespaceURI() == NamespaceXSI {
			continue
		}
		v.attrErrorf(e, attrName(a), "The attribute '%s' is not allowed.", attrName(a))
	}
}

func (v *validator) simpleValue(e *etree.Element, t *SimpleType, raw string, decl *elementDecl) {
	if raw == "" && decl.def != nil {
		raw = *decl.def
	}

	if msgs := t.check(raw); len(msgs) > 0 {
		for _, m := range msgs {
			v.errorf(e, "%s", m)
		}
		return
	}

	if decl.fixed != nil && !t.equal(raw, *decl.fixed) {
		v.errorf(e, "The value '%s' does not match the fixed value constraint '%s'.", t.normalize(raw), *decl.fixed)
	}
}

func (v *validator) complex(e *etree.Element, ct *complexType, decl *elementDecl) {
	if ct.anyType {
		v.lax(e.ChildElements())
		return
	}

	v.attributes(e, ct)
	children := e.ChildElements()

	switch ct.content {
	case contentSimple:
		if len(children) > 0 {
			v.errorf(e, "Element content is not allowed, because the content type is a simple type.")
			return
		}
		v.simpleValue(e, ct.simple, textOf(e), decl)

	case contentEmpty:
		if len(children) > 0 {
			v.errorf(e, "Element content is not allowed, because the content type is empty.")
		}
		if strings.TrimSpace(textOf(e)) != "" {
			v.errorf(e, "Character content is not allowed, because the content type is empty.")
		}

	case contentElementOnly:
		if strings.TrimSpace(textOf(e)) != "" {
			v.errorf(e, "Character content other than whitespace is not allowed because the content type is 'element-only'.")
		}
		v.content(e, ct.particle, children)

	case contentMixed:
		v.content(e, ct.particle, children)
	}
}

func (v *validator) attributes(e *etree.Element, ct *complexType) {
	seen := make(map[QName]bool)

	for i := range e.Attr {
		a := &e.Attr[i]
		if isNamespaceDecl(*a) {
			continue
		}
		q := QName{Space: a.NamespaceURI(), Local: a.Key}
		if q.Space == NamespaceXSI {
			continue
		}

		if use := ct.attrs.lookup(q); use != nil {
			seen[q] = true
			v.attributeValue(e, a, use.decl, use.fixed)
			continue
		}

		if w := ct.attrs.any; w != nil && w.allows(q.Space) {
			v.wildcardAttribute(e, a, q, w)
			continue
		}

		v.attrErrorf(e, attrName(a), "The attribute '%s' is not allowed.", attrName(a))
	}

	for _, use := range ct.attrs.uses {
		if use.required && !seen[use.decl.name] {
			v.errorf(e, "The attribute '%s' is required but missing.", use.decl.name)
		}
	}
}

func (v *validator) wildcardAttribute(e *etree.Element, a *etree.Attr, q QName, w *wildcard) {
	if w.process == "skip" {
		return
	}
	decl, _ := v.s.globalAttribute(q)
	switch {
	case decl != nil:
		v.attributeValue(e, a, decl, nil)
	case w.process == "strict" && !v.s.lax[q.Space]:
		v.attrErrorf(e, attrName(a), "No matching global attribute declaration available, but demanded by the strict wildcard.")
	}
}

func (v *validator) attributeValue(e *etree.Element, a *etree.Attr, decl *attributeDecl, fixed *string) {
	name := attrName(a)
	if msgs := decl.typ.check(a.Value); len(msgs) > 0 {
		for _, m := range msgs {
			v.attrErrorf(e, name, "%s", m)
		}
		return
	}

	if fixed == nil {
		fixed = decl.fixed
	}
	if fixed != nil && !decl.typ.equal(a.Value, *fixed) {
		v.attrErrorf(e, name, "The value '%s' does not match the fixed value constraint '%s'.", decl.typ.normalize(a.Value), *fixed)
	}
}

// lax validates elements that have a global declaration and skips the rest.
func (v *validator) lax(children []*etree.Element) {
	for _, c := range children {
		if decl, _ := v.s.globalElement(qnameOf(c)); decl != nil {
			v.element(c, decl)
			continue
		}
		v.lax(c.ChildElements())
	}
}

func (v *validator) wildcardElement(e *etree.Element, w *wildcard) {
	if w.process == "skip" {
		return
	}
	q := qnameOf(e)
	decl, _ := v.s.globalElement(q)
	switch {
	case decl != nil:
		v.element(e, decl)
	case w.process == "strict" && !v.s.lax[q.Space]:
		v.errorf(e, "No matching global element declaration available, but demanded by the strict wildcard.")
	default:
		v.lax(e.ChildElements())
	}
}

// content matches children against p and validates each child against the
// declaration it matched. After a mismatch only the children before it are validated,
// and the mismatch is reported after their findings.
func (v *validator) content(e *etree.Element, p *particle, children []*etree.Element) {
	m := newMatcher(children)

	var final *binding
	matched := false
	if p == nil {
		matched = len(children) == 0
	} else {
		for _, st := range m.apply(p, []state{{}}) {
			if st.pos == len(children) {
				final, matched = st.b, true
				break
			}
		}
	}

	if !matched {
		final = m.best.b
	}

	var bound []*binding
	for b := final; b != nil; b = b.prev {
		bound = append(bound, b)
	}
	for i := len(bound) - 1; i >= 0; i-- {
		b := bound[i]
		if b.decl != nil {
			v.element(children[b.idx], b.decl)
		} else {
			v.wildcardElement(children[b.idx], b.wild)
		}
	}

	// Reported after the matched children so findings follow document order.
	if !matched {
		best := m.best
		if best.pos < len(children) {
			v.errorf(children[best.pos], "This element is not expected.%s", expectation(m.expected[best.pos]))
		} else {
			v.errorf(e, "Missing child element(s).%s", expectation(m.expected[best.pos]))
		}
	}
}

func expectation(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return " Expected is ( " + names[0] + " )."
	default:
		return " Expected is one of ( " + strings.Join(names, ", ") + " )."
	}
}

// binding records that child idx matched decl or wild. Bindings form a persistent list
// so that alternative match paths share their prefix.
type binding struct {
	idx  int
	decl *elementDecl
	wild *wildcard
	prev *binding
}

type state struct {
	pos int
	b   *binding
}

type matcher struct {
	children []*etree.Element
	names    []QName
	expected map[int][]string
	best     state
}

func newMatcher(children []*etree.Element) *matcher {
	names := make([]QName, len(children))
	for i, c := range children {
		names[i] = qnameOf(c)
	}
	return &matcher{children: children, names: names, expected: make(map[int][]string)}
}

func (m *matcher) expect(pos int, name string) {
	for _, n := range m.expected[pos] {
		if n == name {
			return
		}
	}
	m.expected[pos] = append(m.expected[pos], name)
}

func (m *matcher) reached(st state) {
	if st.pos > m.best.pos {
		m.best = st
	}
}

// merge appends the states of add whose positions are not yet in out.
func merge(out, add []state) []state {
	for _, st := range add {
		dup := false
		for _, o := range out {
			if o.pos == st.pos {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, st)
		}
	}
	return out
}

func samePositions(a, b []state) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x.pos == y.pos {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// apply returns every state reachable by matching p, with its occurrence range,
// from the states in.
func (m *matcher) apply(p *particle, in []state) []state {
	var out []state
	if p.min == 0 {
		out = merge(out, in)
	}

	cur := in
	for i := 1; p.max == unbounded || i <= p.max; i++ {
		next := m.once(p, cur)
		if len(next) == 0 {
			break
		}
		if i >= p.min {
			out = merge(out, next)
			if samePositions(next, cur) {
				break
			}
		}
		if i > p.min+len(m.children) {
			break
		}
		cur = next
	}
	return out
}

func (m *matcher) once(p *particle, in []state) []state {
	var out []state

	switch p.kind {
	case pElement, pWildcard:
		for _, st := range in {
			if st.pos >= len(m.children) || !m.matches(p, st.pos) {
				m.expect(st.pos, m.label(p))
				continue
			}
			next := state{pos: st.pos + 1, b: &binding{idx: st.pos, decl: p.elem, wild: p.wild, prev: st.b}}
			m.reached(next)
			out = merge(out, []state{next})
		}

	case pSequence:
		out = in
		for _, c := range p.children {
			out = m.apply(c, out)
			if len(out) == 0 {
				break
			}
		}

	case pChoice:
		for _, c := range p.children {
			out = merge(out, m.apply(c, in))
		}

	case pAll:
		for _, st := range in {
			if next, ok := m.all(p, st); ok {
				out = merge(out, []state{next})
			}
		}
	}

	return out
}

// all consumes the children matching members of an all group in any order.
func (m *matcher) all(p *particle, st state) (state, bool) {
	used := make([]bool, len(p.children))

	for st.pos < len(m.children) {
		found := -1
		for i, c := range p.children {
			if !used[i] && c.kind == pElement && m.matches(c, st.pos) {
				found = i
				break
			}
		}
		if found < 0 {
			break
		}
		used[found] = true
		c := p.children[found]
		st = state{pos: st.pos + 1, b: &binding{idx: st.pos, decl: c.elem, prev: st.b}}
		m.reached(st)
	}

	ok := true
	for i, c := range p.children {
		if !used[i] {
			m.expect(st.pos, m.label(c))
			if c.min > 0 {
				ok = false
			}
		}
	}
	return st, ok
}

func (m *matcher) matches(p *particle, pos int) bool {
	if p.kind == pWildcard {
		return p.wild.allows(m.names[pos].Space)
	}
	return p.elem != nil && m.names[pos] == p.elem.name
}

func (m *matcher) label(p *particle) string {
	if p.kind == pWildcard {
		return p.wild.String()
	}
	return p.elem.name.String()
}
