// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

func (s *Schema) typeByName(q QName, ref *etree.Element) (typeDef, error) {
	if q.Space == NamespaceXSD {
		if q.Local == "anyType" {
			return anyType, nil
		}
		if st := builtinType(q.Local); st != nil {
			return st, nil
		}
		return nil, unresolved(ref, "type", q, "type definition")
	}

	if t, ok := s.types[q]; ok {
		return t, nil
	}

	comp, ok := s.typeDefs[q]
	if !ok {
		if s.lax[q.Space] {
			return anyType, nil
		}
		if ref == nil {
			return nil, fmt.Errorf("%w: type '%s' not found", ErrSchema, q)
		}
		return nil, unresolved(ref, "type", q, "type definition")
	}

	key := pendingKey{"type", q}
	s.pending[key] = true
	defer delete(s.pending, key)

	if comp.el.Tag == "simpleType" {
		st := &SimpleType{name: q, facets: newFacets()}
		s.types[q] = st
		return st, s.fillSimple(st, comp.el, comp.doc)
	}

	ct := &complexType{name: q}
	s.types[q] = ct
	return ct, s.fillComplex(ct, comp.el, comp.doc)
}

// baseType resolves a derivation base, rejecting circular derivations.
func (s *Schema) baseType(el *etree.Element, d *schemaDoc) (typeDef, error) {
	q, err := qnameAttr(el, d, "base")
	if err != nil {
		return nil, err
	}
	// A base still being compiled has no content model yet.
	if s.pending[pendingKey{"type", q}] {
		return nil, schemaErrorf(el, "base", "The base type '%s' is circularly defined.", q)
	}
	return s.typeByName(q, el)
}

func (s *Schema) simpleByRef(el *etree.Element, d *schemaDoc, attr, value string) (*SimpleType, error) {
	q, err := resolveQName(el, d, attr, value)
	if err != nil {
		return nil, err
	}
	t, err := s.typeByName(q, el)
	if err != nil {
		return nil, err
	}
	st, ok := t.(*SimpleType)
	if !ok {
		if t == anyType {
			return builtinType("anySimpleType"), nil
		}
		return nil, schemaErrorf(el, attr, "The type definition '%s' is not a simple type.", q)
	}
	return st, nil
}

func (s *Schema) fillSimple(st *SimpleType, el *etree.Element, d *schemaDoc) error {
	for _, c := range schemaChildren(el) {
		switch c.Tag {
		case "restriction":
			return s.simpleRestriction(st, c, d, nil)
		case "list":
			st.variety = list
			st.base = builtinType("anySimpleType")
			st.ws = wsCollapse
			if v := c.SelectAttrValue("itemType", ""); v != "" {
				item, err := s.simpleByRef(c, d, "itemType", v)
				if err != nil {
					return err
				}
				st.item = item
				return nil
			}
			for _, inner := range schemaChildren(c) {
				if inner.Tag == "simpleType" {
					item := &SimpleType{facets: newFacets()}
					if err := s.fillSimple(item, inner, d); err != nil {
						return err
					}
					st.item = item
				}
			}
			return nil
		case "union":
			st.variety = union
			st.base = builtinType("anySimpleType")
			st.ws = wsCollapse
			for _, v := range strings.Fields(c.SelectAttrValue("memberTypes", "")) {
				m, err := s.simpleByRef(c, d, "memberTypes", v)
				if err != nil {
					return err
				}
				st.members = append(st.members, m)
			}
			for _, inner := range schemaChildren(c) {
				if inner.Tag == "simpleType" {
					m := &SimpleType{facets: newFacets()}
					if err := s.fillSimple(m, inner, d); err != nil {
						return err
					}
					st.members = append(st.members, m)
				}
			}
			return nil
		}
	}
	return schemaErrorf(el, "", "The content is not valid. Expected is (annotation?, (restriction | list | union)).")
}

// simpleRestriction derives st from the base named by el, or from base when given.
func (s *Schema) simpleRestriction(st *SimpleType, el *etree.Element, d *schemaDoc, base *SimpleType) error {
	if base == nil && el.SelectAttr("base") != nil {
		bt, err := s.baseType(el, d)
		if err != nil {
			return err
		}
		b, ok := bt.(*SimpleType)
		if !ok {
			return schemaErrorf(el, "base", "The base type '%s' is not a simple type.", bt.label())
		}
		base = b
	}

	for _, c := range schemaChildren(el) {
		if c.Tag == "simpleType" && base == nil {
			inner := &SimpleType{facets: newFacets()}
			if err := s.fillSimple(inner, c, d); err != nil {
				return err
			}
			base = inner
		}
	}
	if base == nil {
		return schemaErrorf(el, "", "The attribute 'base' or a simpleType child is required.")
	}

	st.base = base
	st.prim = base.prim
	st.variety = base.variety
	st.item = base.item
	st.ws = base.ws
	return parseFacets(st, el)
}

func parseFacets(st *SimpleType, el *etree.Element) error {
	f := &st.facets
	for _, c := range schemaChildren(el) {
		value := c.SelectAttrValue("value", "")
		var err error
		switch c.Tag {
		case "enumeration":
			f.enums = append(f.enums, value)
		case "pattern":
			re, cerr := compilePattern(value)
			if cerr != nil {
				return schemaErrorf(c, "value", "The value '%s' of the facet 'pattern' is not a valid regular expression.", value)
			}
			f.patterns = append(f.patterns, pattern{src: value, re: re})
		case "length":
			f.length, err = strconv.Atoi(value)
		case "minLength":
			f.minLength, err = strconv.Atoi(value)
		case "maxLength":
			f.maxLength, err = strconv.Atoi(value)
		case "totalDigits":
			f.totalDigits, err = strconv.Atoi(value)
		case "fractionDigits":
			f.fractionDigits, err = strconv.Atoi(value)
		case "minInclusive":
			f.minInclusive = &value
		case "maxInclusive":
			f.maxInclusive = &value
		case "minExclusive":
			f.minExclusive = &value
		case "maxExclusive":
			f.maxExclusive = &value
		case "whiteSpace":
			switch value {
			case "preserve":
				st.ws = wsPreserve
			case "replace":
				st.ws = wsReplace
			case "collapse":
				st.ws = wsCollapse
			default:
				return schemaErrorf(c, "value", "The value '%s' is not a valid whiteSpace value.", value)
			}
		}
		if err != nil {
			return schemaErrorf(c, "value", "The value '%s' is not a valid non-negative integer.", value)
		}
	}
	return nil
}

func (s *Schema) fillComplex(ct *complexType, el *etree.Element, d *schemaDoc) error {
	mixed := el.SelectAttrValue("mixed", "") == "true"

	var own *particle
	var attrs []*etree.Element
	for _, c := range schemaChildren(el) {
		switch c.Tag {
		case "simpleContent":
			return s.simpleContent(ct, c, d)
		case "complexContent":
			if v := c.SelectAttrValue("mixed", ""); v != "" {
				mixed = v == "true"
			}
			return s.complexContent(ct, c, d, mixed)
		case "sequence", "choice", "all", "group":
			p, err := s.particle(c, d)
			if err != nil {
				return err
			}
			own = p
		case "attribute", "attributeGroup", "anyAttribute":
			attrs = append(attrs, c)
		}
	}

	set, err := s.attributeSet(attrs, d)
	if err != nil {
		return err
	}
	ct.attrs = set
	ct.particle = own
	ct.content = contentKindOf(own, mixed)
	return nil
}

func contentKindOf(p *particle, mixed bool) contentKind {
	switch {
	case mixed:
		return contentMixed
	case p == nil:
		return contentEmpty
	default:
		return contentElementOnly
	}
}

func (s *Schema) simpleContent(ct *complexType, el *etree.Element, d *schemaDoc) error {
	ct.content = contentSimple

	for _, deriv := range schemaChildren(el) {
		if deriv.Tag != "extension" && deriv.Tag != "restriction" {
			continue
		}

		bt, err := s.baseType(deriv, d)
		if err != nil {
			return err
		}

		var base *SimpleType
		switch b := bt.(type) {
		case *SimpleType:
			base = b
		case *complexType:
			if b.anyType {
				base = builtinType("anySimpleType")
				break
			}
			if b.content != contentSimple {
				return schemaErrorf(deriv, "base", "The base type '%s' does not have simple content.", b.name)
			}
			base = b.simple
			ct.attrs.merge(b.attrs)
		}

		var attrs []*etree.Element
		for _, c := range schemaChildren(deriv) {
			switch c.Tag {
			case "attribute", "attributeGroup", "anyAttribute":
				attrs = append(attrs, c)
			}
		}
		own, err := s.attributeSet(attrs, d)
		if err != nil {
			return err
		}
		ct.attrs.merge(own)

		if deriv.Tag == "extension" {
			ct.simple = base
			return nil
		}

		st := &SimpleType{facets: newFacets()}
		if err := s.simpleRestriction(st, deriv, d, base); err != nil {
			return err
		}
		ct.simple = st
		return nil
	}

	return schemaErrorf(el, "", "The content is not valid. Expected is (annotation?, (restriction | extension)).")
}

func (s *Schema) complexContent(ct *complexType, el *etree.Element, d *schemaDoc, mixed bool) error {
	for _, deriv := range schemaChildren(el) {
		if deriv.Tag != "extension" && deriv.Tag != "restriction" {
			continue
		}

		bt, err := s.baseType(deriv, d)
		if err != nil {
			return err
		}
		base, ok := bt.(*complexType)
		if !ok {
			return schemaErrorf(deriv, "base", "The base type '%s' is not a complex type.", bt.label())
		}

		var own *particle
		var attrs []*etree.Element
		for _, c := range schemaChildren(deriv) {
			switch c.Tag {
			case "sequence", "choice", "all", "group":
				p, err := s.particle(c, d)
				if err != nil {
					return err
				}
				own = p
			case "attribute", "attributeGroup", "anyAttribute":
				attrs = append(attrs, c)
			}
		}

		set, err := s.attributeSet(attrs, d)
		if err != nil {
			return err
		}
		if !base.anyType {
			ct.attrs.merge(base.attrs)
		}
		ct.attrs.merge(set)

		if deriv.Tag == "restriction" || base.anyType {
			ct.particle = own
			ct.content = contentKindOf(own, mixed)
			return nil
		}

		switch {
		case base.particle == nil:
			ct.particle = own
		case own == nil:
			ct.particle = base.particle
		default:
			ct.particle = &particle{kind: pSequence, min: 1, max: 1, children: []*particle{base.particle, own}}
		}
		ct.content = contentKindOf(ct.particle, mixed || base.content == contentMixed)
		return nil
	}

	return schemaErrorf(el, "", "The content is not valid. Expected is (annotation?, (restriction | extension)).")
}

func occurs(el *etree.Element) (int, int, error) {
	min, max := 1, 1
	if v := el.SelectAttrValue("minOccurs", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, schemaErrorf(el, "minOccurs", "The value '%s' is not a valid non-negative integer.", v)
		}
		min = n
	}
	if v := el.SelectAttrValue("maxOccurs", ""); v != "" {
		if v == "unbounded" {
			return min, unbounded, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, schemaErrorf(el, "maxOccurs", "The value '%s' is not a valid non-negative integer or 'unbounded'.", v)
		}
		max = n
	}
	if max < min {
		return 0, 0, schemaErrorf(el, "maxOccurs", "The value must be greater than or equal to the value of 'minOccurs'.")
	}
	return min, max, nil
}

func (s *Schema) particle(el *etree.Element, d *schemaDoc) (*particle, error) {
	min, max, err := occurs(el)
	if err != nil {
		return nil, err
	}
	p := &particle{min: min, max: max}

	switch el.Tag {
	case "element":
		p.kind = pElement
		if el.SelectAttr("ref") != nil {
			q, err := qnameAttr(el, d, "ref")
			if err != nil {
				return nil, err
			}
			decl, err := s.globalElement(q)
			if err != nil {
				return nil, err
			}
			if decl == nil {
				if !s.lax[q.Space] {
					return nil, unresolved(el, "ref", q, "element declaration")
				}
				decl = &elementDecl{name: q, typ: anyType}
			}
			p.elem = decl
			return p, nil
		}
		decl, err := s.localElement(el, d)
		if err != nil {
			return nil, err
		}
		p.elem = decl

	case "any":
		p.kind = pWildcard
		p.wild = newWildcard(el, d)

	case "sequence", "choice", "all":
		p.kind = map[string]particleKind{"sequence": pSequence, "choice": pChoice, "all": pAll}[el.Tag]
		for _, c := range schemaChildren(el) {
			switch c.Tag {
			case "element", "any", "sequence", "choice", "group":
				child, err := s.particle(c, d)
				if err != nil {
					return nil, err
				}
				p.children = append(p.children, child)
			}
		}

	case "group":
		q, err := qnameAttr(el, d, "ref")
		if err != nil {
			return nil, err
		}
		g, err := s.group(q, el)
		if err != nil {
			return nil, err
		}
		ref := *g
		ref.min, ref.max = min, max
		return &ref, nil

	default:
		return nil, schemaErrorf(el, "", "Unexpected particle.")
	}

	return p, nil
}

func (s *Schema) group(q QName, ref *etree.Element) (*particle, error) {
	if g, ok := s.groups[q]; ok {
		return g, nil
	}
	comp, ok := s.groupDefs[q]
	if !ok {
		if ref == nil {
			return nil, fmt.Errorf("%w: group '%s' not found", ErrSchema, q)
		}
		return nil, unresolved(ref, "ref", q, "model group definition")
	}
	key := pendingKey{"group", q}
	if s.pending[key] {
		return nil, schemaErrorf(comp.el, "", "The model group '%s' references itself.", q)
	}
	s.pending[key] = true
	defer delete(s.pending, key)

	for _, c := range schemaChildren(comp.el) {
		switch c.Tag {
		case "sequence", "choice", "all":
			p, err := s.particle(c, comp.doc)
			if err != nil {
				return nil, err
			}
			s.groups[q] = p
			return p, nil
		}
	}
	return nil, schemaErrorf(comp.el, "", "The content is not valid. Expected is (annotation?, (all | choice | sequence)).")
}

func newWildcard(el *etree.Element, d *schemaDoc) *wildcard {
	w := &wildcard{process: el.SelectAttrValue("processContents", "strict")}

	switch ns := el.SelectAttrValue("namespace", "##any"); ns {
	case "##any":
		w.any = true
	case "##other":
		w.other = d.target
	default:
		w.allowed = make(map[string]bool)
		for _, tok := range strings.Fields(ns) {
			switch tok {
			case "##targetNamespace":
				w.allowed[d.target] = true
			case "##local":
				w.allowed[""] = true
			default:
				w.allowed[tok] = true
			}
		}
	}
	return w
}

// elementType returns the type of a declaration: the named type, the inline type, or
// anyType when neither is given.
func (s *Schema) elementType(el *etree.Element, d *schemaDoc) (typeDef, error) {
	if el.SelectAttr("type") != nil {
		q, err := qnameAttr(el, d, "type")
		if err != nil {
			return nil, err
		}
		return s.typeByName(q, el)
	}

	for _, c := range schemaChildren(el) {
		switch c.Tag {
		case "simpleType":
			st := &SimpleType{facets: newFacets()}
			return st, s.fillSimple(st, c, d)
		case "complexType":
			ct := &complexType{}
			return ct, s.fillComplex(ct, c, d)
		}
	}
	return anyType, nil
}

func (s *Schema) globalElement(q QName) (*elementDecl, error) {
	if decl, ok := s.elements[q]; ok {
		return decl, nil
	}
	comp, ok := s.elementDefs[q]
	if !ok {
		return nil, nil
	}

	decl := &elementDecl{
		name:     q,
		nillable: comp.el.SelectAttrValue("nillable", "") == "true",
		fixed:    optional(comp.el, "fixed"),
		def:      optional(comp.el, "default"),
	}
	s.elements[q] = decl

	typ, err := s.elementType(comp.el, comp.doc)
	if err != nil {
		return nil, err
	}
	decl.typ = typ
	return decl, nil
}

func (s *Schema) localElement(el *etree.Element, d *schemaDoc) (*elementDecl, error) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return nil, schemaErrorf(el, "name", "The attribute 'name' is required but missing.")
	}

	qualified := d.elemQualified
	if form := el.SelectAttrValue("form", ""); form != "" {
		qualified = form == "qualified"
	}
	q := QName{Local: name}
	if qualified {
		q.Space = d.target
	}

	typ, err := s.elementType(el, d)
	if err != nil {
		return nil, err
	}
	return &elementDecl{
		name:     q,
		typ:      typ,
		nillable: el.SelectAttrValue("nillable", "") == "true",
		fixed:    optional(el, "fixed"),
		def:      optional(el, "default"),
	}, nil
}

func (s *Schema) attributeType(el *etree.Element, d *schemaDoc) (*SimpleType, error) {
	if v := el.SelectAttrValue("type", ""); v != "" {
		return s.simpleByRef(el, d, "type", v)
	}
	for _, c := range schemaChildren(el) {
		if c.Tag == "simpleType" {
			st := &SimpleType{facets: newFacets()}
			return st, s.fillSimple(st, c, d)
		}
	}
	return builtinType("anySimpleType"), nil
}

func (s *Schema) globalAttribute(q QName) (*attributeDecl, error) {
	if decl, ok := s.attributes[q]; ok {
		return decl, nil
	}
	comp, ok := s.attributeDefs[q]
	if !ok {
		return nil, nil
	}

	typ, err := s.attributeType(comp.el, comp.doc)
	if err != nil {
		return nil, err
	}
	decl := &attributeDecl{name: q, typ: typ, fixed: optional(comp.el, "fixed"), def: optional(comp.el, "default")}
	s.attributes[q] = decl
	return decl, nil
}

func (s *Schema) attributeGroup(q QName, ref *etree.Element) (*attrSet, error) {
	if g, ok := s.attrGroups[q]; ok {
		return g, nil
	}
	comp, ok := s.attrGroupDefs[q]
	if !ok {
		if ref == nil {
			return nil, fmt.Errorf("%w: attribute group '%s' not found", ErrSchema, q)
		}
		return nil, unresolved(ref, "ref", q, "attribute group definition")
	}
	key := pendingKey{"attributeGroup", q}
	if s.pending[key] {
		return nil, schemaErrorf(comp.el, "", "The attribute group '%s' references itself.", q)
	}
	s.pending[key] = true
	defer delete(s.pending, key)

	set, err := s.attributeSet(schemaChildren(comp.el), comp.doc)
	if err != nil {
		return nil, err
	}
	s.attrGroups[q] = &set
	return &set, nil
}

func (s *Schema) attributeSet(els []*etree.Element, d *schemaDoc) (attrSet, error) {
	var set attrSet
	for _, el := range els {
		switch el.Tag {
		case "attribute":
			use, err := s.attributeUse(el, d)
			if err != nil {
				return attrSet{}, err
			}
			set.merge(attrSet{uses: []*attrUse{use}})
		case "attributeGroup":
			q, err := qnameAttr(el, d, "ref")
			if err != nil {
				return attrSet{}, err
			}
			g, err := s.attributeGroup(q, el)
			if err != nil {
				return attrSet{}, err
			}
			set.merge(*g)
		case "anyAttribute":
			set.any = newWildcard(el, d)
		}
	}
	return set, nil
}

func (s *Schema) attributeUse(el *etree.Element, d *schemaDoc) (*attrUse, error) {
	use := &attrUse{fixed: optional(el, "fixed")}
	switch el.SelectAttrValue("use", "optional") {
	case "required":
		use.required = true
	case "prohibited":
		use.prohibited = true
	}

	if el.SelectAttr("ref") != nil {
		q, err := qnameAttr(el, d, "ref")
		if err != nil {
			return nil, err
		}
		decl, err := s.globalAttribute(q)
		if err != nil {
			return nil, err
		}
		if decl == nil {
			if !s.lax[q.Space] {
				return nil, unresolved(el, "ref", q, "attribute declaration")
			}
			decl = &attributeDecl{name: q, typ: builtinType("anySimpleType")}
		}
		use.decl = decl
		return use, nil
	}

	name := el.SelectAttrValue("name", "")
	if name == "" {
		return nil, schemaErrorf(el, "name", "The attribute 'name' is required but missing.")
	}
	qualified := d.attrQualified
	if form := el.SelectAttrValue("form", ""); form != "" {
		qualified = form == "qualified"
	}
	q := QName{Local: name}
	if qualified {
		q.Space = d.target
	}

	typ, err := s.attributeType(el, d)
	if err != nil {
		return nil, err
	}
	use.decl = &attributeDecl{name: q, typ: typ, def: optional(el, "default")}
	return use, nil
}
