// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type variety int

const (
	atomic variety = iota
	list
	union
)

func (v variety) String() string {
	switch v {
	case list:
		return "list"
	case union:
		return "union"
	default:
		return "atomic"
	}
}

type whitespace int

const (
	wsPreserve whitespace = iota
	wsReplace
	wsCollapse
)

// primitive identifies the built-in primitive a simple type is derived from. It selects
// the ordering and length rules used by facets.
type primitive int

const (
	primAnySimple primitive = iota
	primString
	primBoolean
	primDecimal
	primFloat
	primDuration
	primDateTime
	primTime
	primDate
	primGregorian
	primHexBinary
	primBase64Binary
	primAnyURI
	primQName
)

type pattern struct {
	src string
	re  *regexp.Regexp
}

// facets holds the constraining facets declared by one derivation step.
type facets struct {
	enums          []string
	patterns       []pattern
	length         int
	minLength      int
	maxLength      int
	minInclusive   *string
	maxInclusive   *string
	minExclusive   *string
	maxExclusive   *string
	totalDigits    int
	fractionDigits int
}

func newFacets() facets {
	return facets{length: -1, minLength: -1, maxLength: -1, totalDigits: -1, fractionDigits: -1}
}

// SimpleType is a built-in or user-defined simple type definition.
type SimpleType struct {
	name    QName
	builtin bool
	base    *SimpleType
	prim    primitive
	variety variety
	item    *SimpleType
	members []*SimpleType
	ws      whitespace

	// lexical and valid are the built-in value checks of this step.
	lexical *regexp.Regexp
	valid   func(string) bool

	facets facets
}

func (t *SimpleType) label() string {
	switch {
	case t.builtin:
		return "xs:" + t.name.Local
	case t.name.Local != "":
		return t.name.String()
	default:
		return ""
	}
}

// notValid is the final message for a rejected value.
func (t *SimpleType) notValid(value string) string {
	if l := t.label(); l != "" {
		return fmt.Sprintf("'%s' is not a valid value of the %s type '%s'.", value, t.variety, l)
	}
	return fmt.Sprintf("'%s' is not a valid value of the local %s type.", value, t.variety)
}

func (t *SimpleType) normalize(raw string) string {
	switch t.ws {
	case wsReplace:
		return strings.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, raw)
	case wsCollapse:
		return strings.Join(strings.Fields(raw), " ")
	default:
		return raw
	}
}

// check validates raw against t and returns the messages for a rejected value, or nil.
func (t *SimpleType) check(raw string) []string {
	value := t.normalize(raw)

	switch t.variety {
	case union:
		if !t.acceptsUnion(value) {
			return []string{t.notValid(value)}
		}
	case list:
		for _, item := range strings.Fields(value) {
			if t.item != nil && len(t.item.check(item)) > 0 {
				return []string{t.notValid(value)}
			}
		}
	default:
		if !t.lexicallyValid(value) {
			return []string{t.notValid(value)}
		}
	}

	for step := t; step != nil; step = step.base {
		if msg := step.facets.check(value, t); msg != "" {
			return []string{msg, t.notValid(value)}
		}
	}

	return nil
}

func (t *SimpleType) acceptsUnion(value string) bool {
	for step := t; step != nil; step = step.base {
		for _, m := range step.members {
			if len(m.check(value)) == 0 {
				return true
			}
		}
	}
	return false
}

// lexicallyValid applies the built-in checks of every step in the derivation chain.
func (t *SimpleType) lexicallyValid(value string) bool {
	for step := t; step != nil; step = step.base {
		if step.lexical != nil && !step.lexical.MatchString(value) {
			return false
		}
		if step.valid != nil && !step.valid(value) {
			return false
		}
	}
	return true
}

// equal compares two values of t in its value space where that is cheap to do, and
// lexically otherwise.
func (t *SimpleType) equal(a, b string) bool {
	a, b = t.normalize(a), t.normalize(b)
	if a == b {
		return true
	}
	if t.variety == atomic {
		if c, ok := compareValues(t.prim, a, b); ok {
			return c == 0
		}
	}
	return false
}

func (f *facets) check(value string, t *SimpleType) string {
	if len(f.enums) > 0 && !containsValue(t, f.enums, value) {
		quoted := make([]string, len(f.enums))
		for i, e := range f.enums {
			quoted[i] = "'" + e + "'"
		}
		return fmt.Sprintf("[facet 'enumeration'] The value '%s' is not an element of the set {%s}.", value, strings.Join(quoted, ", "))
	}

	if len(f.patterns) > 0 {
		matched := false
		for _, p := range f.patterns {
			if p.re.MatchString(value) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Sprintf("[facet 'pattern'] The value '%s' is not accepted by the pattern '%s'.", value, f.patterns[0].src)
		}
	}

	if f.length >= 0 || f.minLength >= 0 || f.maxLength >= 0 {
		if n, ok := lengthOf(t, value); ok {
			switch {
			case f.length >= 0 && n != f.length:
				return fmt.Sprintf("[facet 'length'] The value has a length of '%d'; this differs from the allowed length of '%d'.", n, f.length)
			case f.minLength >= 0 && n < f.minLength:
				return fmt.Sprintf("[facet 'minLength'] The value has a length of '%d'; this underruns the allowed minimum length of '%d'.", n, f.minLength)
			case f.maxLength >= 0 && n > f.maxLength:
				return fmt.Sprintf("[facet 'maxLength'] The value has a length of '%d'; this exceeds the allowed maximum length of '%d'.", n, f.maxLength)
			}
		}
	}

	if t.variety == atomic {
		if msg := f.checkBounds(value, t.prim); msg != "" {
			return msg
		}
		if msg := f.checkDigits(value, t.prim); msg != "" {
			return msg
		}
	}

	return ""
}

func (f *facets) checkBounds(value string, prim primitive) string {
	cmp := func(bound *string) (int, bool) {
		if bound == nil {
			return 0, false
		}
		return compareValues(prim, value, *bound)
	}

	if c, ok := cmp(f.minInclusive); ok && c < 0 {
		return fmt.Sprintf("[facet 'minInclusive'] The value '%s' is less than the minimum value allowed ('%s').", value, *f.minInclusive)
	}
	if c, ok := cmp(f.maxInclusive); ok && c > 0 {
		return fmt.Sprintf("[facet 'maxInclusive'] The value '%s' is greater than the maximum value allowed ('%s').", value, *f.maxInclusive)
	}
	if c, ok := cmp(f.minExclusive); ok && c <= 0 {
		return fmt.Sprintf("[facet 'minExclusive'] The value '%s' must be greater than '%s'.", value, *f.minExclusive)
	}
	if c, ok := cmp(f.maxExclusive); ok && c >= 0 {
		return fmt.Sprintf("[facet 'maxExclusive'] The value '%s' must be less than '%s'.", value, *f.maxExclusive)
	}
	return ""
}

func (f *facets) checkDigits(value string, prim primitive) string {
	if prim != primDecimal || (f.totalDigits < 0 && f.fractionDigits < 0) {
		return ""
	}

	total, fraction := countDigits(value)
	if f.totalDigits >= 0 && total > f.totalDigits {
		return fmt.Sprintf("[facet 'totalDigits'] The value '%s' has more digits than are allowed ('%d').", value, f.totalDigits)
	}
	if f.fractionDigits >= 0 && fraction > f.fractionDigits {
		return fmt.Sprintf("[facet 'fractionDigits'] The value '%s' has more fractional digits than are allowed ('%d').", value, f.fractionDigits)
	}
	return ""
}

func containsValue(t *SimpleType, enums []string, value string) bool {
	for _, e := range enums {
		if t.equal(e, value) {
			return true
		}
	}
	return false
}

// lengthOf measures value in the units of t: items for lists, octets for binary types
// and characters otherwise. QName and NOTATION values have no length.
func lengthOf(t *SimpleType, value string) (int, bool) {
	if t.variety == list {
		return len(strings.Fields(value)), true
	}
	switch t.prim {
	case primHexBinary:
		return len(value) / 2, true
	case primBase64Binary:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value), ""))
		if err != nil {
			return 0, false
		}
		return len(b), true
	case primQName:
		return 0, false
	default:
		return utf8.RuneCountInString(value), true
	}
}

// countDigits returns the significant total and fractional digit counts of a decimal.
func countDigits(value string) (total, fraction int) {
	v := strings.TrimLeft(value, "+-")
	intPart, frac, _ := strings.Cut(v, ".")
	intPart = strings.TrimLeft(intPart, "0")
	frac = strings.TrimRight(frac, "0")
	total = len(intPart) + len(frac)
	if total == 0 {
		total = 1
	}
	return total, len(frac)
}

// compareValues orders a and b for the ordered primitives. The second result is false
// when the primitive is unordered or either value cannot be interpreted.
func compareValues(prim primitive, a, b string) (int, bool) {
	switch prim {
	case primDecimal:
		x, ok1 := parseDecimal(a)
		y, ok2 := parseDecimal(b)
		if !ok1 || !ok2 {
			return 0, false
		}
		return x.Cmp(y), true
	case primFloat:
		x, err1 := strconv.ParseFloat(a, 64)
		y, err2 := strconv.ParseFloat(b, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case primDateTime, primDate, primTime:
		x, ok1 := parseTemporal(prim, a)
		y, ok2 := parseTemporal(prim, b)
		if !ok1 || !ok2 {
			return 0, false
		}
		return x.Compare(y), true
	default:
		return 0, false
	}
}

func parseDecimal(s string) (*big.Rat, bool) {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	if sign == "-" {
		s = "-" + s
	}
	return new(big.Rat).SetString(s)
}

var temporalLayouts = map[primitive][]string{
	primDateTime: {"2006-01-02T15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999"},
	primDate:     {"2006-01-02Z07:00", "2006-01-02"},
	primTime:     {"15:04:05.999999999Z07:00", "15:04:05.999999999"},
}

func parseTemporal(prim primitive, s string) (time.Time, bool) {
	for _, layout := range temporalLayouts[prim] {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

const (
	nameStart = `\p{L}_:`
	nameChar  = `\p{L}\p{N}._:\-\p{Mn}\p{Mc}`
)

// compilePattern translates an XML Schema regular expression to RE2. XML Schema
// patterns are implicitly anchored, treat ^ and $ as literals outside character
// classes, and add the \i and \c name classes.
func compilePattern(src string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`^(?:`)

	depth := 0
	classStart := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		atClassStart := classStart
		classStart = false

		switch {
		case c == '\\' && i+1 < len(src):
			i++
			switch n := src[i]; n {
			case 'i':
				writeClass(&b, depth > 0, nameStart, false)
			case 'I':
				writeClass(&b, depth > 0, nameStart, true)
			case 'c':
				writeClass(&b, depth > 0, nameChar, false)
			case 'C':
				writeClass(&b, depth > 0, nameChar, true)
			case 'd':
				b.WriteString(`\p{Nd}`)
			case 'D':
				b.WriteString(`\P{Nd}`)
			default:
				b.WriteByte('\\')
				b.WriteByte(n)
			}
		case c == '[':
			depth++
			classStart = true
			b.WriteByte(c)
		case c == ']' && depth > 0:
			depth--
			b.WriteByte(c)
		case c == '^' && !(depth > 0 && atClassStart):
			b.WriteString(`\^`)
		case c == '$' && depth == 0:
			b.WriteString(`\$`)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteString(`)$`)
	return regexp.Compile(b.String())
}

func writeClass(b *strings.Builder, inClass bool, members string, negated bool) {
	switch {
	case inClass && negated:
		// RE2 cannot nest a negated class; approximate with the letter complement.
		b.WriteString(`\P{L}`)
	case inClass:
		b.WriteString(members)
	case negated:
		b.WriteString(`[^` + members + `]`)
	default:
		b.WriteString(`[` + members + `]`)
	}
}
