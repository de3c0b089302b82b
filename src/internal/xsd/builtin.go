// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package xsd

import (
	"encoding/base64"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	tz         = `(?:Z|[+-]\d{2}:\d{2})?`
	ncName     = `[\p{L}_][\p{L}\p{N}._\-\p{Mn}\p{Mc}]*`
	decimalLex = `^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`
)

var builtins = map[string]*SimpleType{}

func builtinType(local string) *SimpleType { return builtins[local] }

// def registers a built-in type derived from base. An empty base marks a primitive.
func def(local, base string, prim primitive, ws whitespace, lexical string, valid func(string) bool) *SimpleType {
	t := &SimpleType{
		name:    QName{Space: NamespaceXSD, Local: local},
		builtin: true,
		prim:    prim,
		ws:      ws,
		valid:   valid,
		facets:  newFacets(),
	}
	if lexical != "" {
		t.lexical = regexp.MustCompile(lexical)
	}
	if base != "" {
		t.base = builtins[base]
	}
	builtins[local] = t
	return t
}

func defList(local, item string) {
	t := def(local, "anySimpleType", primAnySimple, wsCollapse, "", nil)
	t.variety = list
	t.item = builtins[item]
	t.facets.minLength = 1
}

func intRange(min, max string) func(string) bool {
	lo, hi := bigInt(min), bigInt(max)
	return func(s string) bool {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
		if !ok {
			return false
		}
		return (lo == nil || v.Cmp(lo) >= 0) && (hi == nil || v.Cmp(hi) <= 0)
	}
}

func bigInt(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, _ := new(big.Int).SetString(s, 10)
	return v
}

func parses(layout string, n int) func(string) bool {
	return func(s string) bool {
		s = strings.TrimPrefix(s, "-")
		if len(s) < n {
			return false
		}
		_, err := time.Parse(layout, s[:n])
		return err == nil
	}
}

func validBase64(s string) bool {
	_, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
	return err == nil
}

func init() {
	def("anySimpleType", "", primAnySimple, wsPreserve, "", nil)

	def("string", "anySimpleType", primString, wsPreserve, "", nil)
	def("normalizedString", "string", primString, wsReplace, "", nil)
	def("token", "normalizedString", primString, wsCollapse, "", nil)
	def("language", "token", primString, wsCollapse, `^[a-zA-Z]{1,8}(?:-[a-zA-Z0-9]{1,8})*$`, nil)
	def("NMTOKEN", "token", primString, wsCollapse, `^[`+nameChar+`]+$`, nil)
	def("Name", "token", primString, wsCollapse, `^[`+nameStart+`][`+nameChar+`]*$`, nil)
	def("NCName", "Name", primString, wsCollapse, `^`+ncName+`$`, nil)
	def("ID", "NCName", primString, wsCollapse, "", nil)
	def("IDREF", "NCName", primString, wsCollapse, "", nil)
	def("ENTITY", "NCName", primString, wsCollapse, "", nil)
	defList("NMTOKENS", "NMTOKEN")
	defList("IDREFS", "IDREF")
	defList("ENTITIES", "ENTITY")

	def("boolean", "anySimpleType", primBoolean, wsCollapse, `^(?:true|false|1|0)$`, nil)

	def("decimal", "anySimpleType", primDecimal, wsCollapse, decimalLex, nil)
	def("integer", "decimal", primDecimal, wsCollapse, `^[+-]?\d+$`, nil)
	def("nonPositiveInteger", "integer", primDecimal, wsCollapse, "", intRange("", "0"))
	def("negativeInteger", "nonPositiveInteger", primDecimal, wsCollapse, "", intRange("", "-1"))
	def("long", "integer", primDecimal, wsCollapse, "", intRange("-9223372036854775808", "9223372036854775807"))
	def("int", "long", primDecimal, wsCollapse, "", intRange("-2147483648", "2147483647"))
	def("short", "int", primDecimal, wsCollapse, "", intRange("-32768", "32767"))
	def("byte", "short", primDecimal, wsCollapse, "", intRange("-128", "127"))
	def("nonNegativeInteger", "integer", primDecimal, wsCollapse, "", intRange("0", ""))
	def("unsignedLong", "nonNegativeInteger", primDecimal, wsCollapse, "", intRange("0", "18446744073709551615"))
	def("unsignedInt", "unsignedLong", primDecimal, wsCollapse, "", intRange("0", "4294967295"))
	def("unsignedShort", "unsignedInt", primDecimal, wsCollapse, "", intRange("0", "65535"))
	def("unsignedByte", "unsignedShort", primDecimal, wsCollapse, "", intRange("0", "255"))
	def("positiveInteger", "nonNegativeInteger", primDecimal, wsCollapse, "", intRange("1", ""))

	floatLex := `^(?:[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?|-?INF|NaN)$`
	def("float", "anySimpleType", primFloat, wsCollapse, floatLex, nil)
	def("double", "anySimpleType", primFloat, wsCollapse, floatLex, nil)

	def("duration", "anySimpleType", primDuration, wsCollapse,
		`^-?P(?:\d+Y)?(?:\d+M)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d+)?S)?)?$`,
		func(s string) bool { return !strings.HasSuffix(s, "P") && !strings.HasSuffix(s, "T") })
	def("dateTime", "anySimpleType", primDateTime, wsCollapse,
		`^-?\d{4,}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?`+tz+`$`, parses("2006-01-02T15:04:05", 19))
	def("time", "anySimpleType", primTime, wsCollapse,
		`^\d{2}:\d{2}:\d{2}(?:\.\d+)?`+tz+`$`, parses("15:04:05", 8))
	def("date", "anySimpleType", primDate, wsCollapse,
		`^-?\d{4,}-\d{2}-\d{2}`+tz+`$`, parses("2006-01-02", 10))
	def("gYearMonth", "anySimpleType", primGregorian, wsCollapse, `^-?\d{4,}-\d{2}`+tz+`$`, parses("2006-01", 7))
	def("gYear", "anySimpleType", primGregorian, wsCollapse, `^-?\d{4,}`+tz+`$`, nil)
	def("gMonthDay", "anySimpleType", primGregorian, wsCollapse, `^--\d{2}-\d{2}`+tz+`$`, nil)
	def("gDay", "anySimpleType", primGregorian, wsCollapse, `^---\d{2}`+tz+`$`, nil)
	def("gMonth", "anySimpleType", primGregorian, wsCollapse, `^--\d{2}`+tz+`$`, nil)

	def("hexBinary", "anySimpleType", primHexBinary, wsCollapse, `^(?:[0-9a-fA-F]{2})*$`, nil)
	def("base64Binary", "anySimpleType", primBase64Binary, wsCollapse, "", validBase64)
	def("anyURI", "anySimpleType", primAnyURI, wsCollapse, "", nil)
	def("QName", "anySimpleType", primQName, wsCollapse, `^(?:`+ncName+`:)?`+ncName+`$`, nil)
	def("NOTATION", "anySimpleType", primQName, wsCollapse, `^(?:`+ncName+`:)?`+ncName+`$`, nil)
}
