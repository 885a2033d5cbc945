// Package sqltype describes native column types as reported by a schema source and
// normalizes them to canonical, database-portable type names.
//
// Types form small "is-a" families through embedding: BigInteger is an Integer, Float is a
// Numeric. Canonical checks family membership, not equality, so the order of its rules
// matters.
package sqltype

import (
	"fmt"
	"strings"
)

// Type is a native column type. String returns the type's own textual form, which is
// also the canonical name when no normalization rule applies.
type Type interface {
	String() string
}

// Family markers. A type belongs to a family when it implements the marker.
type (
	stringFamily   interface{ stringType() }
	textFamily     interface{ textType() }
	integerFamily  interface{ integerType() }
	floatFamily    interface{ floatType() }
	numericFamily  interface{ numericType() }
	booleanFamily  interface{ booleanType() }
	dateTimeFamily interface{ dateTimeType() }
	dateFamily     interface{ dateType() }
)

// String is a variable-length character type. Length 0 means unbounded.
type String struct {
	Length int
}

func (String) stringType() {}

func (s String) String() string {
	if s.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", s.Length)
	}
	return "VARCHAR"
}

// Text is an unbounded text type
type Text struct{}

func (Text) textType() {}

func (Text) String() string { return "TEXT" }

// Integer is a 32-bit integer type
type Integer struct{}

func (Integer) integerType() {}

func (Integer) String() string { return "INTEGER" }

// SmallInteger is an Integer
type SmallInteger struct{ Integer }

func (SmallInteger) String() string { return "SMALLINT" }

// BigInteger is an Integer
type BigInteger struct{ Integer }

func (BigInteger) String() string { return "BIGINT" }

// Numeric is a fixed-precision decimal type. Zero precision means unspecified.
type Numeric struct {
	Precision int
	Scale     int
}

func (Numeric) numericType() {}

func (n Numeric) String() string {
	if n.Precision > 0 {
		return fmt.Sprintf("NUMERIC(%d, %d)", n.Precision, n.Scale)
	}
	return "NUMERIC"
}

// Float is a floating point type and a Numeric
type Float struct{ Numeric }

func (Float) floatType() {}

func (Float) String() string { return "FLOAT" }

// Boolean is a true/false type. It is never part of the Integer family, even when a
// database stores it as a small integer.
type Boolean struct{}

func (Boolean) booleanType() {}

func (Boolean) String() string { return "BOOLEAN" }

// DateTime is a date and time type
type DateTime struct {
	Timezone bool
}

func (DateTime) dateTimeType() {}

func (d DateTime) String() string {
	if d.Timezone {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "DATETIME"
}

// Date is a calendar date type
type Date struct{}

func (Date) dateType() {}

func (Date) String() string { return "DATE" }

// Time is a time-of-day type. No canonical rule covers it.
type Time struct{}

func (Time) String() string { return "TIME" }

// Custom is any type without a dedicated marker, such as UUID or JSONB
type Custom struct {
	Name string
}

func (c Custom) String() string { return c.Name }

// Rule maps a type family to a canonical name
type Rule struct {
	Matches   func(Type) bool
	Canonical string
}

func isA[F any](t Type) bool {
	_, ok := t.(F)
	return ok
}

// Rules is the fixed, ordered list of normalization rules. The first match wins.
var Rules = []Rule{
	{Matches: isA[stringFamily], Canonical: "VARCHAR"},
	{Matches: isA[textFamily], Canonical: "TEXT"},
	{Matches: isA[integerFamily], Canonical: "INTEGER"},
	{Matches: isA[floatFamily], Canonical: "FLOAT"},
	{Matches: isA[numericFamily], Canonical: "DECIMAL"},
	{Matches: isA[booleanFamily], Canonical: "BOOLEAN"},
	{Matches: isA[dateTimeFamily], Canonical: "TIMESTAMP"},
	{Matches: isA[dateFamily], Canonical: "DATE"},
}

// Canonical returns the canonical name of t, falling back to t's own textual form
func Canonical(t Type) string {
	if t == nil {
		return ""
	}
	for _, rule := range Rules {
		if rule.Matches(t) {
			return rule.Canonical
		}
	}
	return t.String()
}

// Parse converts a SQL type name as reported by PostgreSQL, SQLite or a model tag
// (e.g. "character varying(50)", "int8", "tinyint(1)", "timestamptz") into a Type.
// Unknown names and array types become Custom with the name upper-cased.
func Parse(s string) Type {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return nil
	}

	base, args := splitArgs(name)
	// arrays are not their element type
	if strings.HasSuffix(base, "[]") {
		return Custom{Name: strings.ToUpper(strings.TrimSpace(s))}
	}

	switch base {
	case "varchar", "character varying", "nvarchar", "string", "char", "character",
		"bpchar", "nchar", "citext", "varchar2":
		return String{Length: firstArg(args)}
	case "text", "tinytext", "mediumtext", "longtext", "clob", "markdown":
		return Text{}
	case "integer", "int", "int4", "mediumint", "serial", "serial4":
		return Integer{}
	case "smallint", "int2", "smallserial", "serial2":
		return SmallInteger{}
	case "tinyint":
		if firstArg(args) == 1 {
			return Boolean{}
		}
		return SmallInteger{}
	case "bigint", "int8", "bigserial", "serial8":
		return BigInteger{}
	case "real", "float4", "float", "float8", "double", "double precision":
		return Float{}
	case "numeric", "decimal", "money":
		n := Numeric{}
		if len(args) > 0 {
			n.Precision = args[0]
		}
		if len(args) > 1 {
			n.Scale = args[1]
		}
		return n
	case "boolean", "bool":
		return Boolean{}
	case "bit":
		if len(args) == 0 || args[0] == 1 {
			return Boolean{}
		}
		return Custom{Name: strings.ToUpper(strings.TrimSpace(s))}
	case "timestamp", "timestamp without time zone", "datetime":
		return DateTime{}
	case "timestamptz", "timestamp with time zone":
		return DateTime{Timezone: true}
	case "date":
		return Date{}
	case "time", "timetz", "time without time zone", "time with time zone":
		return Time{}
	default:
		return Custom{Name: strings.ToUpper(strings.TrimSpace(s))}
	}
}

// splitArgs splits "numeric(10,2)" into "numeric" and [10 2]. Non-numeric arguments
// are ignored.
func splitArgs(name string) (string, []int) {
	open := strings.IndexByte(name, '(')
	if open < 0 {
		return name, nil
	}
	end := strings.LastIndexByte(name, ')')
	if end < open {
		return strings.TrimSpace(name[:open]), nil
	}

	base := strings.TrimSpace(name[:open] + name[end+1:])
	var args []int
	for _, part := range strings.Split(name[open+1:end], ",") {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &n); err == nil {
			args = append(args, n)
		}
	}
	return base, args
}

func firstArg(args []int) int {
	if len(args) == 0 {
		return 0
	}
	return args[0]
}
