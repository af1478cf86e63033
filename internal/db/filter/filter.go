// Package filter parses reply listing filter queries. A query is a
// comma-joined sequence of atoms of the form field:value (equals) or
// field^value (not-equals). Parsing is lenient: malformed atoms and atoms
// targeting non-filterable fields are dropped, never surfaced as errors.
package filter

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/metaformlabs/metaform-server/internal/schema"
)

// Operator is the comparison an atom applies.
type Operator int

const (
	// OperatorEquals matches when the stored value equals the filter value;
	// for list fields, when the filter value is a member of the collection.
	OperatorEquals Operator = iota
	// OperatorNotEquals is the logical negation of OperatorEquals.
	OperatorNotEquals
)

// String returns the operator's query-string token.
func (o Operator) String() string {
	if o == OperatorNotEquals {
		return "^"
	}
	return ":"
}

// Atom is one parsed field predicate. Value holds the literal converted to
// the field's storage category (string, float64 or bool); a nil Value marks
// an atom whose literal did not parse and which therefore never matches.
type Atom struct {
	Field    string
	Operator Operator
	Value    any
	Category schema.StorageType
}

// IsNull reports whether the atom can never match.
func (a Atom) IsNull() bool { return a.Value == nil }

// Set is an immutable collection of parsed atoms. Matching is conjunctive:
// a reply matches only when every atom matches.
type Set struct {
	atoms []Atom
}

// Atoms returns a copy of the parsed atoms.
func (s Set) Atoms() []Atom {
	out := make([]Atom, len(s.atoms))
	copy(out, s.atoms)
	return out
}

// ByCategory returns the atoms targeting the given storage category, so a
// consumer can apply only the comparisons relevant to each variant table.
func (s Set) ByCategory(category schema.StorageType) []Atom {
	var out []Atom
	for _, atom := range s.atoms {
		if atom.Category == category {
			out = append(out, atom)
		}
	}
	return out
}

// Len returns the number of well-formed atoms.
func (s Set) Len() int { return len(s.atoms) }

// atomExpr is the grammar of a single filter atom: exactly a field term, an
// operator and a value term. Anything else fails the parse and the atom is
// dropped.
type atomExpr struct {
	Field string `parser:"@Term"`
	Op    string `parser:"@Op"`
	Value string `parser:"@Term"`
}

var (
	atomLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Op", Pattern: `[:^]`},
		{Name: "Term", Pattern: `[^:^,]+`},
	})
	atomParser = participle.MustBuild[atomExpr](participle.Lexer(atomLexer))
)

// Parse parses a comma-joined filter query against a metaform schema.
// Pure and stateless; parsing the same query twice yields equivalent sets.
func Parse(metaform *schema.Metaform, query string) Set {
	var atoms []Atom
	for _, raw := range strings.Split(query, ",") {
		if raw == "" {
			continue
		}
		atom, ok := parseAtom(metaform, raw)
		if !ok {
			continue
		}
		atoms = append(atoms, atom)
	}
	return Set{atoms: atoms}
}

func parseAtom(metaform *schema.Metaform, raw string) (Atom, bool) {
	expr, err := atomParser.ParseString("", raw)
	if err != nil {
		return Atom{}, false
	}

	field := metaform.FindField(expr.Field)
	if field == nil {
		return Atom{}, false
	}
	category := schema.ResolveStorageType(field.Type)
	if category == schema.StorageTypeNone {
		return Atom{}, false
	}

	operator := OperatorEquals
	if expr.Op == "^" {
		operator = OperatorNotEquals
	}

	return Atom{
		Field:    expr.Field,
		Operator: operator,
		Value:    convertLiteral(category, expr.Value),
		Category: category,
	}, true
}

// convertLiteral converts the raw literal to the category's native
// representation. An unparseable boolean or number yields nil, an atom that
// can never match.
func convertLiteral(category schema.StorageType, raw string) any {
	switch category {
	case schema.StorageTypeBoolean:
		switch raw {
		case "true":
			return true
		case "false":
			return false
		default:
			return nil
		}
	case schema.StorageTypeNumber:
		number, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return number
	default:
		return raw
	}
}
