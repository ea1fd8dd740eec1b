// Package bind attaches caller-supplied arguments to a catalog
// template, producing an executable statement. Binding is strictly
// positional and values always travel as engine bound parameters, never
// by textual substitution, so an argument can change a comparand but
// not the statement's structure.
package bind

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/finopslabs/focus-mcp/internal/catalog"
)

// Statement is an ephemeral bound statement: final SQL text plus the
// ordered parameters. It lives for one execution call and is never
// cached; templates are cheap to re-bind.
type Statement struct {
	SQL  string
	Args []any

	// Vetted marks a catalog-sourced statement, which was validated at
	// load time and skips the ad-hoc read-only gate.
	Vetted bool
}

// Kind is the expected parameter kind at a placeholder position,
// inferred from the column the placeholder is compared against.
type Kind string

const (
	KindText     Kind = "text"
	KindTemporal Kind = "temporal"
	KindNumeric  Kind = "numeric"
)

type ArityError struct {
	ID   string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("query %q requires %d parameters, got %d", e.ID, e.Want, e.Got)
}

type ParamTypeError struct {
	Position int // 1-based
	Kind     Kind
	Value    any
}

func (e *ParamTypeError) Error() string {
	return fmt.Sprintf("parameter %d: cannot interpret %v as %s", e.Position, e.Value, e.Kind)
}

// Bind validates arity, coerces each argument to the kind implied by
// its position, and returns the executable statement.
func Bind(def catalog.Definition, args []any) (Statement, error) {
	if len(args) != def.ParamCount {
		return Statement{}, &ArityError{ID: def.ID, Want: def.ParamCount, Got: len(args)}
	}

	kinds := PlaceholderKinds(def.SQL)
	bound := make([]any, len(args))
	for i, arg := range args {
		kind := kindAt(kinds, i)
		v, err := coerce(arg, kind)
		if err != nil {
			return Statement{}, &ParamTypeError{Position: i + 1, Kind: kind, Value: arg}
		}
		bound[i] = v
	}

	return Statement{SQL: def.SQL, Args: bound, Vetted: true}, nil
}

// sqlKeywords are tokens that never name the compared column, so they
// must not reset the inference when scanning toward a placeholder.
var sqlKeywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "like": {}, "ilike": {},
	"between": {}, "is": {}, "null": {}, "as": {}, "cast": {},
	"date": {}, "timestamp": {}, "interval": {}, "case": {}, "when": {},
	"then": {}, "else": {}, "end": {}, "where": {}, "having": {}, "on": {},
	"coalesce": {}, "lower": {}, "upper": {},
}

// PlaceholderKinds infers, per placeholder in template order, the
// expected parameter kind from the most recent column identifier seen
// before it. `ChargePeriodStart >= ?` yields a temporal position,
// `EffectiveCost > ?` a numeric one, anything else text. String
// literals and `--` comments are skipped with the same rules the
// load-time placeholder count uses, so both scanners agree on which
// `?` runes are markers.
func PlaceholderKinds(sqlText string) []Kind {
	var kinds []Kind
	var lastIdent string
	var ident strings.Builder

	flush := func() {
		if ident.Len() == 0 {
			return
		}
		word := ident.String()
		ident.Reset()
		if _, keyword := sqlKeywords[strings.ToLower(word)]; !keyword {
			lastIdent = word
		}
	}

	runes := []rune(sqlText)
	inString := false
	inComment := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case inString:
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
				} else {
					inString = false
				}
			}
		case r == '\'':
			flush()
			inString = true
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			inComment = true
			i++
		case r == '?':
			flush()
			kinds = append(kinds, kindForColumn(lastIdent))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			ident.WriteRune(r)
		default:
			flush()
		}
	}
	return kinds
}

// kindAt returns the inferred kind for a position, falling back to
// text when the scanner saw fewer markers than the declared arity. A
// disagreement must degrade to the loosest coercion, never an
// out-of-range access.
func kindAt(kinds []Kind, i int) Kind {
	if i < len(kinds) {
		return kinds[i]
	}
	return KindText
}

var (
	temporalHints = []string{"date", "period", "time"}
	numericHints  = []string{"cost", "price", "quantity", "amount", "count", "rate"}
)

func kindForColumn(column string) Kind {
	lower := strings.ToLower(column)
	for _, hint := range temporalHints {
		if strings.Contains(lower, hint) {
			return KindTemporal
		}
	}
	for _, hint := range numericHints {
		if strings.Contains(lower, hint) {
			return KindNumeric
		}
	}
	return KindText
}

var temporalLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func coerce(value any, kind Kind) (any, error) {
	switch kind {
	case KindTemporal:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			for _, layout := range temporalLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t, nil
				}
			}
			return nil, fmt.Errorf("unparseable date %q", v)
		default:
			return nil, fmt.Errorf("expected a date, got %T", value)
		}
	case KindNumeric:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return v, nil
		case float64:
			if v == math.Trunc(v) && math.Abs(v) < 1e15 {
				return int64(v), nil
			}
			return v, nil
		case string:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return n, nil
			}
			return nil, fmt.Errorf("unparseable number %q", v)
		default:
			return nil, fmt.Errorf("expected a number, got %T", value)
		}
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		case int, int64, float64, bool:
			return fmt.Sprint(v), nil
		default:
			return nil, fmt.Errorf("expected a scalar, got %T", value)
		}
	}
}
