package catalog

import (
	"fmt"
	"strings"
)

// Definition is one analytical query template, loaded from the
// version-partitioned resource tree. Immutable after load.
type Definition struct {
	Version    string `json:"version"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	SQL        string `json:"sql"`
	ParamCount int    `json:"param_count"`
	Citation   string `json:"citation,omitempty"`
}

// MalformedTemplateError records a template resource that failed
// validation at load time. One bad entry never aborts the load of the
// rest of its version.
type MalformedTemplateError struct {
	Version string
	File    string
	Reason  string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template %s/%s: %s", e.Version, e.File, e.Reason)
}

const citationPrefix = "-- Source:"

// parseTemplate extracts the title, citation and SQL body from a
// template resource. The expected format is a comment header followed
// by the statement:
//
//	-- Title of the query
//	-- Source: https://focus.finops.org/...
//	SELECT ...
func parseTemplate(version, file string, content []byte) (Definition, error) {
	lines := strings.Split(string(content), "\n")

	title := strings.TrimSuffix(file, ".sql")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "-- ") {
		title = strings.TrimSpace(strings.TrimPrefix(lines[0], "-- "))
	}

	var citation string
	var sqlLines []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			if strings.HasPrefix(strings.TrimSpace(line), citationPrefix) {
				citation = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), citationPrefix))
			}
			continue
		}
		sqlLines = append(sqlLines, line)
	}
	sqlText := strings.TrimSpace(strings.Join(sqlLines, "\n"))
	if sqlText == "" {
		return Definition{}, &MalformedTemplateError{Version: version, File: file, Reason: "no SQL body"}
	}

	count, err := CountPlaceholders(sqlText)
	if err != nil {
		return Definition{}, &MalformedTemplateError{Version: version, File: file, Reason: err.Error()}
	}

	return Definition{
		Version:    version,
		ID:         Slugify(title),
		Title:      title,
		SQL:        sqlText,
		ParamCount: count,
		Citation:   citation,
	}, nil
}

// CountPlaceholders counts positional `?` markers in a statement. A
// marker inside a string literal or an inline comment makes the arity
// ambiguous, which is a load-time validation failure rather than
// something to guess around.
func CountPlaceholders(sqlText string) (int, error) {
	count := 0
	inString := false
	inComment := false
	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inComment:
			if r == '?' {
				return 0, fmt.Errorf("placeholder inside comment makes arity ambiguous")
			}
			if r == '\n' {
				inComment = false
			}
		case inString:
			if r == '?' {
				return 0, fmt.Errorf("placeholder inside string literal makes arity ambiguous")
			}
			if r == '\'' {
				// '' is an escaped quote inside the literal.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
				} else {
					inString = false
				}
			}
		default:
			switch r {
			case '\'':
				inString = true
			case '-':
				if i+1 < len(runes) && runes[i+1] == '-' {
					inComment = true
					i++
				}
			case '?':
				count++
			}
		}
	}
	if inString {
		return 0, fmt.Errorf("unterminated string literal")
	}
	return count, nil
}

// Slugify derives a stable identifier from a template title, so that
// repeated loads map the same title to the same id.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
