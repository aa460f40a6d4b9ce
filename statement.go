package stratum

import "strings"

// NamedArg is a named parameter bound to a Statement.
type NamedArg struct {
	Name  string
	Value Value
}

// Statement is a SQL text plus its bound parameters. Parameters are either
// positional or named, never both. Binding errors are recorded and surfaced
// by Validate before any transport call is attempted.
type Statement struct {
	SQL   string
	Args  []Value
	Named []NamedArg

	err error
}

// NewStatement creates a statement, optionally binding positional
// parameters in one call.
func NewStatement(sql string, args ...any) *Statement {
	s := &Statement{SQL: sql}
	if len(args) > 0 {
		s.Bind(args...)
	}
	return s
}

// Bind appends positional parameters and returns the statement for
// chaining. Binding positional parameters after named ones is a usage
// error.
func (s *Statement) Bind(args ...any) *Statement {
	if s.err != nil {
		return s
	}
	if len(s.Named) > 0 {
		s.err = UsageError("cannot mix positional and named parameters in %q", s.SQL)
		return s
	}
	for _, arg := range args {
		v, err := ValueOf(arg)
		if err != nil {
			s.err = err
			return s
		}
		s.Args = append(s.Args, v)
	}
	return s
}

// BindNamed binds a named parameter and returns the statement for
// chaining. Names are stored without their :, @ or $ prefix. Binding the
// same name twice is a usage error, never a silent overwrite.
func (s *Statement) BindNamed(name string, arg any) *Statement {
	if s.err != nil {
		return s
	}
	if len(s.Args) > 0 {
		s.err = UsageError("cannot mix positional and named parameters in %q", s.SQL)
		return s
	}
	name = strings.TrimLeft(name, ":@$")
	if name == "" {
		s.err = UsageError("named parameter with empty name in %q", s.SQL)
		return s
	}
	for _, n := range s.Named {
		if n.Name == name {
			s.err = UsageError("parameter %q bound twice in %q", name, s.SQL)
			return s
		}
	}
	v, err := ValueOf(arg)
	if err != nil {
		s.err = err
		return s
	}
	s.Named = append(s.Named, NamedArg{Name: name, Value: v})
	return s
}

// Validate reports any binding error accumulated while building the
// statement. Backends call this before touching the transport.
func (s *Statement) Validate() error {
	if s == nil {
		return UsageError("nil statement")
	}
	if s.err != nil {
		return s.err
	}
	if strings.TrimSpace(s.SQL) == "" {
		return UsageError("empty SQL text")
	}
	if len(s.Args) > 0 && len(s.Named) > 0 {
		return UsageError("cannot mix positional and named parameters in %q", s.SQL)
	}
	return nil
}

// leadingKeyword returns the first SQL keyword, upper-cased.
func (s *Statement) leadingKeyword() string {
	text := strings.TrimSpace(s.SQL)
	for i, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' || r == ';' {
			return strings.ToUpper(text[:i])
		}
	}
	return strings.ToUpper(text)
}

// IsReadOnly reports whether the statement is query-shaped (SELECT and
// friends). Used to route reads to a separate endpoint when one is
// configured; writes never match.
func (s *Statement) IsReadOnly() bool {
	switch s.leadingKeyword() {
	case "SELECT", "VALUES", "PRAGMA", "EXPLAIN", "SHOW", "DESCRIBE", "WITH":
		return true
	default:
		return false
	}
}

// ReturnsRows reports whether executing the statement is expected to yield
// a row set. INSERT/UPDATE/DELETE with a RETURNING clause count as
// row-returning.
func (s *Statement) ReturnsRows() bool {
	if s.IsReadOnly() {
		return true
	}
	return hasReturningClause(s.SQL)
}

// hasReturningClause looks for a RETURNING keyword outside quoted literals
// and quoted identifiers, so a string value containing the word does not
// reroute a write.
func hasReturningClause(sql string) bool {
	const keyword = "RETURNING"
	upper := strings.ToUpper(sql)
	for i := 0; i < len(upper); {
		switch upper[i] {
		case '\'', '"', '`':
			quote := upper[i]
			i++
			for i < len(upper) && upper[i] != quote {
				i++
			}
			i++ // past the closing quote
		default:
			if upper[i] == 'R' && strings.HasPrefix(upper[i:], keyword) &&
				(i == 0 || !isWordByte(upper[i-1])) &&
				(i+len(keyword) >= len(upper) || !isWordByte(upper[i+len(keyword)])) {
				return true
			}
			i++
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z')
}
