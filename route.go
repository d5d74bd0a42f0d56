package apiservice

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
)

// ParseConstraints builds a constraint table from a flat key/value list.
//
// The list is consumed two entries at a time. A pair is installed only when
// both the key and the value are present and non-empty, so a trailing key
// without a value is dropped rather than reported.
func ParseConstraints(flat []string) map[string]string {
	if flat == nil {
		return nil
	}
	constraints := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		key := flat[i]
		value := ""
		if i+1 < len(flat) {
			value = flat[i+1]
		}
		if key != "" && value != "" {
			constraints[key] = value
		}
	}
	return constraints
}

// MatchRoute matches path against a route pattern such as
// "api/v1/weather/forecast/{city}" and returns the segment values in the
// order they appear in the pattern.
//
// Literal text compares ignoring case; segment values keep the case of path.
// constraints maps a segment name to a regular expression the whole segment
// value must match, also ignoring case. Constraint expressions may only use
// non-capturing groups. A malformed pattern or constraint never matches, and
// neither does a catch-all segment such as {*rest}.
func MatchRoute(pattern string, constraints map[string]string, path string) (Values, bool) {
	m, err := compileMatcher(pattern, constraints)
	if err != nil {
		return nil, false
	}
	return m.match(path)
}

// routeMatcher is a compiled route pattern.
type routeMatcher struct {
	re    *regexp.Regexp
	names []string
}

func compileMatcher(pattern string, constraints map[string]string) (*routeMatcher, error) {
	tpl, names, err := routeTemplate(pattern, constraints)
	if err != nil {
		return nil, err
	}
	route, err := compileRoute(tpl)
	if err != nil {
		return nil, err
	}
	expr, err := route.GetPathRegexp()
	if err != nil {
		return nil, err
	}

	// mux quotes literals case-sensitively.
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("compile route %q: %w", tpl, err)
	}
	if re.NumSubexp() != len(names) {
		return nil, fmt.Errorf("compile route %q: %d groups for %d segments", tpl, re.NumSubexp(), len(names))
	}
	return &routeMatcher{re: re, names: names}, nil
}

func (m *routeMatcher) match(path string) (Values, bool) {
	sub := m.re.FindStringSubmatch(normalizePath(path))
	if sub == nil {
		return nil, false
	}
	values := make(Values, 0, len(m.names))
	for i, name := range m.names {
		values = append(values, Param{Key: name, Value: sub[i+1]})
	}
	return values, true
}

// compileRoute builds a standalone mux route. mux panics on constraint
// expressions with capturing groups; that is reported as an error.
func compileRoute(tpl string) (route *mux.Route, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			route, err = nil, fmt.Errorf("compile route %q: %v", tpl, rec)
		}
	}()
	route = mux.NewRouter().NewRoute().Path(tpl)
	if err := route.GetError(); err != nil {
		return nil, err
	}
	return route, nil
}

// routeTemplate rewrites pattern into mux template syntax, folding each
// constraint into its segment as {name:expr}, and returns the segment names
// in order of appearance.
func routeTemplate(pattern string, constraints map[string]string) (string, []string, error) {
	var (
		b     strings.Builder
		names []string
	)
	p := normalizePath(pattern)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '}' {
			return "", nil, fmt.Errorf("unbalanced braces in route %q", pattern)
		}
		if c != '{' {
			b.WriteByte(c)
			continue
		}

		end, err := closingBrace(p, i)
		if err != nil {
			return "", nil, fmt.Errorf("route %q: %w", pattern, err)
		}
		inner := p[i+1 : end]
		name, expr, inline := strings.Cut(inner, ":")
		if name == "" {
			return "", nil, fmt.Errorf("route %q: empty segment name", pattern)
		}
		if strings.HasPrefix(name, "*") {
			return "", nil, fmt.Errorf("route %q: catch-all segment %s not supported", pattern, name)
		}
		names = append(names, name)

		b.WriteByte('{')
		b.WriteString(name)
		switch {
		case inline:
			b.WriteString(":" + expr)
		case constraints[name] != "":
			b.WriteString(":(?i:" + constraints[name] + ")")
		}
		b.WriteByte('}')
		i = end
	}
	return b.String(), names, nil
}

// closingBrace returns the index of the brace closing the one at start,
// allowing nested braces inside expressions such as {id:[0-9]{4}}.
func closingBrace(s string, start int) (int, error) {
	level := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced braces")
}

// normalizePath returns p with exactly one leading slash and no trailing slash.
func normalizePath(p string) string {
	p = "/" + strings.TrimLeft(p, "/")
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
