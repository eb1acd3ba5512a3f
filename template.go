package urlnav

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ashikmeerankutty/urlnav/internal/expr"
)

// Context is the evaluation context for URL templates: an arbitrary
// key-value tree, read-only during evaluation.
type Context map[string]any

// placeholderRe matches {{...}} placeholders. A match stops at the first
// closing brace; nested braces are not supported.
var placeholderRe = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// Evaluator substitutes {{expression}} placeholders in URL templates.
type Evaluator struct {
	mu      sync.RWMutex
	cache   map[string]*parsedTemplate
	caching bool
	filters map[string]FilterFunc
}

// parsedTemplate is a template split into literal and placeholder segments.
type parsedTemplate struct {
	source   string
	segments []templateSegment
}

// templateSegment is either literal text or a placeholder, never both.
type templateSegment struct {
	literal string
	ph      *placeholder
}

// placeholder is one parsed {{...}} occurrence. The key is the text before
// the first pipe; it alone decides whether the placeholder is resolvable.
type placeholder struct {
	inner   string
	key     *expr.Path
	filters []filterCall
}

// filterCall is one name[:arg...] step of a filter pipeline.
type filterCall struct {
	name string
	args []string
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithFilter registers a custom filter under the given name.
func WithFilter(name string, fn FilterFunc) EvaluatorOption {
	return func(e *Evaluator) {
		e.filters[name] = fn
	}
}

// WithoutTemplateCache disables the parsed-template cache.
func WithoutTemplateCache() EvaluatorOption {
	return func(e *Evaluator) {
		e.caching = false
	}
}

// NewEvaluator creates a new template evaluator with the built-in filters
// registered.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		cache:   make(map[string]*parsedTemplate),
		caching: true,
		filters: builtinFilters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterFilter registers a custom filter under the given name, replacing
// any existing filter with that name.
func (e *Evaluator) RegisterFilter(name string, fn FilterFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
}

// Evaluate substitutes every placeholder in template using ctx and returns
// the result. Substituted values are URI-component encoded; literal text is
// left untouched, so a template without placeholders comes back unchanged.
//
// A placeholder's key (the part before the first pipe) must resolve to a
// defined value or evaluation fails with UnresolvedExpressionError; the
// emitted value is the full expression with filters applied. Evaluation is
// all-or-nothing: on any error no partially substituted string is returned.
func (e *Evaluator) Evaluate(template string, ctx Context) (string, error) {
	tmpl, err := e.getTemplate(template)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(template))
	for _, seg := range tmpl.segments {
		if seg.ph == nil {
			b.WriteString(seg.literal)
			continue
		}
		value, err := e.resolve(tmpl.source, seg.ph, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(encodeURIComponent(value))
	}
	return b.String(), nil
}

// ValidateTemplate checks a template without evaluating it, reporting
// malformed placeholders and unknown filter names before a context is
// available. The filter check reads the live registry on every call, so a
// template that failed on a missing filter validates once that filter is
// registered.
func (e *Evaluator) ValidateTemplate(template string) error {
	tmpl, err := e.getTemplate(template)
	if err != nil {
		return err
	}
	for _, seg := range tmpl.segments {
		if seg.ph == nil {
			continue
		}
		for _, fc := range seg.ph.filters {
			if e.filter(fc.name) == nil {
				return MalformedTemplateError{Template: template, Reason: fmt.Sprintf("unknown filter %q", fc.name)}
			}
		}
	}
	return nil
}

// ClearCache clears the parsed-template cache.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*parsedTemplate)
}

// getTemplate gets a parsed template from cache or parses it.
func (e *Evaluator) getTemplate(source string) (*parsedTemplate, error) {
	if !e.caching {
		return parseTemplate(source)
	}

	// Check cache first (read lock)
	e.mu.RLock()
	if tmpl, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	// Parse the template (write lock)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine parsed it
	if tmpl, ok := e.cache[source]; ok {
		return tmpl, nil
	}

	tmpl, err := parseTemplate(source)
	if err != nil {
		return nil, err
	}
	e.cache[source] = tmpl
	return tmpl, nil
}

// resolve produces the substitution text for one placeholder.
func (e *Evaluator) resolve(source string, ph *placeholder, ctx Context) (string, error) {
	value, ok := ph.key.Eval(map[string]any(ctx))
	if !ok {
		return "", UnresolvedExpressionError{Expression: ph.inner, Template: source}
	}

	for _, fc := range ph.filters {
		fn := e.filter(fc.name)
		if fn == nil {
			return "", MalformedTemplateError{Template: source, Reason: fmt.Sprintf("unknown filter %q", fc.name)}
		}
		var err error
		value, err = fn(value, fc.args...)
		if err != nil {
			return "", MalformedTemplateError{Template: source, Reason: fmt.Sprintf("filter %s: %v", fc.name, err)}
		}
	}
	return stringify(value), nil
}

// filter looks up a filter by name.
func (e *Evaluator) filter(name string) FilterFunc {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filters[name]
}

// parseTemplate splits a template into literal and placeholder segments.
// Text that only opens a placeholder (an unclosed brace pair) stays literal.
func parseTemplate(source string) (*parsedTemplate, error) {
	tmpl := &parsedTemplate{source: source}
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(source, -1) {
		if m[0] > last {
			tmpl.segments = append(tmpl.segments, templateSegment{literal: source[last:m[0]]})
		}
		ph, err := parsePlaceholder(source, source[m[2]:m[3]])
		if err != nil {
			return nil, err
		}
		tmpl.segments = append(tmpl.segments, templateSegment{ph: ph})
		last = m[1]
	}
	if last < len(source) {
		tmpl.segments = append(tmpl.segments, templateSegment{literal: source[last:]})
	}
	return tmpl, nil
}

// parsePlaceholder parses the inner text of one {{...}} match. The key is
// the text before the first pipe, trimmed; the rest is the filter pipeline.
func parsePlaceholder(source, inner string) (*placeholder, error) {
	keyText, pipeline, piped := strings.Cut(inner, "|")
	keyText = strings.TrimSpace(keyText)
	if keyText == "" {
		return nil, MalformedTemplateError{Template: source, Reason: "empty expression"}
	}

	key, err := expr.Parse(keyText)
	if err != nil {
		return nil, MalformedTemplateError{Template: source, Reason: err.Error()}
	}

	ph := &placeholder{inner: inner, key: key}
	if !piped {
		return ph, nil
	}
	for _, part := range strings.Split(pipeline, "|") {
		fc, err := parseFilterCall(source, part)
		if err != nil {
			return nil, err
		}
		ph.filters = append(ph.filters, fc)
	}
	return ph, nil
}

// parseFilterCall parses one name[:arg...] filter segment.
func parseFilterCall(source, text string) (filterCall, error) {
	parts := strings.Split(text, ":")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return filterCall{}, MalformedTemplateError{Template: source, Reason: "empty filter name"}
	}

	fc := filterCall{name: name}
	for _, arg := range parts[1:] {
		fc.args = append(fc.args, unquoteArg(strings.TrimSpace(arg)))
	}
	return fc, nil
}

// unquoteArg strips one level of matching quotes from a filter argument.
func unquoteArg(arg string) string {
	if len(arg) >= 2 {
		if q := arg[0]; (q == '\'' || q == '"') && arg[len(arg)-1] == q {
			return arg[1 : len(arg)-1]
		}
	}
	return arg
}

// stringify renders a resolved value as URL text. Nil renders empty, slices
// join on commas, floats render without exponent notation.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = stringify(el)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

const upperhex = "0123456789ABCDEF"

// encodeURIComponent percent-encodes s byte-wise. Only unreserved
// characters and ! ~ * ' ( ) stay literal; space encodes as %20, never +.
func encodeURIComponent(s string) string {
	escapes := 0
	for i := 0; i < len(s); i++ {
		if !componentSafe(s[i]) {
			escapes++
		}
	}
	if escapes == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*escapes)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if componentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// componentSafe reports whether a byte survives URI-component encoding
// unescaped.
func componentSafe(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
