package urlnav

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateNoPlaceholders(t *testing.T) {
	e := NewEvaluator()

	templates := []string{
		"",
		"/",
		"/dashboard",
		"/a/b?x=1&y=2",
		"plain text with spaces",
		"unclosed {{brace stays literal",
		"stray }} closer",
	}
	for _, tmpl := range templates {
		out, err := e.Evaluate(tmpl, Context{"anything": 1})
		require.NoError(t, err, "template %q", tmpl)
		assert.Equal(t, tmpl, out, "template %q", tmpl)
	}
}

func TestEvaluateSubstitution(t *testing.T) {
	e := NewEvaluator()
	ctx := Context{
		"id":   "x",
		"name": "x y",
		"user": map[string]any{"id": 42},
		"tags": []string{"a", "b"},
	}

	tests := []struct {
		template string
		want     string
	}{
		{"{{id}}", "x"},
		{"/path/{{id}}", "/path/x"},
		{"{{name}}", "x%20y"},
		{"/u/{{user.id}}", "/u/42"},
		{"/u/{{user['id']}}", "/u/42"},
		{"/t/{{tags[1]}}", "/t/b"},
		{"{{tags}}", "a%2Cb"},
		{"{{id}}/{{id}}", "x/x"},
		{"{{ id }}", "x"},
	}
	for _, tc := range tests {
		out, err := e.Evaluate(tc.template, ctx)
		require.NoError(t, err, "template %q", tc.template)
		assert.Equal(t, tc.want, out, "template %q", tc.template)
	}
}

func TestEvaluateEncoding(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		value string
		want  string
	}{
		{"x y", "x%20y"},
		{"a/b", "a%2Fb"},
		{"a?b=c&d", "a%3Fb%3Dc%26d"},
		{"50%", "50%25"},
		{"a+b", "a%2Bb"},
		{"keep-these_.!~*'()", "keep-these_.!~*'()"},
		{"přehled", "p%C5%99ehled"},
	}
	for _, tc := range tests {
		out, err := e.Evaluate("{{v}}", Context{"v": tc.value})
		require.NoError(t, err, "value %q", tc.value)
		assert.Equal(t, tc.want, out, "value %q", tc.value)
	}
}

func TestEvaluateUnresolvedExpression(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Evaluate("{{missing}}", Context{})
	require.Error(t, err)
	var unresolved UnresolvedExpressionError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "missing", unresolved.Expression)
	assert.Equal(t, "{{missing}}", unresolved.Template)

	// All or nothing: an earlier resolvable placeholder does not leak out.
	_, err = e.Evaluate("/a/{{ok}}/{{missing}}", Context{"ok": 1})
	require.Error(t, err)
	assert.True(t, errors.As(err, &unresolved))

	// Traversal past a defined value is still unresolved.
	_, err = e.Evaluate("{{user.name}}", Context{"user": map[string]any{"id": 1}})
	assert.True(t, errors.As(err, &unresolved))

	// A nil context resolves nothing.
	_, err = e.Evaluate("{{x}}", nil)
	assert.Error(t, err)
}

func TestEvaluatePresenceSemantics(t *testing.T) {
	e := NewEvaluator()

	// A present nil value is defined and renders empty.
	out, err := e.Evaluate("/a/{{v}}", Context{"v": nil})
	require.NoError(t, err)
	assert.Equal(t, "/a/", out)

	// Presence is checked on the full key, filters included in the report.
	_, err = e.Evaluate("{{missing|upper}}", Context{})
	var unresolved UnresolvedExpressionError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "missing|upper", unresolved.Expression)
}

func TestEvaluateFilterPipeline(t *testing.T) {
	e := NewEvaluator()

	out, err := e.Evaluate("{{a|upper}}", Context{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "X", out)

	out, err = e.Evaluate("{{a|trim|upper}}", Context{"a": "  hi  "})
	require.NoError(t, err)
	assert.Equal(t, "HI", out)

	// The key alone decides resolvability, so the same template fails when
	// the key is absent even though a filter could supply a value.
	_, err = e.Evaluate("{{a|upper}}", Context{"b": "x"})
	assert.Error(t, err)
}

func TestEvaluateMalformedTemplates(t *testing.T) {
	e := NewEvaluator()
	ctx := Context{"a": "x"}

	templates := []string{
		"{{}}",
		"{{ }}",
		"{{|upper}}",
		"{{a|}}",
		"{{a||upper}}",
		"{{a()}}",
		"{{a..b}}",
		"{{a[}}",
		"{{a[b]}}",
		"{{a|nosuch}}",
		"{{a|limitTo:x}}",
		"{{a|upper:arg}}",
	}
	for _, tmpl := range templates {
		_, err := e.Evaluate(tmpl, ctx)
		require.Error(t, err, "template %q", tmpl)
		var malformed MalformedTemplateError
		assert.True(t, errors.As(err, &malformed), "template %q: %v", tmpl, err)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	e := NewEvaluator()
	ctx := Context{"a": "x y", "n": 3}
	const tmpl = "/p/{{a}}?n={{n}}"

	first, err := e.Evaluate(tmpl, ctx)
	require.NoError(t, err)
	second, err := e.Evaluate(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "/p/x%20y?n=3", first)
}

func TestEvaluateWithoutTemplateCache(t *testing.T) {
	e := NewEvaluator(WithoutTemplateCache())

	for i := 0; i < 3; i++ {
		out, err := e.Evaluate("/n/{{a}}", Context{"a": i})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("/n/%d", i), out)
	}
}

func TestEvaluateClearCache(t *testing.T) {
	e := NewEvaluator()

	out, err := e.Evaluate("{{a}}", Context{"a": "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", out)

	e.ClearCache()

	out, err = e.Evaluate("{{a}}", Context{"a": "2"})
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestEvaluateConcurrent(t *testing.T) {
	e := NewEvaluator()
	ctx := Context{"id": "v"}

	const workers = 32
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			out, err := e.Evaluate("/d/{{id}}", ctx)
			if err != nil {
				errCh <- err
				return
			}
			if out != "/d/v" {
				errCh <- fmt.Errorf("unexpected output %q", out)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}

func TestValidateTemplate(t *testing.T) {
	e := NewEvaluator()

	assert.NoError(t, e.ValidateTemplate("/a/{{b.c}}"))
	assert.NoError(t, e.ValidateTemplate("no placeholders"))
	assert.NoError(t, e.ValidateTemplate("/a/{{b|upper|limitTo:3}}"))
	assert.Error(t, e.ValidateTemplate("{{}}"))

	err := e.ValidateTemplate("{{a|nosuch}}")
	var malformed MalformedTemplateError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Reason, `unknown filter "nosuch"`)
}

func TestValidateTemplateSeesLaterRegistration(t *testing.T) {
	e := NewEvaluator()

	require.Error(t, e.ValidateTemplate("{{a|nosuch}}"))

	// A failed filter lookup must not stick to the cached parse.
	e.RegisterFilter("nosuch", func(v any, args ...string) (any, error) {
		return v, nil
	})
	assert.NoError(t, e.ValidateTemplate("{{a|nosuch}}"))

	out, err := e.Evaluate("{{a|nosuch}}", Context{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRegisterFilter(t *testing.T) {
	e := NewEvaluator(WithFilter("reverse", func(v any, args ...string) (any, error) {
		runes := []rune(fmt.Sprint(v))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	}))

	out, err := e.Evaluate("{{a|reverse}}", Context{"a": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "cba", out)

	e.RegisterFilter("shout", func(v any, args ...string) (any, error) {
		return strings.ToUpper(fmt.Sprint(v)) + "!", nil
	})

	out, err = e.Evaluate("{{a|shout}}", Context{"a": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "HEY!", out)
}
