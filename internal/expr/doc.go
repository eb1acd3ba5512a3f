// Package expr implements the constrained path-expression language used by
// URL templates.
//
// A path selects a value out of a generic key-value tree using dotted and
// bracket accessors only. There are no operators or function calls; a path
// cannot execute code.
//
// Grammar:
//
//	path     := ident accessor*
//	accessor := '.' ident | '[' index ']'
//	index    := integer | single- or double-quoted string
//	ident    := [A-Za-z_$][A-Za-z0-9_$]*
//
// Example usage:
//
//	path, err := expr.Parse("user.tags[0]")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	root := map[string]any{
//	    "user": map[string]any{
//	        "tags": []string{"admin", "beta"},
//	    },
//	}
//
//	v, ok := path.Eval(root) // "admin", true
//
// Supported tree nodes:
//   - map[string]any, map[string]string - addressed by ident or quoted index
//   - map[string][]string and url.Values - addressed by ident or quoted index
//   - []any, []string - addressed by integer index
//
// An absent key, an out-of-range index or a traversal into any other value
// resolves to undefined (ok == false). A present nil value is defined.
package expr
