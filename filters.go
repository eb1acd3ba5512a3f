package urlnav

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FilterFunc transforms a resolved placeholder value. Filters run in
// pipeline order; args come from the colon-separated suffix of the filter
// expression, with one level of surrounding quotes stripped.
type FilterFunc func(value any, args ...string) (any, error)

// builtinFilters returns the default filter registry.
func builtinFilters() map[string]FilterFunc {
	filters := map[string]FilterFunc{
		"upper":   filterUpper,
		"lower":   filterLower,
		"trim":    filterTrim,
		"default": filterDefault,
		"limitTo": filterLimitTo,
		"json":    filterJSON,
	}

	// Long-form aliases.
	filters["uppercase"] = filters["upper"]
	filters["lowercase"] = filters["lower"]

	return filters
}

// filterUpper converts the value to uppercase.
func filterUpper(value any, args ...string) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("upper takes no arguments")
	}
	return strings.ToUpper(stringify(value)), nil
}

// filterLower converts the value to lowercase.
func filterLower(value any, args ...string) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("lower takes no arguments")
	}
	return strings.ToLower(stringify(value)), nil
}

// filterTrim trims surrounding whitespace.
func filterTrim(value any, args ...string) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("trim takes no arguments")
	}
	return strings.TrimSpace(stringify(value)), nil
}

// filterDefault substitutes its argument when the value renders empty.
func filterDefault(value any, args ...string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("default takes exactly one argument")
	}
	if stringify(value) == "" {
		return args[0], nil
	}
	return value, nil
}

// filterLimitTo keeps the first n runes of the value, or the last n when
// the argument is negative.
func filterLimitTo(value any, args ...string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("limitTo takes exactly one argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("limitTo argument %q is not an integer", args[0])
	}

	runes := []rune(stringify(value))
	if n >= 0 {
		if n > len(runes) {
			n = len(runes)
		}
		return string(runes[:n]), nil
	}
	n = -n
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[len(runes)-n:]), nil
}

// filterJSON renders the value as JSON.
func filterJSON(value any, args ...string) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("json takes no arguments")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return string(data), nil
}
