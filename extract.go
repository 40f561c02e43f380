package toolapi

import (
	"strconv"
	"strings"
)

// Get extracts a nested Value by a slash-separated path. Numeric tokens index
// lists, all other tokens look up mapping keys. The empty path returns a deep
// copy of v itself, whatever its shape.
//
// Homogeneous collections can be indexed exactly once: their elements are
// leaves by construction, so a path that continues past them fails with
// ExtractTooMuchNesting. For bulk access, extract the whole TypedList or
// TypedDict instead of its elements one by one.
func Get(v Value, path string) (Value, error) {
	if path == "" {
		return v.Clone(), nil
	}
	return get(v, strings.Split(path, "/"))
}

func get(v Value, tokens []string) (Value, error) {
	if len(tokens) == 0 {
		return v.Clone(), nil
	}
	token, rest := tokens[0], tokens[1:]
	index, err := strconv.Atoi(token)
	numeric := err == nil

	switch val := v.(type) {
	case List:
		if !numeric {
			return nil, &ExtractionError{Kind: ExtractKeyForList, Token: token}
		}
		if index < 0 || index >= len(val) {
			return nil, &ExtractionError{Kind: ExtractIndexOutOfBounds, Token: token}
		}
		return get(val[index], rest)
	case Dict:
		if numeric {
			return nil, &ExtractionError{Kind: ExtractIndexForDict, Token: token}
		}
		elem, ok := val[token]
		if !ok {
			return nil, &ExtractionError{Kind: ExtractKeyNotFound, Token: token}
		}
		return get(elem, rest)
	case TypedList:
		if len(rest) > 0 {
			return nil, &ExtractionError{Kind: ExtractTooMuchNesting, Token: rest[0], Got: val.elem}
		}
		if !numeric {
			return nil, &ExtractionError{Kind: ExtractKeyForList, Token: token}
		}
		if index < 0 || index >= len(val.items) {
			return nil, &ExtractionError{Kind: ExtractIndexOutOfBounds, Token: token}
		}
		return val.items[index].Clone(), nil
	case TypedDict:
		if len(rest) > 0 {
			return nil, &ExtractionError{Kind: ExtractTooMuchNesting, Token: rest[0], Got: val.elem}
		}
		if numeric {
			return nil, &ExtractionError{Kind: ExtractIndexForDict, Token: token}
		}
		elem, ok := val.items[token]
		if !ok {
			return nil, &ExtractionError{Kind: ExtractKeyNotFound, Token: token}
		}
		return elem.Clone(), nil
	default:
		return nil, &ExtractionError{Kind: ExtractTooMuchNesting, Token: token, Got: v.Kind()}
	}
}

// Pop removes key from the dict and converts it to the requested Value type.
// The removal happens even when the conversion fails, matching the
// destructive consumption style tools use on their input.
func Pop[T Value](d ValueDict, key string) (T, error) {
	var zero T
	v, ok := d[key]
	if !ok {
		return zero, &ExtractionError{Kind: ExtractKeyNotFound, Token: key}
	}
	delete(d, key)
	t, ok := v.(T)
	if !ok {
		return zero, &ExtractionError{
			Kind:  ExtractTypeMismatch,
			Token: key,
			Want:  zero.Kind(),
			Got:   v.Kind(),
		}
	}
	return t, nil
}
