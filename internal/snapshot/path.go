package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PathSeparator joins the segments of a path key.
const PathSeparator = "."

// ErrPathNotFound is returned when a path key does not resolve in a snapshot.
var ErrPathNotFound = errors.New("path not found")

// JoinPath appends one key or index segment to a parent path key. Segments
// are not escaped, so a key containing the separator can produce the same
// path key as a nested key ({"a.b": ...} and {"a": {"b": ...}} both give
// "a.b"). Such nodes share expand state and search identity.
func JoinPath(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + PathSeparator + segment
}

// IndexSegment formats a sequence index as a path segment.
func IndexSegment(i int) string { return strconv.Itoa(i) }

// SplitPath splits a path key into its segments. The empty path has none.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// ParentPath returns the path key of the parent node, or "" at top level.
// Keys that themselves contain the separator make this ambiguous; callers
// that hold the rendered tree should prefer its parent links.
func ParentPath(path string) string {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Lookup resolves path against root. Mapping segments match keys exactly,
// sequence segments must be decimal indices. The empty path returns root.
// A mapping key containing the separator is matched by joining consecutive
// segments when the single segment is not a key.
func Lookup(root Value, path string) (Value, error) {
	if path == "" {
		return root, nil
	}
	if v, ok := lookup(root, SplitPath(path)); ok {
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrPathNotFound, path)
}

func lookup(cur Value, segs []string) (Value, bool) {
	if len(segs) == 0 {
		return cur, true
	}
	switch cur.Kind() {
	case Mapping:
		for n := 1; n <= len(segs); n++ {
			key := strings.Join(segs[:n], PathSeparator)
			next, ok := cur.Get(key)
			if !ok {
				continue
			}
			if v, found := lookup(next, segs[n:]); found {
				return v, true
			}
		}
	case Sequence:
		i, err := strconv.Atoi(segs[0])
		if err != nil || IndexSegment(i) != segs[0] {
			return Value{}, false
		}
		if next, ok := cur.Index(i); ok {
			return lookup(next, segs[1:])
		}
	}
	return Value{}, false
}
