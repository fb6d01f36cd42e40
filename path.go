// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package subdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Path vocabulary used by the data structures.
//
// Index paths are only stable between a read and the next successful mutation of the
// same document. TailPath is resolved by the store against the array length at
// evaluation time.
const (
	// RootPath addresses the whole document
	RootPath = ""

	// HeadPath addresses the first element of a root array
	HeadPath = "[0]"

	// TailPath addresses the last element of a root array
	TailPath = "[-1]"
)

// MaxPathLength is the maximum accepted length of a path expression
const MaxPathLength = 1024

// IndexPath returns the path of the i-th element of a root array.
// Negative indices count from the end ([-1] is the last element).
func IndexPath(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// KeyPath returns the path of a top-level key in a root object, quoting it with
// backticks when it contains path syntax.
func KeyPath(key string) string {
	if !strings.ContainsAny(key, ".[]`") {
		return key
	}
	return "`" + strings.ReplaceAll(key, "`", "``") + "`"
}

// pathElem is one step of a parsed path: either an object key or an array index
type pathElem struct {
	key     string
	index   int
	isIndex bool
}

func (e pathElem) String() string {
	if e.isIndex {
		return IndexPath(e.index)
	}
	return KeyPath(e.key)
}

// parsePath splits a path expression into elements.
//
// Grammar: elem ( "." key | "[" int "]" )*, where a key is either bare (no '.', '[',
// ']' or '`') or backtick-quoted with doubled backticks for a literal one. The empty
// string is the root and yields no elements.
func parsePath(path string) ([]pathElem, error) {
	if path == RootPath {
		return nil, nil
	}
	if len(path) > MaxPathLength {
		return nil, fmt.Errorf("%w: exceeds maximum length of %d characters", ErrInvalidPath, MaxPathLength)
	}

	var elems []pathElem
	i := 0
	expectKey := true
	for i < len(path) {
		switch path[i] {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index in %q", ErrInvalidPath, path)
			}
			idx, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, path[i+1:i+end], path)
			}
			elems = append(elems, pathElem{index: idx, isIndex: true})
			i += end + 1
			expectKey = false
		case '.':
			if expectKey {
				return nil, fmt.Errorf("%w: empty key in %q", ErrInvalidPath, path)
			}
			i++
			expectKey = true
			if i == len(path) {
				return nil, fmt.Errorf("%w: trailing '.' in %q", ErrInvalidPath, path)
			}
		case '`':
			if !expectKey {
				return nil, fmt.Errorf("%w: missing '.' before key in %q", ErrInvalidPath, path)
			}
			key, n, err := parseQuotedKey(path[i:])
			if err != nil {
				return nil, fmt.Errorf("%w: %s in %q", ErrInvalidPath, err.Error(), path)
			}
			elems = append(elems, pathElem{key: key})
			i += n
			expectKey = false
		case ']':
			return nil, fmt.Errorf("%w: unexpected ']' in %q", ErrInvalidPath, path)
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: missing '.' before key in %q", ErrInvalidPath, path)
			}
			end := i
			for end < len(path) && path[end] != '.' && path[end] != '[' && path[end] != ']' && path[end] != '`' {
				end++
			}
			elems = append(elems, pathElem{key: path[i:end]})
			i = end
			expectKey = false
		}
	}
	return elems, nil
}

// parseQuotedKey reads a backtick-quoted key and returns it with the bytes consumed
func parseQuotedKey(s string) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		if s[i] == '`' {
			if i+1 < len(s) && s[i+1] == '`' {
				b.WriteByte('`')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(s[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted key")
}

// joinPath renders elements back into a path expression
func joinPath(elems []pathElem) string {
	var b strings.Builder
	for i, e := range elems {
		if !e.isIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.String())
	}
	return b.String()
}

// gjsonEscaper escapes characters that carry meaning in gjson/sjson path syntax
var gjsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`!`, `\!`,
	`=`, `\=`,
	`<`, `\<`,
	`>`, `\>`,
	`%`, `\%`,
)

// gjsonPath converts resolved elements (non-negative indices) into a gjson/sjson path
func gjsonPath(elems []pathElem) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.isIndex {
			parts[i] = strconv.Itoa(e.index)
		} else {
			parts[i] = gjsonEscaper.Replace(e.key)
		}
	}
	return strings.Join(parts, ".")
}
