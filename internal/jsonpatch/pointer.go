// File: internal/jsonpatch/pointer.go
// Brief: RFC 6901 pointer encoding for patch operation paths.

package jsonpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// pointer escaping per RFC 6901. The replacer substitutes both reserved
// characters in a single pass over the token, so a literal "~" never gets
// re-escaped into the "~1" it may sit next to.
var (
	escapeToken   = strings.NewReplacer("~", "~0", "/", "~1")
	unescapeToken = strings.NewReplacer("~1", "/", "~0", "~")
)

// EncodePointer renders raw path tokens (string keys and int indices from a
// document walk) as one JSON Pointer string. An empty token list encodes the
// document root as "/".
func EncodePointer(tokens []any) string {
	if len(tokens) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, token := range tokens {
		b.WriteByte('/')
		b.WriteString(escapeToken.Replace(stringifyToken(token)))
	}
	return b.String()
}

// DecodePointer splits a pointer back into raw string tokens, reversing the
// EncodePointer escaping.
func DecodePointer(pointer string) ([]string, error) {
	if pointer == "" || pointer[0] != '/' {
		return nil, fmt.Errorf("invalid JSON pointer %q: must start with /", pointer)
	}
	if pointer == "/" {
		return nil, nil
	}
	parts := strings.Split(pointer[1:], "/")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		tokens[i] = unescapeToken.Replace(part)
	}
	return tokens, nil
}

func stringifyToken(token any) string {
	switch v := token.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
