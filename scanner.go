package templator

// FindPlaceholders returns every placeholder token in text, in order of
// appearance and without deduplication. Tokens are returned as written,
// either "$NAME" or "${NAME}". An escaped dollar ("$$") never starts a
// placeholder.
func FindPlaceholders(text string) []string {
	var found []string

	for i := 0; i < len(text); {
		if text[i] != '$' {
			i++
			continue
		}

		if isEscape(text, i) {
			i += 2
			continue
		}

		_, end, ok := placeholderAt(text, i)
		if !ok {
			i++
			continue
		}

		found = append(found, text[i:end])
		i = end
	}

	return found
}

// isEscape reports whether text[i:] starts with "$$".
func isEscape(text string, i int) bool {
	return i+1 < len(text) && text[i] == '$' && text[i+1] == '$'
}

// placeholderAt parses the placeholder starting at text[i], which must be
// a '$'. It returns the variable name and the index just past the token.
func placeholderAt(text string, i int) (name string, end int, ok bool) {
	start := i + 1
	if start >= len(text) {
		return "", 0, false
	}

	// ${NAME}
	if text[start] == '{' {
		n := nameLen(text[start+1:])
		if n == 0 {
			return "", 0, false
		}
		closing := start + 1 + n
		if closing >= len(text) || text[closing] != '}' {
			return "", 0, false
		}
		return text[start+1 : closing], closing + 1, true
	}

	// $NAME
	n := nameLen(text[start:])
	if n == 0 {
		return "", 0, false
	}

	return text[start : start+n], start + n, true
}

// nameLen returns the length of the identifier at the beginning of s,
// or 0 when s does not start with one.
func nameLen(s string) int {
	if len(s) == 0 || !isNameStart(s[0]) {
		return 0
	}

	n := 1
	for n < len(s) && isNameChar(s[n]) {
		n++
	}

	return n
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
