package intake

// findArrayCandidates scans the input for top-level JSON array candidates,
// returned in the order they appear. Brackets inside string literals do
// not count toward nesting.
//
// Iterating bytes is safe for the ASCII delimiters ([, ], ", \) because
// UTF-8 never encodes them as part of a multi-byte sequence.
func findArrayCandidates(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// quotes only open a string once an array has started; prose
			// around the array may contain unbalanced quotes
			if depth > 0 {
				inString = true
			}
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}

// outermostBrackets returns the text from the first '[' to the last ']',
// or "" when there is no such pair.
func outermostBrackets(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	for j := len(s) - 1; j > start; j-- {
		if s[j] == ']' {
			return s[start : j+1]
		}
	}
	return ""
}
