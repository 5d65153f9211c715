package oracle

import "strings"

const (
	fence         = "```"
	maxCandidates = 8
)

// cleanJSONResponse removes the outer markdown code fence and trims surrounding
// prose down to the first JSON object or array.
func cleanJSONResponse(response string) string {
	candidates := jsonCandidates(response)
	if len(candidates) == 0 {
		return strings.TrimSpace(removeMarkdownCodeBlocks(response))
	}
	return candidates[0]
}

// jsonCandidates returns the top-level bracket delimited values of response in
// order, so a bracket in leading prose does not hide the answer.
func jsonCandidates(response string) []string {
	s := removeMarkdownCodeBlocks(response)

	var candidates []string
	offset := 0
	for len(candidates) < maxCandidates {
		start := strings.IndexAny(s[offset:], "{[")
		if start < 0 {
			break
		}
		start += offset

		value := s[start:]
		end := findJSONEnd(value)
		if end < 0 {
			// unbalanced: the rest of the text is the last candidate
			candidates = append(candidates, value)
			break
		}
		candidates = append(candidates, value[:end+1])
		offset = start + end + 1
	}
	return candidates
}

// removeMarkdownCodeBlocks strips only the outer fence pair: an opening fence
// before the first bracket (with its language tag) and a closing fence after the
// last bracket. Fences inside the JSON value are kept.
func removeMarkdownCodeBlocks(s string) string {
	firstBracket := strings.IndexAny(s, "{[")
	if open := strings.Index(s, fence); open >= 0 && (firstBracket < 0 || open < firstBracket) {
		rest := s[open+len(fence):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimLeft(rest, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-")
		}
		s = s[:open] + rest
	}

	lastBracket := strings.LastIndexAny(s, "}]")
	if closeIdx := strings.LastIndex(s, fence); closeIdx >= 0 && closeIdx > lastBracket {
		s = s[:closeIdx]
	}
	return s
}

// findJSONEnd returns the index of the bracket closing the value that starts at s[0]
func findJSONEnd(s string) int {
	depth := 0
	inString := false
	escape := false

	for i, c := range s {
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
