// Package timeexpr extracts and normalizes informal time expressions found in
// customer utterances. It is a best-effort heuristic, not a parser: first
// match wins, unparseable tokens pass through so downstream string-equality
// comparisons simply fail to match.
package timeexpr

import (
	"fmt"
	"strconv"
	"strings"
)

var triggerWords = map[string]bool{"at": true, "for": true, "around": true}

// Normalize converts an informal time token into the canonical
// "H[:MM] AM/PM" form. It is total: anything it cannot interpret comes back
// uppercased and trimmed, unchanged otherwise.
func Normalize(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = strings.ReplaceAll(token, ".", "")
	token = strings.ReplaceAll(token, "  ", " ")

	if hasMeridiem(token) {
		token = strings.ReplaceAll(token, " am", "am")
		token = strings.ReplaceAll(token, " pm", "pm")
		hours := strings.ReplaceAll(token, "am", "")
		hours = strings.TrimSpace(strings.ReplaceAll(hours, "pm", ""))
		if !strings.Contains(hours, ":") {
			hours += ":00"
		}
		if strings.Contains(token, "am") {
			return hours + " AM"
		}
		return hours + " PM"
	}

	if isDigits(token) {
		hour, err := strconv.Atoi(token)
		if err == nil {
			// Bare digits read as a 24-style hour. Values >= 24 come out
			// nonsensical but deterministic; callers just fail to match.
			switch {
			case hour < 12:
				return fmt.Sprintf("%d:00 AM", hour)
			case hour == 12:
				return "12:00 PM"
			default:
				return fmt.Sprintf("%d:00 PM", hour-12)
			}
		}
	}

	return strings.ToUpper(token)
}

// Extract scans an utterance left to right for a time expression and returns
// it normalized. The second return is false when nothing looked like a time.
func Extract(utterance string) (string, bool) {
	words := strings.Fields(strings.ToLower(utterance))
	for i, word := range words {
		if hasMeridiem(word) {
			return Normalize(word), true
		}
		if triggerWords[word] && i+1 < len(words) {
			next := words[i+1]
			stripped := strings.ReplaceAll(strings.ReplaceAll(next, ":", ""), ".", "")
			if !isDigits(stripped) {
				continue
			}
			if i+2 < len(words) && hasMeridiem(words[i+2]) {
				return Normalize(next + " " + words[i+2]), true
			}
			return Normalize(next), true
		}
	}
	return "", false
}

func hasMeridiem(word string) bool {
	return strings.Contains(word, "am") || strings.Contains(word, "pm")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
