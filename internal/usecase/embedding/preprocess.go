package embedding

import "strings"

// Normalize collapses whitespace runs, trims, and caps text at maxRunes (0 = no cap).
func Normalize(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxRunes > 0 {
		if r := []rune(text); len(r) > maxRunes {
			text = string(r[:maxRunes])
		}
	}
	return text
}
