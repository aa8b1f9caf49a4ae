package textproc

// Truncate cuts s to at most max runes, never splitting a multi-byte
// character.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
