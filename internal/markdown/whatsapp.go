package markdown

import "strings"

const (
	annotationOpen  = "【"
	annotationClose = "】"
	boldMarker      = "**"
)

// NormalizeWhatsApp rewrites assistant output into WhatsApp's text style:
// it removes 【...】 citation annotations, trims the result and collapses
// **bold** into WhatsApp's *bold*. Tables are left alone; see ConvertTables.
//
// Delimiters are matched first-open to first-close on the same line and
// never nest. Unmatched delimiters are left in place.
func NormalizeWhatsApp(text string) string {
	return CollapseBold(strings.TrimSpace(StripAnnotations(text)))
}

// StripAnnotations removes every 【...】 segment, including the brackets.
func StripAnnotations(text string) string {
	if !strings.Contains(text, annotationOpen) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		open := strings.Index(rest, annotationOpen)
		if open < 0 {
			break
		}
		body := rest[open+len(annotationOpen):]
		end, ok := findOnLine(body, annotationClose)
		if !ok {
			// Keep this opener and look for the next one.
			b.WriteString(rest[:open+len(annotationOpen)])
			rest = body
			continue
		}
		b.WriteString(rest[:open])
		rest = body[end+len(annotationClose):]
	}
	b.WriteString(rest)
	return b.String()
}

// CollapseBold rewrites each **X** span as *X*. Spans are matched from the
// first ** to the next ** on the same line; X may be empty.
func CollapseBold(text string) string {
	if !strings.Contains(text, boldMarker) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		if !strings.HasPrefix(text[i:], boldMarker) {
			b.WriteByte(text[i])
			i++
			continue
		}
		inner := text[i+len(boldMarker):]
		end, ok := findOnLine(inner, boldMarker)
		if !ok {
			b.WriteByte(text[i])
			i++
			continue
		}
		b.WriteByte('*')
		b.WriteString(inner[:end])
		b.WriteByte('*')
		i += len(boldMarker) + end + len(boldMarker)
	}
	return b.String()
}

// findOnLine returns the index of sep in s when it occurs before the first
// newline.
func findOnLine(s, sep string) (int, bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return -1, false
	}
	if nl := strings.IndexByte(s[:idx], '\n'); nl >= 0 {
		return -1, false
	}
	return idx, true
}
