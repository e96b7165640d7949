package render

import (
	"bytes"
	"encoding/xml"
)

const (
	fontHeightRatio = 0.6
	fontWidthRatio  = 0.85
	fontCharWidth   = 0.55
	fontSizeMin     = 8.0
	fontSizeMax     = 96.0
)

// FontSize picks a font size that fits text of textLen characters into a
// box of the given size.
func FontSize(availWidth, availHeight float64, textLen int) float64 {
	n := max(1, textLen)
	byHeight := availHeight * fontHeightRatio
	byWidth := (availWidth * fontWidthRatio) / (float64(n) * fontCharWidth)
	return max(fontSizeMin, min(fontSizeMax, min(byHeight, byWidth)))
}

// TruncateLabel shortens label with ".." so that it fits width at the given
// font size.
func TruncateLabel(label string, width, fontSize float64) string {
	maxChars := max(3, int(width*fontWidthRatio/(fontSize*fontCharWidth)))
	if len(label) <= maxChars {
		return label
	}
	return label[:maxChars-2] + ".."
}

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
