package structure

import (
	"math"
	"strings"
)

const (
	DefaultFontFamily = "Calibri"
	DefaultFontSizePt = 12.0
)

// Style is the resolved font of a section.
type Style struct {
	FontFamily string
	SizePt     float64
}

// Resolve applies the default font and size to whatever hints s lacks.
func Resolve(s Section) Style {
	st := Style{FontFamily: strings.TrimSpace(s.FontFamily), SizePt: s.FontSize}
	if st.FontFamily == "" {
		st.FontFamily = DefaultFontFamily
	}
	if st.SizePt <= 0 || math.IsNaN(st.SizePt) {
		st.SizePt = DefaultFontSizePt
	}
	return st
}

// HalfPoints is the size in the half-point units OOXML run properties use.
func (st Style) HalfPoints() int {
	return int(math.Round(st.SizePt * 2))
}
