// This helper library has been graciously donated by @shabbyrobe; i'll leave the rest of the
// preamble intact:

// Not-at-all novel terminal style copypasta, originally from
// https://raw.githubusercontent.com/shabbyrobe/golib/master/termfmt/termfmt.go
// Provided under an MIT license.
package termfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
)

// Depth is how many colours the terminal can show.
type Depth int32

const (
	Depth16 Depth = iota
	Depth256
	DepthRGB
)

var depth atomic.Int32

func init() {
	depth.Store(int32(DepthRGB))
}

// SetDepth picks the richest colour escape Fg styles will use.
func SetDepth(d Depth) { depth.Store(int32(d)) }

// DetectDepth guesses the colour depth from $COLORTERM and $TERM.
func DetectDepth(getenv func(string) string) Depth {
	switch ct := strings.ToLower(getenv("COLORTERM")); ct {
	case "truecolor", "24bit":
		return DepthRGB
	}
	if strings.Contains(getenv("TERM"), "256color") {
		return Depth256
	}
	return Depth16
}

type Escape interface {
	Wrap(out string) string
}

func Bold() Style                         { return (Style{}).Bold() }
func Italic() Style                       { return (Style{}).Italic() }
func Fg(r, g, b uint8, c16 C16Name) Style { return (Style{}).Fg(r, g, b, c16) }

// Style wraps a value in escapes when formatted.  Unprintable runes in the value are dropped.
type Style struct {
	escapes []Escape
	v       any
}

var _ fmt.Formatter = Style{}

func (c Style) With(escs ...Escape) Style {
	c.escapes = append(c.escapes[:len(c.escapes):len(c.escapes)], escs...)
	return c
}

func (c Style) Bold() Style   { return c.With(BoldEscape{}) }
func (c Style) Italic() Style { return c.With(ItalicEscape{}) }

func (c Style) Fg(r, g, b uint8, c16 C16Name) Style {
	return c.With(Colour{RGB: [3]uint8{r, g, b}, C256: RGBTo256(r, g, b), C16: c16})
}

func (c Style) V(v any) Style {
	c.v = v
	return c
}

func (c Style) Format(f fmt.State, verb rune) {
	v := printable(fmt.Sprintf(buildValueFormat(f, verb), c.v))
	for i := len(c.escapes) - 1; i >= 0; i-- {
		v = c.escapes[i].Wrap(v)
	}
	f.Write([]byte(v))
}

func RGBTo256(r, g, b uint8) uint8 {
	if r == g && g == b {
		if r < 8 {
			return 16
		}
		if r > 238 {
			return 231
		}
		return ((r - 8) / 10) + 232
	}
	scale := func(c uint8) uint8 { return uint8(math.Min(5, math.Floor(float64(c)/255.0*6.0))) }
	return 16 + 36*scale(r) + 6*scale(g) + scale(b)
}

func buildValueFormat(f fmt.State, verb rune) string {
	s := "%"
	for _, flag := range " +-0#" {
		if f.Flag(int(flag)) {
			s += string(flag)
		}
	}
	if width, ok := f.Width(); ok {
		s += strconv.Itoa(width)
	}
	if prec, ok := f.Precision(); ok {
		s += "." + strconv.Itoa(prec)
	}
	return s + string(verb)
}

type BoldEscape struct{}

func (BoldEscape) Wrap(v string) string { return "\x1b[1m" + v + "\x1b[0m" }

type ItalicEscape struct{}

func (ItalicEscape) Wrap(v string) string { return "\x1b[3m" + v + "\x1b[0m" }

type C16Name uint8

const (
	DefaultColor C16Name = iota

	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	LightGrey

	DarkGrey
	LightRed
	LightGreen
	LightYellow
	LightBlue
	LightMagenta
	LightCyan
	White
)

// Colour is a foreground colour in every depth; the current Depth decides which escape is used.
// https://github.com/termstandard/colors
type Colour struct {
	RGB  [3]uint8
	C256 uint8
	C16  C16Name
}

func (c Colour) Wrap(out string) string {
	switch Depth(depth.Load()) {
	case DepthRGB:
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", c.RGB[0], c.RGB[1], c.RGB[2], out)
	case Depth256:
		return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", c.C256, out)
	}

	cv := uint8(39)
	if c.C16 != DefaultColor {
		// The lower 8 colours run from 30 to 37, the upper 8 from 90 to 97.
		cv = uint8(c.C16) - 1 + 30
		if c.C16 >= DarkGrey {
			cv = uint8(c.C16-DarkGrey) + 90
		}
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", cv, out)
}

func printable(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) {
			return r
		}
		return -1
	}, v)
}
