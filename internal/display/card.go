// Package display renders the "now playing" card shown on the front-panel
// TFT and served as a PNG by the API.
package display

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

// Default card size matches the 320x240 ILI9341 panel in landscape.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
)

// Character cell of basicfont.Face7x13.
const (
	cw = 7
	ch = 13
)

var (
	background = color.RGBA{16, 16, 16, 255}
	headerBg   = color.RGBA{40, 40, 40, 255}
	white      = color.RGBA{255, 255, 255, 255}
	yellow     = color.RGBA{255, 255, 0, 255}
	lightGray  = color.RGBA{153, 153, 153, 255}
	green      = color.RGBA{0, 200, 0, 255}
	red        = color.RGBA{230, 40, 40, 255}
)

// Card renders playback snapshots. The zero value renders at the default size.
type Card struct {
	Width   int
	Height  int
	Station string
}

func (c Card) size() (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Render draws st into a new image.
func (c Card) Render(st models.PlaybackState) *image.RGBA {
	w, h := c.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	// Header bar with the station name
	draw.Draw(img, image.Rect(0, 0, w, 2*ch), &image.Uniform{headerBg}, image.Point{}, draw.Src)
	station := c.Station
	if station == "" {
		station = models.DefaultStationName
	}
	maxChars := (w - 2*cw) / cw
	drawText(img, cw, ch+ch/2, truncate(station, maxChars), white)

	// Status indicator and word
	y := 3*ch + ch/2
	fillRect(img, cw, y-ch+3, cw, ch-3, StatusColor(st.Status))
	drawText(img, 3*cw, y, strings.ToUpper(string(st.Status)), lightGray)

	// Label at double size
	y += ch
	label := truncate(st.Label, (w-2*cw)/(2*cw))
	drawScaledText(img, cw, y, label, white, 2)
	y += 2*ch + ch

	if st.Artist != "" {
		drawText(img, cw, y, truncate(st.Artist, maxChars), yellow)
		y += ch + 2
	}
	if st.ScheduledShow != "" && st.ScheduledShow != st.Label {
		drawText(img, cw, y, truncate("On air: "+st.ScheduledShow, maxChars), lightGray)
		y += ch + 2
	}

	if st.Status == models.StatusError {
		y += ch / 2
		drawText(img, cw, y, "Stream unavailable. Listen at:", red)
		y += ch + 2
		for _, line := range wrap(st.FallbackURL, maxChars) {
			if y > h-2 {
				break
			}
			drawText(img, cw, y, line, yellow)
			y += ch
		}
	}
	return img
}

// WritePNG renders st and encodes it as PNG.
func (c Card) WritePNG(w io.Writer, st models.PlaybackState) error {
	return png.Encode(w, c.Render(st))
}

// StatusColor is the indicator colour for s.
func StatusColor(s models.Status) color.RGBA {
	switch s {
	case models.StatusPlaying:
		return green
	case models.StatusLoading:
		return yellow
	case models.StatusError:
		return red
	}
	return lightGray
}

func drawText(dst draw.Image, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// drawScaledText renders text at 1x and scales it up with nearest-neighbour
// so the bitmap font stays crisp. y is the baseline of the scaled text.
func drawScaledText(dst draw.Image, x, y int, text string, col color.Color, scale int) {
	if text == "" {
		return
	}
	width := font.MeasureString(basicfont.Face7x13, text).Ceil()
	src := image.NewRGBA(image.Rect(0, 0, width, ch))
	drawText(src, 0, basicfont.Face7x13.Ascent, text, col)

	top := y - basicfont.Face7x13.Ascent*scale
	r := image.Rect(x, top, x+width*scale, top+ch*scale)
	xdraw.NearestNeighbor.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
}

func fillRect(dst draw.Image, x, y, w, h int, col color.Color) {
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), &image.Uniform{col}, image.Point{}, draw.Src)
}

// truncate shortens s to at most n characters, marking the cut with "...".
// basicfont only has ASCII glyphs, so other runes are replaced.
func truncate(s string, n int) string {
	r := []rune(asciiOnly(s))
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// wrap splits s into lines of at most n characters. URLs have no spaces
// so lines are cut hard.
func wrap(s string, n int) []string {
	s = asciiOnly(s)
	if s == "" || n <= 0 {
		return nil
	}
	var lines []string
	for len(s) > n {
		lines = append(lines, s[:n])
		s = s[n:]
	}
	return append(lines, s)
}

func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, s)
}
