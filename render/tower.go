// Package render draws Tower snapshots as PNG images for Discord attachments.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"skyrush/games/tower"
)

const (
	tileW   = 72
	tileH   = 36
	gap     = 6
	margin  = 16
	labelW  = 64
	headerH = 44
	footerH = 32
)

var (
	background = color.RGBA{0x0B, 0x14, 0x1F, 0xFF}
	hiddenTile = color.RGBA{0x1E, 0x2A, 0x38, 0xFF}
	activeTile = color.RGBA{0x2C, 0x3E, 0x50, 0xFF}
	safeTile   = color.RGBA{0x14, 0x3D, 0x34, 0xFF}
	unsafeTile = color.RGBA{0x4A, 0x16, 0x1B, 0xFF}
	gem        = color.RGBA{0x00, 0xE5, 0xA8, 0xFF}
	dragon     = color.RGBA{0xE7, 0x4C, 0x3C, 0xFF}
	accent     = color.RGBA{0xF1, 0xC4, 0x0F, 0xFF}
	ink        = color.RGBA{0xE8, 0xF1, 0xF2, 0xFF}
)

// Size returns the pixel dimensions of every rendered board.
func Size() (int, int) {
	w := margin*2 + labelW + tower.Columns*tileW + (tower.Columns-1)*gap
	h := margin*2 + headerH + footerH + tower.Rows*tileH + (tower.Rows-1)*gap
	return w, h
}

// Tower draws snap with row 0 at the bottom. Rows the snapshot does not reveal are
// drawn blank, so a running game never shows its future rows.
func Tower(snap tower.Snapshot, playerName string) ([]byte, error) {
	w, h := Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	header := fmt.Sprintf("TOWER  %s  bet %s", snap.Difficulty.Label(), snap.Bet.StringFixed(2))
	drawText(img, margin, margin+14, header, ink)
	drawText(img, margin, margin+32, playerName, accent)

	top := margin + headerH
	for r := 0; r < tower.Rows; r++ {
		y := top + (tower.Rows-1-r)*(tileH+gap)
		label := "x" + tower.MultiplierFor(snap.Difficulty, r+1).StringFixed(2)
		labelInk := ink
		if snap.Status == tower.StatusActive && r == snap.CurrentRow {
			labelInk = accent
		}
		drawText(img, margin, y+tileH/2+4, label, labelInk)

		row := snap.Rows[r]
		for c := 0; c < tower.Columns; c++ {
			x := margin + labelW + c*(tileW+gap)
			rect := image.Rect(x, y, x+tileW, y+tileH)
			switch {
			case row.Cells[c] == tower.CellSafe:
				fill(img, rect, safeTile)
				drawDiamond(img, rect, gem)
			case row.Cells[c] == tower.CellUnsafe:
				fill(img, rect, unsafeTile)
				drawDisc(img, rect, dragon)
			case snap.Status == tower.StatusActive && r == snap.CurrentRow:
				fill(img, rect, activeTile)
			default:
				fill(img, rect, hiddenTile)
			}
		}
	}

	drawText(img, margin, h-margin-8, footer(snap), ink)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode tower image: %w", err)
	}
	return buf.Bytes(), nil
}

func footer(snap tower.Snapshot) string {
	switch snap.Status {
	case tower.StatusChoosing:
		return "Pick a difficulty to begin"
	case tower.StatusLost:
		return "The dragon got you. Stake lost."
	case tower.StatusCashedOut:
		return fmt.Sprintf("Cashed out x%s for %s", snap.Multiplier.StringFixed(2), snap.Winnings.StringFixed(2))
	}
	if snap.CurrentRow >= tower.Rows {
		return fmt.Sprintf("Top reached at x%s. Cash out!", snap.Multiplier.StringFixed(2))
	}
	return fmt.Sprintf("Row %d/%d  current x%s  next x%s",
		snap.CurrentRow+1, tower.Rows, snap.Multiplier.StringFixed(2), snap.NextMultiplier.StringFixed(2))
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawDiamond fills a rhombus centered in r.
func drawDiamond(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	cx, cy := (r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2
	half := r.Dy()/2 - 6
	for dy := -half; dy <= half; dy++ {
		span := half - abs(dy)
		for dx := -span; dx <= span; dx++ {
			img.SetRGBA(cx+dx, cy+dy, c)
		}
	}
}

// drawDisc fills a circle centered in r.
func drawDisc(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	cx, cy := (r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2
	rad := r.Dy()/2 - 7
	for dy := -rad; dy <= rad; dy++ {
		for dx := -rad; dx <= rad; dx++ {
			if dx*dx+dy*dy <= rad*rad {
				img.SetRGBA(cx+dx, cy+dy, c)
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
