package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/elijahnyp/house_hub/state"
	. "github.com/elijahnyp/house_hub/util"
	"github.com/gorilla/mux"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const (
	tileWidth  = 256
	tileHeight = 64
	tileBadge  = 48
)

var (
	tileBackground = color.RGBA{0x02, 0x06, 0x17, 0xff}
	tileText       = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// parseHexColor reads "#rrggbb". Anything else comes back as slate.
func parseHexColor(s string) color.RGBA {
	slate := color.RGBA{0x64, 0x74, 0x8b, 0xff}
	if len(s) != 7 || s[0] != '#' {
		return slate
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return slate
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}

func tileStatus(v DeviceView) string {
	if v.Type == state.TypeCoffeeMachine {
		if v.Activity > 0 {
			return fmt.Sprintf("Brewing %d%%", v.Activity)
		}
		return "Ready"
	}
	if v.State == "" {
		return "unknown"
	}
	return v.State
}

// RenderTile draws a small status tile: a badge in the icon color followed
// by the device label and its status.
func RenderTile(v DeviceView) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, tileWidth, tileHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(tileBackground), image.Point{}, draw.Src)

	pad := (tileHeight - tileBadge) / 2
	badge := image.Rect(pad, pad, pad+tileBadge, pad+tileBadge)
	draw.Draw(img, badge, image.NewUniform(parseHexColor(v.Icon.Color)), image.Point{}, draw.Src)

	label := v.Label
	if label == "" {
		label = v.ID
	}
	maxChars := (tileWidth - badge.Max.X - 2*pad) / 8
	lines := []string{truncate(label, maxChars), truncate(tileStatus(v), maxChars), truncate(v.Icon.Name, maxChars)}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(tileText),
		Face: inconsolata.Bold8x16,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{X: fixed.I(badge.Max.X + pad), Y: fixed.I(pad + 14 + i*17)}
		d.DrawString(line)
		d.Face = inconsolata.Regular8x16
	}
	return img
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return strings.TrimSpace(string(r[:n-1])) + "~"
}

func APITile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, ok := house.Device(vars["room"], vars["device"])
	if !ok {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, RenderTile(viewDevice(vars["room"], d))); err != nil {
		http.Error(w, "Error encoding image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		Logger.Error().Msgf("Error writing tile response: %v", err)
	}
}
