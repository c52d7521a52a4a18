package main

import (
	"bytes"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/elijahnyp/house_hub/state"
)

func TestParseHexColor(t *testing.T) {
	slate := color.RGBA{0x64, 0x74, 0x8b, 0xff}
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{state.ColorAmber, color.RGBA{0xfb, 0xbf, 0x24, 0xff}},
		{state.ColorSky, color.RGBA{0x0e, 0xa5, 0xe9, 0xff}},
		{state.ColorSlate, slate},
		{"fbbf24", slate},
		{"#zzzzzz", slate},
		{"", slate},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in); got != tt.want {
			t.Errorf("parseHexColor(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Kitchen", 10, "Kitchen"},
		{"Kitchen Light", 8, "Kitchen~"},
		{"Kitchen Light", 1, "K"},
		{"Kitchen", 0, ""},
		{"Küche", 5, "Küche"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestTileStatus(t *testing.T) {
	tests := []struct {
		view DeviceView
		want string
	}{
		{DeviceView{Device: state.Device{Type: state.TypeLight, State: "on"}}, "on"},
		{DeviceView{Device: state.Device{Type: state.TypeDoor}}, "unknown"},
		{DeviceView{Device: state.Device{Type: state.TypeCoffeeMachine, State: "off"}}, "Ready"},
		{DeviceView{Device: state.Device{Type: state.TypeCoffeeMachine, State: "off"}, Activity: 35}, "Brewing 35%"},
	}
	for _, tt := range tests {
		if got := tileStatus(tt.view); got != tt.want {
			t.Errorf("tileStatus(%+v) = %q, expected %q", tt.view, got, tt.want)
		}
	}
}

func TestRenderTile(t *testing.T) {
	v := DeviceView{
		Device: state.Device{ID: "light1", Type: state.TypeLight, State: "on", Label: "Kitchen Light"},
		Icon:   state.IconDetails{Name: "lightbulb", Color: state.ColorAmber},
	}
	img := RenderTile(v)

	b := img.Bounds()
	if b.Dx() != tileWidth || b.Dy() != tileHeight {
		t.Fatalf("tile is %dx%d, expected %dx%d", b.Dx(), b.Dy(), tileWidth, tileHeight)
	}
	if got := color.RGBAModel.Convert(img.At(tileHeight/2, tileHeight/2)); got != parseHexColor(state.ColorAmber) {
		t.Errorf("badge color = %v, expected amber", got)
	}
	if got := color.RGBAModel.Convert(img.At(tileWidth-1, tileHeight-1)); got != tileBackground {
		t.Errorf("corner color = %v, expected background", got)
	}
}

func TestAPITile(t *testing.T) {
	setupHouse(t)

	rr := serve(http.MethodGet, "/api/rooms/garage/devices/door/tile.png", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %s, expected image/png", ct)
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("tile is not a png: %v", err)
	}
	if img.Bounds().Dx() != tileWidth {
		t.Errorf("tile width = %d, expected %d", img.Bounds().Dx(), tileWidth)
	}

	if rr := serve(http.MethodGet, "/api/rooms/garage/devices/nope/tile.png", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
