package main

import (
	"fmt"
	"io"

	"github.com/elijahnyp/house_hub/state"
	"github.com/fatih/color"
)

var iconColors = map[string]*color.Color{
	state.ColorAmber:  color.New(color.FgYellow, color.Bold),
	state.ColorSky:    color.New(color.FgCyan, color.Bold),
	state.ColorPurple: color.New(color.FgMagenta, color.Bold),
	state.ColorSlate:  color.New(color.FgHiBlack),
}

// printHouse writes the rooms and devices, each device colored like its
// icon.
func printHouse(w io.Writer, rooms []RoomView) {
	for _, room := range rooms {
		name := room.Name
		if name == "" {
			name = room.ID
		}
		fmt.Fprintf(w, "%s (%s) - %d device(s)\n", name, room.ID, len(room.Devices))
		for _, d := range room.Devices {
			c, ok := iconColors[d.Icon.Color]
			if !ok {
				c = iconColors[state.ColorSlate]
			}
			label := d.Label
			if label == "" {
				label = d.ID
			}
			c.Fprintf(w, "  %-24s %-16s %-8s %s\n", label, d.Type, tileStatus(d), d.Icon.Name)
		}
	}
}
