package ui

import "github.com/gdamore/tcell/v2"

// MenuColors is the palette shared by the setup form and the history browser.
var MenuColors = struct {
	Border      tcell.Color
	Title       tcell.Color
	Label       tcell.Color
	Hint        tcell.Color
	ButtonBG    tcell.Color
	ButtonFocus tcell.Color
	ButtonText  tcell.Color
	FieldBG     tcell.Color
}{
	Border:      tcell.PaletteColor(94),  // walnut
	Title:       tcell.PaletteColor(223), // parchment
	Label:       tcell.PaletteColor(250),
	Hint:        tcell.PaletteColor(245),
	ButtonBG:    tcell.PaletteColor(94),
	ButtonFocus: tcell.PaletteColor(137), // light oak
	ButtonText:  tcell.PaletteColor(255),
	FieldBG:     tcell.PaletteColor(236),
}
