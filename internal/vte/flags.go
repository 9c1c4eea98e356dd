package vte

import "github.com/raibid-labs/scarabd/internal/gridcell"

const (
	flagBold          = uint8(gridcell.FlagBold)
	flagItalic        = uint8(gridcell.FlagItalic)
	flagUnderline     = uint8(gridcell.FlagUnderline)
	flagReverse       = uint8(gridcell.FlagReverse)
	flagStrikethrough = uint8(gridcell.FlagStrikethrough)
	flagDim           = uint8(gridcell.FlagDim)
	flagBlink         = uint8(gridcell.FlagBlink)
	flagHidden        = uint8(gridcell.FlagHidden)
)
