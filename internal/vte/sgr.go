package vte

import "github.com/danielgatis/go-ansicode"

// SetTerminalCharAttribute applies one SGR attribute to the template used
// for subsequently written cells.
func (t *Terminal) SetTerminalCharAttribute(attr ansicode.TerminalCharAttribute) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := func(f uint8) { t.template.flags |= f }
	clear := func(f uint8) { t.template.flags &^= f }

	switch attr.Attr {
	case ansicode.CharAttributeReset:
		t.template = attrTemplate{fg: DefaultForeground, bg: DefaultBackground}

	case ansicode.CharAttributeBold:
		set(flagBold)
	case ansicode.CharAttributeDim:
		set(flagDim)
	case ansicode.CharAttributeItalic:
		set(flagItalic)
	case ansicode.CharAttributeUnderline,
		ansicode.CharAttributeDoubleUnderline,
		ansicode.CharAttributeCurlyUnderline,
		ansicode.CharAttributeDottedUnderline,
		ansicode.CharAttributeDashedUnderline:
		// All underline variants collapse to one flag bit; the shared
		// display region does not distinguish underline styles.
		set(flagUnderline)
	case ansicode.CharAttributeBlinkSlow, ansicode.CharAttributeBlinkFast:
		set(flagBlink)
	case ansicode.CharAttributeReverse:
		set(flagReverse)
	case ansicode.CharAttributeHidden:
		set(flagHidden)
	case ansicode.CharAttributeStrike:
		set(flagStrikethrough)

	case ansicode.CharAttributeCancelBold:
		clear(flagBold)
	case ansicode.CharAttributeCancelBoldDim:
		clear(flagBold | flagDim)
	case ansicode.CharAttributeCancelItalic:
		clear(flagItalic)
	case ansicode.CharAttributeCancelUnderline:
		clear(flagUnderline)
	case ansicode.CharAttributeCancelBlink:
		clear(flagBlink)
	case ansicode.CharAttributeCancelReverse:
		clear(flagReverse)
	case ansicode.CharAttributeCancelHidden:
		clear(flagHidden)
	case ansicode.CharAttributeCancelStrike:
		clear(flagStrikethrough)

	case ansicode.CharAttributeForeground:
		t.template.fg = t.resolveColor(attr, true)
	case ansicode.CharAttributeBackground:
		t.template.bg = t.resolveColor(attr, false)

	case ansicode.CharAttributeUnderlineColor:
		// The packed Cell carries one fg and one bg; a distinct underline
		// color has no home in the shared display region and is dropped.
	}
}

// resolveColor turns an SGR color attribute into a packed 0xRRGGBBAA
// value, falling back to the theme default when no explicit color was
// given.
func (t *Terminal) resolveColor(attr ansicode.TerminalCharAttribute, fg bool) uint32 {
	switch {
	case attr.RGBColor != nil:
		return packRGBA(attr.RGBColor.R, attr.RGBColor.G, attr.RGBColor.B, 0xff)
	case attr.IndexedColor != nil:
		return t.paletteColorLocked(int(attr.IndexedColor.Index), fg)
	case attr.NamedColor != nil:
		return t.resolveNamedColor(int(*attr.NamedColor), fg)
	default:
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}
}

func (t *Terminal) resolveNamedColor(name int, fg bool) uint32 {
	switch {
	case name >= 0 && name < 16:
		return DefaultPalette[name]
	case name >= 259 && name <= 266:
		return dim(DefaultPalette[name-259])
	default:
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}
}
