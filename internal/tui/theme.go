package tui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TitleColor       tcell.Color
	SenderColor      tcell.Color
	OwnSenderColor   tcell.Color
	TimestampColor   tcell.Color
	DateHeaderColor  tcell.Color
	UnreadColor      tcell.Color
	OnlineColor      tcell.Color
	TypingColor      tcell.Color
	ErrorColor       tcell.Color
}

// DefaultTheme returns the dark theme used everywhere.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TitleColor:       tcell.ColorFuchsia,
		SenderColor:      tcell.ColorAqua,
		OwnSenderColor:   tcell.ColorOrange,
		TimestampColor:   tcell.ColorGray,
		DateHeaderColor:  tcell.ColorPapayaWhip,
		UnreadColor:      tcell.ColorOrange,
		OnlineColor:      tcell.ColorGreen,
		TypingColor:      tcell.ColorNavajoWhite,
		ErrorColor:       tcell.ColorOrangeRed,
	}
}
