package charsink

// Color is one of the sixteen colors a CharSink can paint text-cell
// foreground or background with.
type Color uint8

// The sixteen predefined colors a CharSink must support.
const (
	Black Color = iota
	White
	DarkGrey
	LightGrey
	DarkRed
	LightRed
	DarkGreen
	LightGreen
	DarkBlue
	LightBlue
	DarkCyan
	LightCyan
	Magenta
	Pink
	Brown
	Yellow
)

// CharSink is the raw character-cell display the core writes diagnostics to.
type CharSink interface {
	// Put writes a single character to the display.
	Put(c byte)

	// Tab advances to the next tab stop.
	Tab()

	// NewLine moves to the start of the next line.
	NewLine()

	// Clear erases the display.
	Clear()

	// Reset returns the display to its power-on state, discarding any
	// pending output.
	Reset()

	// SetForeground sets the color of characters subsequently written.
	SetForeground(c Color)

	// SetBackground sets the color cells are painted with before a
	// character is drawn.
	SetBackground(c Color)
}
