package layout

// Constraints holds the computed layout constraints for all components. The screen
// is a vertical stack: header, console, input bar, menu and error box.
type Constraints struct {
	// Terminal dimensions
	TerminalWidth  int
	TerminalHeight int

	// Computed mode
	Mode LayoutMode

	// Component dimensions (computed)
	HeaderHeight  int
	HeaderGap     int
	ConsoleWidth  int
	ConsoleHeight int
	InputWidth    int
	InputHeight   int
	MenuWidth     int
	MenuHeight    int
	ErrBoxWidth   int
	ErrBoxHeight  int
	OverlayWidth  int
	OverlayHeight int

	// Layout flags
	ShowMinWarning bool // Terminal is below minimum size
}

// ComputeConstraints calculates layout constraints for the given terminal
// dimensions. promptPending grows the input bar by the prompt line.
func ComputeConstraints(width, height int, promptPending bool) Constraints {
	c := Constraints{
		TerminalWidth:  width,
		TerminalHeight: height,
	}

	// 1. Determine layout mode
	c.Mode = DetermineMode(width, height)

	// 2. Check for minimum size violation
	if width < MinWidth || height < MinHeight {
		c.ShowMinWarning = true
		// Still compute basic layout for partial display
	}

	// 3. Fixed rows
	c.HeaderHeight = HeaderHeight
	if c.Mode == LayoutFull || c.Mode == LayoutStandard {
		c.HeaderGap = HeaderGap
	}
	c.InputHeight = InputHeight
	if promptPending {
		c.InputHeight = InputPromptHeight
	}
	c.InputWidth = width
	c.MenuHeight = computeMenuHeight(c.Mode)
	c.MenuWidth = width
	c.ErrBoxHeight = ErrBoxHeight
	c.ErrBoxWidth = width

	// 4. The console takes what is left
	c.ConsoleWidth = max(width, 1)
	fixed := c.HeaderHeight + c.HeaderGap + c.InputHeight + c.MenuHeight + c.ErrBoxHeight
	c.ConsoleHeight = max(height-fixed, ConsoleMinHeight)

	// 5. Welcome screen box
	c.OverlayWidth, c.OverlayHeight = ComputeOverlaySize(width, height, OverlayMaxWidth, OverlayMaxHeight)

	return c
}

// PtySize returns the terminal size to give the child: the console without its
// border.
func (c Constraints) PtySize() (rows, cols uint16) {
	return uint16(max(c.ConsoleHeight-2, 1)), uint16(max(c.ConsoleWidth-2, 1))
}

// computeMenuHeight calculates the menu height based on mode.
func computeMenuHeight(mode LayoutMode) int {
	switch mode {
	case LayoutFull:
		return MenuMaxHeight
	case LayoutStandard:
		return MenuStandardHeight
	default:
		return MenuMinHeight
	}
}

// ComputeOverlaySize calculates constrained overlay dimensions.
func ComputeOverlaySize(termWidth, termHeight int, preferredWidth, preferredHeight int) (int, int) {
	maxW := termWidth - OverlayMargin*2
	maxH := termHeight - OverlayMargin*2

	w := clamp(preferredWidth, OverlayMinWidth, min(maxW, OverlayMaxWidth))
	h := clamp(preferredHeight, OverlayMinHeight, min(maxH, OverlayMaxHeight))

	return w, h
}

// clamp bounds value to [minVal, maxVal]. maxVal wins when the range is empty.
func clamp(value, minVal, maxVal int) int {
	if value > maxVal {
		return maxVal
	}
	if value < minVal {
		return minVal
	}
	return value
}
