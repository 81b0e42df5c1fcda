package layout

// Degradation holds flags indicating which UI features should be hidden or simplified.
// Features are listed in order of degradation priority (first to hide).
type Degradation struct {
	// Header degradation
	HideHeaderCommand bool // Drop the command and elapsed time (width < 80)

	// Component simplification
	SingleLineMenu bool // Only the action group and quit (height < 24)

	// Welcome screen
	HideDescription bool // Title and button only (height < 20 or width < 50)

	// Critical degradation
	ShowMinWarning bool // Terminal too small warning (below MinWidth/MinHeight)
}

// Threshold constants for degradation
const (
	HeaderCommandHideWidth = CompactWidth
	SingleLineMenuHeight   = CompactHeight
	DescriptionHideHeight  = 20
	DescriptionHideWidth   = 50
)

// ComputeDegradation calculates which UI features should be degraded.
func ComputeDegradation(c Constraints) Degradation {
	return Degradation{
		HideHeaderCommand: c.TerminalWidth < HeaderCommandHideWidth,
		SingleLineMenu:    c.TerminalHeight < SingleLineMenuHeight,
		HideDescription:   c.TerminalHeight < DescriptionHideHeight || c.TerminalWidth < DescriptionHideWidth,
		ShowMinWarning:    c.ShowMinWarning,
	}
}

// IsCompactMode returns true if anything is hidden.
func (d Degradation) IsCompactMode() bool {
	return d.HideHeaderCommand || d.SingleLineMenu || d.HideDescription
}
