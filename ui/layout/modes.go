// Package layout splits the terminal between header, console, input bar and menu.
package layout

// LayoutMode is how much chrome fits around the console.
type LayoutMode int

const (
	// LayoutFull leaves room for a two-line menu and a gap under the header.
	LayoutFull LayoutMode = iota
	LayoutStandard
	// LayoutCompact keeps every row that is not the console to a single line.
	LayoutCompact
	// LayoutMinimal is below the minimum size. The console gets what is left and
	// the status line shows a warning.
	LayoutMinimal
)

var modeNames = [...]string{
	LayoutFull:     "full",
	LayoutStandard: "standard",
	LayoutCompact:  "compact",
	LayoutMinimal:  "minimal",
}

func (m LayoutMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// thresholds lists the smallest size of each mode, roomiest first.
var thresholds = []struct {
	mode          LayoutMode
	width, height int
}{
	{LayoutFull, FullWidth, FullHeight},
	{LayoutStandard, StandardWidth, StandardHeight},
	{LayoutCompact, MinWidth, MinHeight},
}

// DetermineMode returns the roomiest mode both dimensions allow.
func DetermineMode(width, height int) LayoutMode {
	for _, t := range thresholds {
		if width >= t.width && height >= t.height {
			return t.mode
		}
	}
	return LayoutMinimal
}
