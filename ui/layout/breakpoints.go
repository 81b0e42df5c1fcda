package layout

// Width breakpoints
const (
	// MinWidth is the narrowest terminal the console stays usable in.
	MinWidth = 60

	// CompactWidth is a classic 80 column terminal.
	CompactWidth = 80

	// StandardWidth is the threshold for standard layout.
	StandardWidth = 100

	// FullWidth is the threshold for full layout with all features.
	FullWidth = 140
)

// Height breakpoints
const (
	// MinHeight leaves at least a few console rows next to the fixed rows.
	MinHeight = 16

	// CompactHeight is a classic 24 row terminal.
	CompactHeight = 24

	// StandardHeight is the threshold for standard layout.
	StandardHeight = 30

	// FullHeight is the threshold for full layout.
	FullHeight = 40
)

// Fixed rows
const (
	// HeaderHeight is the status line.
	HeaderHeight = 1

	// HeaderGap is the blank row under the header in roomy layouts.
	HeaderGap = 1

	// InputHeight is the input bar: one line plus border.
	InputHeight = 3

	// InputPromptHeight adds the prompt line while a prompt is pending.
	InputPromptHeight = 4

	// ErrBoxHeight is the fixed error box height.
	ErrBoxHeight = 1

	// ConsoleMinHeight is one output row plus border.
	ConsoleMinHeight = 3
)

// Menu constraints
const (
	// MenuMinHeight is a single line of key hints.
	MenuMinHeight = 1

	// MenuStandardHeight is the standard menu height.
	MenuStandardHeight = 2

	// MenuMaxHeight is the maximum menu height.
	MenuMaxHeight = 3
)

// Overlay constraints
const (
	// OverlayMaxWidth is the maximum overlay width.
	OverlayMaxWidth = 72

	// OverlayMaxHeight is the maximum overlay height.
	OverlayMaxHeight = 20

	// OverlayMinWidth is the minimum overlay width.
	OverlayMinWidth = 30

	// OverlayMinHeight is the minimum overlay height.
	OverlayMinHeight = 8

	// OverlayMargin is the minimum margin from terminal edges.
	OverlayMargin = 2
)
