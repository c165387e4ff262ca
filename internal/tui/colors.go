package tui

// Color constants for the punchcard TUI theme
const (
	// Text Colors
	ColorPrimaryText   = "#E8EDF4" // Primary text (titles, user input)
	ColorSecondaryText = "#AAB4C4" // Secondary text
	ColorDisabledText  = "#6B7280" // Disabled/muted text
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors (teal theme)
	ColorAccentMain   = "#0D9488" // Accent elements, active borders
	ColorAccentBright = "#2DD4BF" // Highlights, selected rows

	// State Colors
	ColorError   = "#EF4444" // Errors
	ColorSuccess = "#22C55E" // Success, confirmations
	ColorWarning = "#F59E0B" // Offline notices, stale sessions
	ColorBorder  = "#3A4254" // Panel borders
)
