package output

import "github.com/charmbracelet/lipgloss"

// Color palette.
const (
	ColorAccent    = "154"
	ColorAccentDim = "106"
	ColorGray      = "245"
	ColorDarkGray  = "238"
	ColorRed       = "196"
	ColorYellow    = "220"
)

// Styles holds all result styles.
type Styles struct {
	Title     lipgloss.Style
	Score     lipgloss.Style
	Path      lipgloss.Style
	Meta      lipgloss.Style
	Highlight lipgloss.Style
	Header    lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns styles for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true),
		Score:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentDim)),
		Path:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Meta:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle(),
		Score:     lipgloss.NewStyle(),
		Path:      lipgloss.NewStyle(),
		Meta:      lipgloss.NewStyle(),
		Highlight: lipgloss.NewStyle(),
		Header:    lipgloss.NewStyle(),
		Success:   lipgloss.NewStyle(),
		Warning:   lipgloss.NewStyle(),
		Error:     lipgloss.NewStyle(),
	}
}
