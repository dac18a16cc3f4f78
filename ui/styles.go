package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#FF6B35")
	colorGreen   = lipgloss.Color("#00B894")
	colorRed     = lipgloss.Color("#D63031")
	colorYellow  = lipgloss.Color("#FDCB6E")
	colorBlue    = lipgloss.Color("#0984E3")
	colorGray    = lipgloss.Color("#636E72")
	colorDimGray = lipgloss.Color("#2D3436")
	colorWhite   = lipgloss.Color("#DFE6E9")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			PaddingLeft(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			PaddingLeft(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	modeGPUStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	modeCPUStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	barFillStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen).
			PaddingLeft(2)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			PaddingLeft(2)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			PaddingLeft(2)
)
