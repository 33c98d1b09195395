package ui

import "github.com/charmbracelet/lipgloss"

const directoryWidth = 36

var (
	titleStyle = lipgloss.NewStyle().MarginLeft(1).Bold(true).Foreground(lipgloss.Color("#FFFDF5"))

	directoryPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	chatPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	focusedBorder = lipgloss.Color("170")

	entryStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	selectedEntryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("62"))
	matchStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#F2C94C"))
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DCFFF"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9ECE6A"))
	selectedMsgStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(focusedBorder).PaddingLeft(1)
	plainMsgStyle       = lipgloss.NewStyle().PaddingLeft(2)
	attachmentStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	copiedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")).Bold(true)

	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF")).PaddingLeft(1)
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C0392B")).Padding(0, 1)
	recordingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C0392B")).Bold(true).Padding(0, 1)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).PaddingLeft(1)
)
