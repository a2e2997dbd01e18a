package main

import "github.com/charmbracelet/lipgloss"

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellow    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cyan      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold      = lipgloss.NewStyle().Bold(true)
	labelCell = lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(16)
)
