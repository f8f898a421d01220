/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport/internal/tui/colors"
)

// Marks in front of the progress lines of the one-shot commands
var (
	infoMark    = lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)
	successMark = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	errorMark   = lipgloss.NewStyle().Foreground(colors.Red).Bold(true)
)
