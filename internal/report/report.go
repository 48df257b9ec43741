// Package report formats clustering results for the terminal.
package report

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true)
)

// Score is one model's row in the comparison summary.
type Score struct {
	Model         string
	Silhouette    float64
	DaviesBouldin float64
}

// Summary column headers.
const (
	HeaderModel         = "Model"
	HeaderSilhouette    = "Silhouette Score"
	HeaderDaviesBouldin = "Davies-Bouldin Index"
)

// ScoreTable renders the comparison summary with scores rounded to 3 decimals.
func ScoreTable(scores []Score) string {
	rows := make([][]string, len(scores))
	for i, s := range scores {
		rows[i] = []string{s.Model, formatScore(s.Silhouette), formatScore(s.DaviesBouldin)}
	}
	return newTable([]string{HeaderModel, HeaderSilhouette, HeaderDaviesBouldin}, rows)
}

func newTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// formatScore rounds to 3 decimals.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatFeature(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
