package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
)

// DefaultSampleCount is the number of songs shown per mood.
const DefaultSampleCount = 5

// SampleColumns are the fields shown for each sample song.
var SampleColumns = []string{
	dataset.ColName,
	dataset.ColArtist,
	"valence",
	"energy",
	dataset.ColGenre,
	dataset.ColSubgenre,
}

// MoodGroup holds the first few songs of one mood.
type MoodGroup struct {
	Mood    string
	Total   int
	Samples []dataset.Song
}

// GroupByMood collects up to limit songs per mood, with moods in order of
// first appearance. songs and moods must align.
func GroupByMood(songs []dataset.Song, moods []string, limit int) []MoodGroup {
	if limit <= 0 {
		limit = DefaultSampleCount
	}

	var groups []MoodGroup
	index := make(map[string]int)
	for i, mood := range moods {
		gi, ok := index[mood]
		if !ok {
			gi = len(groups)
			index[mood] = gi
			groups = append(groups, MoodGroup{Mood: mood})
		}
		g := &groups[gi]
		g.Total++
		if len(g.Samples) < limit {
			g.Samples = append(g.Samples, songs[i])
		}
	}
	return groups
}

// SampleTable renders one mood's sample songs.
func SampleTable(g MoodGroup) string {
	rows := make([][]string, len(g.Samples))
	for i, s := range g.Samples {
		rows[i] = []string{
			s.Name,
			s.Artist,
			formatFeature(s.Valence),
			formatFeature(s.Energy),
			s.Genre,
			s.Subgenre,
		}
	}
	return newTable(SampleColumns, rows)
}

// FormatMoodSamples renders every mood group with a heading and its sample table.
func FormatMoodSamples(groups []MoodGroup) string {
	var sb strings.Builder
	for _, g := range groups {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render(fmt.Sprintf("%s Songs:", g.Mood)))
		sb.WriteString("\n")
		sb.WriteString(SampleTable(g))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatMoodSummary returns a human-readable overview of the detected moods.
// Shows size, average energy and valence, and the vibe of each mood.
// Noise or unassigned rows are summarized by count only.
func FormatMoodSummary(profiles []clustering.MoodProfile, skipped int) string {
	var sb strings.Builder

	total := skipped
	for _, p := range profiles {
		total += p.Size
	}

	if len(profiles) == 0 {
		sb.WriteString(fmt.Sprintf("No moods found from %s", plural(total, "song")))
		if skipped > 0 {
			sb.WriteString(fmt.Sprintf(" (%d skipped)", skipped))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Found %s from %s", plural(len(profiles), "mood"), plural(total, "song")))
	if skipped > 0 {
		sb.WriteString(fmt.Sprintf(" (%d skipped)", skipped))
	}
	sb.WriteString("\n")

	for _, p := range profiles {
		sb.WriteString(fmt.Sprintf("  • %s (cluster %d, %s): %s, energy %.2f, valence %.2f\n",
			p.Mood, p.Cluster, plural(p.Size, "song"), p.Vibe, p.Energy, p.Valence))
		sb.WriteString(fmt.Sprintf("    %s\n", mutedStyle.Render(p.Description)))
	}

	return sb.String()
}

// MoodCount is the number of songs labelled with one mood.
type MoodCount struct {
	Mood  string
	Songs int
}

// MoodCountTable renders songs per mood.
func MoodCountTable(counts []MoodCount) string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Mood, strconv.Itoa(c.Songs)}
	}
	return newTable([]string{"Mood", "Songs"}, rows)
}
