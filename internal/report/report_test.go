package report

import (
	"strings"
	"testing"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
)

func TestScoreTable(t *testing.T) {
	out := ScoreTable([]Score{
		{Model: "KMeans", Silhouette: 0.123456, DaviesBouldin: 1.98765},
		{Model: "DBSCAN", Silhouette: -0.05, DaviesBouldin: 2},
	})

	wantContains := []string{
		"Model", "Silhouette Score", "Davies-Bouldin Index",
		"KMeans", "0.123", "1.988",
		"DBSCAN", "-0.050", "2.000",
	}
	for _, want := range wantContains {
		if !strings.Contains(out, want) {
			t.Errorf("ScoreTable() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0.1234") {
		t.Errorf("ScoreTable() should round to 3 decimals:\n%s", out)
	}
}

func ptr(v float64) *float64 { return &v }

func makeSong(name string) dataset.Song {
	return dataset.Song{
		Name:     name,
		Artist:   "Artist " + name,
		Genre:    "pop",
		Subgenre: "dance pop",
		Valence:  ptr(0.5),
		Energy:   ptr(0.75),
	}
}

func TestGroupByMood(t *testing.T) {
	var songs []dataset.Song
	var moods []string
	for i := range 8 {
		songs = append(songs, makeSong(string(rune('a'+i))))
		moods = append(moods, clustering.Happy)
	}
	songs = append(songs, makeSong("z"))
	moods = append(moods, clustering.Sad)
	// Sad appears after Happy, Chill never appears.

	groups := GroupByMood(songs, moods, 5)

	if len(groups) != 2 {
		t.Fatalf("GroupByMood() returned %d groups, want 2", len(groups))
	}
	if groups[0].Mood != clustering.Happy || groups[1].Mood != clustering.Sad {
		t.Errorf("group order = %q, %q; want Happy, Sad", groups[0].Mood, groups[1].Mood)
	}
	if len(groups[0].Samples) != 5 || groups[0].Total != 8 {
		t.Errorf("Happy samples = %d of %d, want 5 of 8", len(groups[0].Samples), groups[0].Total)
	}
	if groups[0].Samples[0].Name != "a" {
		t.Errorf("first Happy sample = %q, want %q", groups[0].Samples[0].Name, "a")
	}
	if len(groups[1].Samples) != 1 {
		t.Errorf("Sad samples = %d, want 1", len(groups[1].Samples))
	}
}

func TestFormatMoodSamples(t *testing.T) {
	groups := GroupByMood([]dataset.Song{makeSong("Song1"), makeSong("Song2")}, []string{clustering.Chill, clustering.Energetic}, 5)

	out := FormatMoodSamples(groups)

	wantContains := []string{
		"Chill Songs:",
		"Energetic Songs:",
		"track_name", "track_artist", "valence", "energy", "playlist_genre", "playlist_subgenre",
		"Song1", "Artist Song1", "0.75", "dance pop",
	}
	for _, want := range wantContains {
		if !strings.Contains(out, want) {
			t.Errorf("FormatMoodSamples() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatMoodSummary(t *testing.T) {
	tests := []struct {
		name           string
		profiles       []clustering.MoodProfile
		skipped        int
		wantContains   []string
		wantNotContain []string
	}{
		{
			name:           "no moods no skipped",
			wantContains:   []string{"No moods found from 0 songs"},
			wantNotContain: []string{"skipped"},
		},
		{
			name:         "no moods with skipped",
			skipped:      1,
			wantContains: []string{"No moods found from 1 song", "(1 skipped)"},
		},
		{
			name: "single mood",
			profiles: []clustering.MoodProfile{
				clustering.Profile(clustering.Happy, 0, 3, map[string]float64{"energy": 0.8, "valence": 0.7}),
			},
			wantContains: []string{
				"Found 1 mood from 3 songs",
				"Happy (cluster 0, 3 songs): Upbeat Party, energy 0.80, valence 0.70",
			},
			wantNotContain: []string{"skipped"},
		},
		{
			name: "several moods with skipped",
			profiles: []clustering.MoodProfile{
				clustering.Profile(clustering.Chill, 1, 1, map[string]float64{"energy": 0.3, "valence": 0.6}),
				clustering.Profile(clustering.Sad, 2, 4, map[string]float64{"energy": 0.3, "valence": 0.2}),
			},
			skipped: 2,
			wantContains: []string{
				"Found 2 moods from 7 songs (2 skipped)",
				"Chill (cluster 1, 1 song)",
				"Reflective & Melancholy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMoodSummary(tt.profiles, tt.skipped)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatMoodSummary() missing %q in:\n%s", want, got)
				}
			}
			for _, notWant := range tt.wantNotContain {
				if strings.Contains(got, notWant) {
					t.Errorf("FormatMoodSummary() should not contain %q in:\n%s", notWant, got)
				}
			}
		})
	}
}

func TestMoodCountTable(t *testing.T) {
	out := MoodCountTable([]MoodCount{{clustering.Chill, 12}, {clustering.Sad, 3}})
	for _, want := range []string{"Mood", "Songs", "Chill", "12", "Sad", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("MoodCountTable() missing %q in:\n%s", want, out)
		}
	}
}
