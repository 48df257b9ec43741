package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
	"github.com/justestif/go-spotify-mood-clusters/internal/db"
)

// groupProfile is the base audio profile of one synthetic group of songs.
type groupProfile struct {
	name                                         string
	dance, energy, loud, speech, acoustic, instr float64
	live, valence, tempo                         float64
}

// Four tight, well separated groups: energetic, happy, sad, chill.
var groups = []groupProfile{
	{"party", 0.8, 0.9, -4, 0.10, 0.1, 0.0, 0.30, 0.5, 128},
	{"sunny", 0.7, 0.5, -7, 0.06, 0.3, 0.1, 0.20, 0.9, 110},
	{"blue", 0.4, 0.5, -10, 0.04, 0.6, 0.2, 0.15, 0.1, 90},
	{"quiet", 0.3, 0.1, -16, 0.03, 0.9, 0.4, 0.10, 0.5, 75},
}

const perGroup = 6

func writeSongs(t *testing.T, incomplete bool) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("track_id,track_name,track_artist,playlist_genre,playlist_subgenre,")
	sb.WriteString(strings.Join(dataset.FeatureNames, ","))
	sb.WriteString(",notes\n")

	for g, p := range groups {
		for j := range perGroup {
			d := float64(j) * 0.001
			fmt.Fprintf(&sb, "id-%d-%d,%s %d,Artist %d,pop,\"dance, pop\",%g,%g,%g,%g,%g,%g,%g,%g,%g,n%d\n",
				g, j, p.name, j, g,
				p.dance+d, p.energy+d, p.loud-d*10, p.speech+d, p.acoustic+d,
				p.instr+d, p.live+d, p.valence+d, p.tempo+d*100, j)
		}
	}
	if incomplete {
		sb.WriteString("id-x,Broken,Nobody,rock,hard rock,0.5,0.5,-6,0.1,0.1,0,0.1,0.5,,skip\n")
	}

	path := filepath.Join(t.TempDir(), "songs.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("writing songs: %v", err)
	}
	return path
}

func testService(store Store) *Service {
	return New(log.New(&bytes.Buffer{}), store)
}

type fakeStore struct {
	runs   []*db.Run
	scores []db.Score
	songs  []db.SongMood
	err    error
}

func (f *fakeStore) SaveCompare(_ context.Context, run *db.Run, scores []db.Score) error {
	if f.err != nil {
		return f.err
	}
	run.Kind = db.RunCompare
	run.ID = [16]byte{1}
	f.runs = append(f.runs, run)
	f.scores = scores
	return nil
}

func (f *fakeStore) SaveMoods(_ context.Context, run *db.Run, songs []db.SongMood) error {
	if f.err != nil {
		return f.err
	}
	run.Kind = db.RunMoods
	run.ID = [16]byte{2}
	f.runs = append(f.runs, run)
	f.songs = songs
	return nil
}

func TestCompare(t *testing.T) {
	input := writeSongs(t, true)
	plots := filepath.Join(t.TempDir(), "plots")

	result, err := testService(nil).Compare(context.Background(), CompareOptions{
		Input:    input,
		PlotsDir: plots,
		HTML:     true,
	})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if result.Rows != len(groups)*perGroup || result.Skipped != 1 {
		t.Errorf("Rows, Skipped = %d, %d; want %d, 1", result.Rows, result.Skipped, len(groups)*perGroup)
	}

	var names []string
	for _, m := range result.Models {
		names = append(names, m.Model)
		if len(m.Labels) != result.Rows {
			t.Errorf("%s labels = %d, want %d", m.Model, len(m.Labels), result.Rows)
		}
		if m.Clusters != 4 || m.Noise != 0 {
			t.Errorf("%s clusters, noise = %d, %d; want 4, 0", m.Model, m.Clusters, m.Noise)
		}
		if m.Silhouette < 0.5 {
			t.Errorf("%s silhouette = %v, want well separated groups", m.Model, m.Silhouette)
		}
		for _, path := range []string{m.Plot, m.HTMLPlot} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("%s output %q: %v", m.Model, path, err)
			}
		}
	}
	if want := []string{"KMeans", "DBSCAN", "Agglomerative"}; !slices.Equal(names, want) {
		t.Errorf("models = %v, want %v", names, want)
	}
	if got := filepath.Base(result.Models[0].Plot); got != "KMeans_PCA.png" {
		t.Errorf("plot name = %q, want %q", got, "KMeans_PCA.png")
	}

	scores := result.Scores()
	if len(scores) != 3 || scores[1].Model != "DBSCAN" {
		t.Errorf("Scores() = %+v", scores)
	}
}

func TestCompareDeterministic(t *testing.T) {
	input := writeSongs(t, false)
	svc := testService(nil)

	run := func() *CompareResult {
		result, err := svc.Compare(context.Background(), CompareOptions{Input: input, PlotsDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		return result
	}

	a, b := run(), run()
	for i := range a.Models {
		if !slices.Equal(a.Models[i].Labels, b.Models[i].Labels) {
			t.Errorf("%s labels differ between runs", a.Models[i].Model)
		}
		if a.Models[i].Silhouette != b.Models[i].Silhouette {
			t.Errorf("%s silhouette differs between runs", a.Models[i].Model)
		}
	}
}

func TestCompareDegenerateModel(t *testing.T) {
	input := writeSongs(t, false)

	// eps too small for any core point: every song is noise, one label.
	_, err := testService(nil).Compare(context.Background(), CompareOptions{
		Input:    input,
		PlotsDir: t.TempDir(),
		Models:   []clustering.Model{clustering.DBSCAN{Eps: 1e-9, MinSamples: 5}},
	})
	if err == nil || !strings.Contains(err.Error(), "scoring DBSCAN") {
		t.Errorf("Compare() error = %v, want scoring failure", err)
	}
}

func TestComparePersist(t *testing.T) {
	input := writeSongs(t, false)
	store := &fakeStore{}

	result, err := testService(store).Compare(context.Background(), CompareOptions{
		Input:    input,
		PlotsDir: t.TempDir(),
		Persist:  true,
	})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(store.runs) != 1 || store.runs[0].Rows != result.Rows {
		t.Errorf("stored runs = %+v", store.runs)
	}
	if len(store.scores) != 3 || store.scores[0].Model != "KMeans" || store.scores[0].Clusters != 4 {
		t.Errorf("stored scores = %+v", store.scores)
	}
	if result.RunID != store.runs[0].ID {
		t.Errorf("RunID = %v, want %v", result.RunID, store.runs[0].ID)
	}
}

func TestMoods(t *testing.T) {
	input := writeSongs(t, true)
	dir := t.TempDir()
	output := filepath.Join(dir, "out", "clustered.csv")
	plot := filepath.Join(dir, "cluster_plot.png")

	result, err := testService(nil).Moods(context.Background(), MoodOptions{
		Input:  input,
		Output: output,
		Plot:   plot,
	})
	if err != nil {
		t.Fatalf("Moods() error = %v", err)
	}

	wantMoods := []string{clustering.Energetic, clustering.Happy, clustering.Sad, clustering.Chill}
	for i, song := range result.Songs {
		g := i / perGroup
		if got := result.Moods[i]; got != wantMoods[g] {
			t.Errorf("song %q mood = %q, want %q", song.Name, got, wantMoods[g])
		}
	}

	if len(result.Profiles) != 4 || result.Profiles[0].Mood != clustering.Chill {
		t.Errorf("Profiles = %+v, want four in mood order", result.Profiles)
	}
	if len(result.Samples) != 4 || len(result.Samples[0].Samples) != 5 || result.Samples[0].Total != perGroup {
		t.Errorf("Samples = %+v", result.Samples)
	}
	if _, err := os.Stat(plot); err != nil {
		t.Errorf("plot not written: %v", err)
	}

	annotated, err := dataset.LoadAnnotated(output)
	if err != nil {
		t.Fatalf("LoadAnnotated() error = %v", err)
	}
	if len(annotated) != result.Rows {
		t.Fatalf("annotated rows = %d, want %d", len(annotated), result.Rows)
	}
	for i, a := range annotated {
		if a.Mood != result.Moods[i] || a.Cluster != result.Labels[i] {
			t.Errorf("row %d = %s/%d, want %s/%d", i, a.Mood, a.Cluster, result.Moods[i], result.Labels[i])
		}
		if a.Name == "Broken" {
			t.Error("song missing tempo was written")
		}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	if !strings.HasSuffix(header, "notes,cluster,mood,pca1,pca2") {
		t.Errorf("header = %q", header)
	}
}

func TestMoodsPositional(t *testing.T) {
	input := writeSongs(t, false)
	dir := t.TempDir()

	result, err := testService(nil).Moods(context.Background(), MoodOptions{
		Input:    input,
		Output:   filepath.Join(dir, "out.csv"),
		Plot:     filepath.Join(dir, "plot.png"),
		Strategy: clustering.StrategyPositional,
	})
	if err != nil {
		t.Fatalf("Moods() error = %v", err)
	}

	// Labels follow first appearance, so the first group is cluster 0.
	if result.Labels[0] != 0 || result.Moods[0] != clustering.Chill {
		t.Errorf("first song = cluster %d %q, want cluster 0 %q", result.Labels[0], result.Moods[0], clustering.Chill)
	}
}

func TestMoodsPersist(t *testing.T) {
	input := writeSongs(t, true)
	dir := t.TempDir()
	store := &fakeStore{}

	result, err := testService(store).Moods(context.Background(), MoodOptions{
		Input:   input,
		Output:  filepath.Join(dir, "out.csv"),
		Plot:    filepath.Join(dir, "plot.png"),
		Persist: true,
	})
	if err != nil {
		t.Fatalf("Moods() error = %v", err)
	}

	if len(store.songs) != result.Rows {
		t.Fatalf("stored songs = %d, want %d", len(store.songs), result.Rows)
	}
	first := store.songs[0]
	if first.TrackID != "id-0-0" || first.Mood != result.Moods[0] || len(first.Features) != len(dataset.FeatureNames) {
		t.Errorf("first stored song = %+v", first)
	}
	if store.runs[0].Skipped != 1 {
		t.Errorf("stored run skipped = %d, want 1", store.runs[0].Skipped)
	}
}

func TestPipelineErrors(t *testing.T) {
	dir := t.TempDir()
	noComplete := filepath.Join(dir, "incomplete.csv")
	content := "track_name," + strings.Join(dataset.FeatureNames, ",") + "\nOnly,0.5,0.5,-6,0.1,0.1,0,0.1,0.5,\n"
	if err := os.WriteFile(noComplete, []byte(content), 0o644); err != nil {
		t.Fatalf("writing csv: %v", err)
	}

	tests := []struct {
		name    string
		store   Store
		opts    MoodOptions
		wantErr error
	}{
		{
			name:    "missing file",
			opts:    MoodOptions{Input: filepath.Join(dir, "absent.csv")},
			wantErr: os.ErrNotExist,
		},
		{
			name:    "no complete rows",
			opts:    MoodOptions{Input: noComplete},
			wantErr: ErrNoCompleteRows,
		},
		{
			name:    "persist without store",
			opts:    MoodOptions{Input: noComplete, Persist: true},
			wantErr: ErrNoStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testService(tt.store).Moods(context.Background(), tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Moods() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := testService(nil).Compare(context.Background(), CompareOptions{Input: noComplete}); !errors.Is(err, ErrNoCompleteRows) {
		t.Errorf("Compare() error = %v, want %v", err, ErrNoCompleteRows)
	}
}

func TestStoreError(t *testing.T) {
	input := writeSongs(t, false)
	store := &fakeStore{err: errors.New("connection refused")}

	_, err := testService(store).Compare(context.Background(), CompareOptions{
		Input:    input,
		PlotsDir: t.TempDir(),
		Persist:  true,
	})
	if err == nil || !strings.Contains(err.Error(), "saving scores") {
		t.Errorf("Compare() error = %v, want saving failure", err)
	}
}
