package clustering

// vibeName describes a centroid in raw feature units using an energy/valence
// quadrant, with an acoustic modifier when acousticness is above 0.6.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
func vibeName(centroid map[string]float64) string {
	energy := centroid["energy"]
	valence := centroid["valence"]

	var name string
	switch {
	case energy > 0.6 && valence > 0.5:
		name = "Upbeat Party"
	case energy > 0.6:
		name = "Intense & Dark"
	case valence > 0.5:
		name = "Chill & Happy"
	default:
		name = "Reflective & Melancholy"
	}

	if centroid["acousticness"] > 0.6 {
		return name + " (Acoustic)"
	}
	return name
}

// MoodProfile summarises one mood cluster for reports.
type MoodProfile struct {
	Mood        string
	Cluster     int
	Size        int
	Vibe        string  // Quadrant name from the raw centroid
	Energy      float64 // Average energy
	Valence     float64 // Average valence
	Description string
}

// Profile builds a MoodProfile from a raw (unscaled) centroid keyed by feature name.
func Profile(mood string, cluster, size int, centroid map[string]float64) MoodProfile {
	energy := centroid["energy"]
	valence := centroid["valence"]

	var description string
	switch {
	case energy > 0.6 && valence > 0.5:
		description = "High-energy, positive vibes - perfect for dancing and celebrations"
	case energy > 0.6:
		description = "Intense, driving energy with darker emotional tones"
	case valence > 0.5:
		description = "Relaxed and uplifting - great for unwinding"
	default:
		description = "Contemplative and introspective - ideal for quiet moments"
	}

	return MoodProfile{
		Mood:        mood,
		Cluster:     cluster,
		Size:        size,
		Vibe:        vibeName(centroid),
		Energy:      energy,
		Valence:     valence,
		Description: description,
	}
}
