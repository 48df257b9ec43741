package db

import (
	"time"

	"github.com/google/uuid"
)

// Run kinds.
const (
	RunCompare = "compare"
	RunMoods   = "moods"
)

// Run records one pipeline execution.
type Run struct {
	ID        uuid.UUID
	Kind      string // RunCompare or RunMoods
	Input     string // source CSV path
	Rows      int    // rows clustered
	Skipped   int    // rows dropped for missing features
	CreatedAt time.Time
}

// Score is one model's quality metrics within a compare run.
type Score struct {
	RunID         uuid.UUID
	Model         string
	Clusters      int
	Silhouette    float64
	DaviesBouldin float64
}

// SongMood is one labelled song within a moods run.
type SongMood struct {
	RunID    uuid.UUID
	Row      int // row index in the source CSV
	TrackID  string
	Name     string
	Artist   string
	Genre    string
	Subgenre string
	Features []float64 // dataset.FeatureNames order
	Cluster  int
	Mood     string
	PCA1     float64
	PCA2     float64
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	UserName     string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
