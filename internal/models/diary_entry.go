package models

import (
	"slices"
	"time"
)

// DateLayout is the wire and storage format of an entry date.
const DateLayout = "2006-01-02"

// Mood is the self-reported mood of a diary entry.
type Mood string

const (
	MoodExcellent Mood = "Erinomainen"
	MoodGood      Mood = "Hyvä"
	MoodNeutral   Mood = "Neutraali"
	MoodBad       Mood = "Huono"
	MoodVeryBad   Mood = "Todella huono"
)

// Moods lists every accepted mood, best first.
var Moods = []Mood{MoodExcellent, MoodGood, MoodNeutral, MoodBad, MoodVeryBad}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	return slices.Contains(Moods, m)
}

// Intensity is the effort level of the exercise logged in an entry.
type Intensity string

const (
	IntensityLight    Intensity = "Kevyt"
	IntensityModerate Intensity = "Kohtalainen"
	IntensityHeavy    Intensity = "Raskas"
)

// Intensities lists every accepted exercise intensity.
var Intensities = []Intensity{IntensityLight, IntensityModerate, IntensityHeavy}

// Valid reports whether i is one of Intensities.
func (i Intensity) Valid() bool {
	return slices.Contains(Intensities, i)
}

// DiaryEntry is a single day's wellbeing record. UserID references the owner;
// an entry is only ever returned to that owner.
type DiaryEntry struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	EntryDate         string    `json:"date"`
	Mood              Mood      `json:"mood"`
	Weight            float64   `json:"weight"`
	SleepHours        float64   `json:"sleep"`
	ExerciseDuration  float64   `json:"exerciseDuration"`
	ExerciseIntensity Intensity `json:"exerciseIntensity"`
	Notes             string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
}

// EntryFilter narrows a history listing. Zero values mean "no bound".
type EntryFilter struct {
	From  string
	To    string
	Limit int
}
