// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package activity defines the historical activity a user has accumulated:
// journal entries, trips, saved locations and the ordered sequence of
// choices made between options. The analyzers only read these values;
// fetching them is the job of the persistence layer.
package activity

import (
	"sort"
	"time"
)

// RecordKind identifies the source collection of a Record.
type RecordKind string

const (
	KindJournal RecordKind = "journal"
	KindTrip    RecordKind = "trip"
	KindSaved   RecordKind = "saved"
)

// JournalEntry is a free-text travel journal entry.
type JournalEntry struct {
	ID         string `json:"id" validate:"required"`
	LocationID string `json:"location_id,omitempty"`
	Category   string `json:"category,omitempty"`
	// Rating is the traveller's 1..5 rating; 0 means unrated.
	Rating float64 `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Text   string  `json:"text,omitempty"`
	// Sentiment is the provider-computed sentiment in [-1,1].
	Sentiment float64   `json:"sentiment,omitempty" validate:"gte=-1,lte=1"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Trip is a planned or completed trip.
type Trip struct {
	ID           string    `json:"id" validate:"required"`
	Destination  string    `json:"destination" validate:"required"`
	Country      string    `json:"country,omitempty"`
	Category     string    `json:"category,omitempty"`
	Cost         float64   `json:"cost,omitempty" validate:"gte=0"`
	DurationDays float64   `json:"duration_days,omitempty" validate:"gte=0"`
	Rating       float64   `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Notes        string    `json:"notes,omitempty"`
	PlannedAt    time.Time `json:"planned_at,omitempty"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	Visited      bool      `json:"visited"`
}

// SavedLocation is a location the user bookmarked.
type SavedLocation struct {
	ID         string `json:"id" validate:"required"`
	LocationID string `json:"location_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Note       string `json:"note,omitempty"`
	// SourceRecordID points at the journal entry or trip the save came from.
	SourceRecordID string    `json:"source_record_id,omitempty"`
	SavedAt        time.Time `json:"saved_at" validate:"required"`
	// Acted is set when the user followed through (booked or visited).
	Acted bool `json:"acted"`
}

// Choice is one decision taken between options, in the order it was made.
type Choice struct {
	ID          string    `json:"id" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	OptionCount int       `json:"option_count,omitempty" validate:"gte=0"`
	ChosenAt    time.Time `json:"chosen_at" validate:"required"`
}

// History is the complete activity of one user.
type History struct {
	UserID         string          `json:"user_id,omitempty"`
	JournalEntries []JournalEntry  `json:"journal_entries,omitempty" validate:"dive"`
	Trips          []Trip          `json:"trips,omitempty" validate:"dive"`
	SavedLocations []SavedLocation `json:"saved_locations,omitempty" validate:"dive"`
	Choices        []Choice        `json:"choices,omitempty" validate:"dive"`
}

// Record is a uniform, time-ordered view over journal entries, trips and saves.
type Record struct {
	ID       string     `json:"id"`
	Kind     RecordKind `json:"kind"`
	Category string     `json:"category,omitempty"`
	Text     string     `json:"text,omitempty"`
	At       time.Time  `json:"at"`
	// Acted marks records the user acted on: visited trips and saves that
	// were followed through.
	Acted bool `json:"acted"`
}

// Len returns the total number of activity items.
func (h *History) Len() int {
	return len(h.JournalEntries) + len(h.Trips) + len(h.SavedLocations) + len(h.Choices)
}

// Records merges journal entries, trips and saved locations into a single
// slice ordered by time, oldest first. Items with equal timestamps keep
// collection order (journal, trip, saved).
func (h *History) Records() []Record {
	out := make([]Record, 0, len(h.JournalEntries)+len(h.Trips)+len(h.SavedLocations))
	for _, j := range h.JournalEntries {
		out = append(out, Record{ID: j.ID, Kind: KindJournal, Category: j.Category, Text: j.Text, At: j.CreatedAt})
	}
	for _, t := range h.Trips {
		at := t.PlannedAt
		if at.IsZero() {
			at = t.StartDate
		}
		out = append(out, Record{ID: t.ID, Kind: KindTrip, Category: t.Category, Text: t.Notes, At: at, Acted: t.Visited})
	}
	for _, s := range h.SavedLocations {
		out = append(out, Record{ID: s.ID, Kind: KindSaved, Category: s.Category, Text: s.Note, At: s.SavedAt, Acted: s.Acted})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// OrderedChoices returns the choices sorted by ChosenAt, oldest first.
func (h *History) OrderedChoices() []Choice {
	out := make([]Choice, len(h.Choices))
	copy(out, h.Choices)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChosenAt.Before(out[j].ChosenAt) })
	return out
}

// OrderedTrips returns the trips sorted by StartDate, oldest first.
func (h *History) OrderedTrips() []Trip {
	out := make([]Trip, len(h.Trips))
	copy(out, h.Trips)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}
