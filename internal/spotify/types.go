// SPDX-License-Identifier: MIT

// Package spotify talks to the playback provider: current-track polling,
// PKCE authorization and companion (canvas) video lookup.
package spotify

// Outcome classifies one currently-playing poll.
type Outcome int

const (
	// OutcomeTrack means a track snapshot was captured.
	OutcomeTrack Outcome = iota
	// OutcomeNoTrack means nothing is playing.
	OutcomeNoTrack
	// OutcomeAd means an advertisement is playing.
	OutcomeAd
	// OutcomeTokenExpired means the bearer token was rejected and a fresh
	// authorization is required.
	OutcomeTokenExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTrack:
		return "track"
	case OutcomeNoTrack:
		return "no_track"
	case OutcomeAd:
		return "ad"
	case OutcomeTokenExpired:
		return "token_expired"
	default:
		return "unknown"
	}
}

// TrackSnapshot captures one observed playback state. Snapshots are
// immutable; a new poll produces a whole new snapshot, never a merge.
// Track-change detection compares ID only.
type TrackSnapshot struct {
	ID         string
	URI        string
	Name       string
	Artist     string
	ArtworkURL string
	Playing    bool
}

// PlayerState is the result of one poll: an outcome plus the snapshot when
// the outcome is OutcomeTrack.
type PlayerState struct {
	Outcome Outcome
	Track   TrackSnapshot
}
