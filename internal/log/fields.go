// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldJobID   = "job_id"
	FieldTrackID = "track_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Media fields
	FieldTrack  = "track"
	FieldArtist = "artist"
	FieldColor  = "color"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / device fields
	FieldPath = "path"
	FieldPort = "port"
)
