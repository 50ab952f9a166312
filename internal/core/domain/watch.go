package domain

import "time"

// ChangeType is the kind of change observed on a watched file.
type ChangeType string

const (
	// ChangeCreated is a new file.
	ChangeCreated ChangeType = "created"

	// ChangeUpdated is a file whose content was rewritten.
	ChangeUpdated ChangeType = "updated"

	// ChangeDeleted is a file that was removed or renamed away.
	ChangeDeleted ChangeType = "deleted"
)

// FileChange is a change to a file in a watched directory.
type FileChange struct {
	Type ChangeType
	Path string
	At   time.Time
}
