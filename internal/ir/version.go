package ir

// Version constants for stored records and the repository build.
const (
	// SchemaVersion is the record schema version written alongside compositions.
	SchemaVersion = "1"

	// RepositoryVersion is the ehrstore release version.
	RepositoryVersion = "0.1.0"

	// DefaultSystemID identifies this repository in object version ids
	// when no system id is configured.
	DefaultSystemID = "local.ehrstore"
)
