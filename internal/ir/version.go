package ir

// Version constants for the record schema and the registry.
const (
	// SchemaVersion is the change-batch schema version.
	SchemaVersion = "1"

	// RegistryVersion is the qstream registry version.
	RegistryVersion = "0.1.0"
)
