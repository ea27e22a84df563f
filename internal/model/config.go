package model

// Keys of the persistent configuration table. Values are opaque text.
const (
	// ConfigKeyGoogleTokens holds the serialized OAuth credential record.
	ConfigKeyGoogleTokens = "google_tokens"
	// ConfigKeyGoogleSheetID caches the generated spreadsheet identifier.
	ConfigKeyGoogleSheetID = "google_sheet_id"
)
