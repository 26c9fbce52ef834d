package entities

// StoredAsset describes a persisted byte sequence. The locator is
// backend-specific: a relative file path, a data URL, or an s3://
// object reference.
type StoredAsset struct {
	Locator  string `json:"locator"`
	MimeType string `json:"mime_type"`
	ByteSize int64  `json:"byte_size"`
}
