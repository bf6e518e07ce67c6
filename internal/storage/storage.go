package storage

import (
	"time"
)

// DefaultPresignedURLExpiry is used when no expiry is configured.
const DefaultPresignedURLExpiry = 15 * time.Minute

// ArchiveContentType is the media type of every purge archive object.
const ArchiveContentType = "application/x-ndjson"
