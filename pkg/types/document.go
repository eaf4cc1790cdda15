package types

import "time"

// DocumentMeta carries metadata about an ingested document. It is stored
// alongside every record of the document and survives persistence round trips.
type DocumentMeta struct {
	// SourceType describes where the document came from (file, url, api, label).
	SourceType string `json:"source_type,omitempty"`

	// IngestedAt is when the document was indexed.
	IngestedAt time.Time `json:"ingested_at"`

	// Extra holds arbitrary caller-supplied key/value metadata.
	Extra map[string]string `json:"extra,omitempty"`
}
