package hansard

// Extractor parses one raw document into normalized records.
type Extractor interface {
	// Extract parses payload for doc. A document whose header cannot be read
	// returns EPARSE and must not be partially committed.
	Extract(doc *Document, payload []byte) (*Extraction, error)
}
