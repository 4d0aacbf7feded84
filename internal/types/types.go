package types

// CandidateItem is one discovered article. ID is the canonical source URL and is
// unique within a run once the reader has deduplicated.
type CandidateItem struct {
	ID          string
	Title       string
	PublishedAt string
	Source      string
}

// CuratedItem is a candidate enriched with the oracle verdict.
type CuratedItem struct {
	CandidateItem
	Summary string
	Score   int
}

// ProcessedRecord is the persisted evidence that an item was published.
type ProcessedRecord struct {
	ID          string
	Title       string
	Summary     string
	PublishedAt string
}

func (c CuratedItem) Record() ProcessedRecord {
	return ProcessedRecord{
		ID:          c.ID,
		Title:       c.Title,
		Summary:     c.Summary,
		PublishedAt: c.PublishedAt,
	}
}

func IDs(items []CandidateItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func Records(items []CuratedItem) []ProcessedRecord {
	records := make([]ProcessedRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.Record())
	}
	return records
}
