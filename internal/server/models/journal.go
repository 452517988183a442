package models

import "time"

// JournalRecord is one row of the ledger journal. Command and Events are
// JSON documents.
type JournalRecord struct {
	Seq        int64
	Kind       string
	Command    []byte
	Events     []byte
	RecordedAt time.Time
}
