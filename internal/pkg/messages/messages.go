package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/bulk"
)

const (
	st = "PHONJ/"
	// Bulk queue name
	Bulk = st + "Bulk"
	// Progress queue name
	Progress = st + "Progress"
	// Fail queue name
	Fail = st + "Fail"
	// Inform  queue name
	Inform = st + "Inform"
)

// BulkMessage starts one bulk import run
type BulkMessage struct {
	amessages.QueueMessage
}

// ProgressMessage carries live run progress,
// counters and the latest entry travel inline so subscribers need no DB read
type ProgressMessage struct {
	amessages.QueueMessage
	Progress bulk.Progress `json:"progress"`
}

// NewBulkMessageFrom creates a copy of a message
func NewBulkMessageFrom(m *BulkMessage) *BulkMessage {
	return &BulkMessage{QueueMessage: m.QueueMessage}
}
