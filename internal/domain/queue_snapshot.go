package domain

import "time"

// DisplayEntry is the public projection of a waiting ticket. It carries no
// contact or credential data.
type DisplayEntry struct {
	QueueNumber int64        `json:"queue_number"`
	ProductType ProductType  `json:"product_type"`
	Status      TicketStatus `json:"status"`
	Position    int          `json:"position"`
	CreatedAt   time.Time    `json:"created_at"`
}

// QueueSnapshot is one poll's view of the waiting queue in FIFO order.
type QueueSnapshot struct {
	Sequence    uint64         `json:"sequence"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []DisplayEntry `json:"entries"`
}

// NewQueueSnapshot projects waiting tickets, already in FIFO order, into a snapshot.
func NewQueueSnapshot(sequence uint64, tickets []Ticket, at time.Time) QueueSnapshot {
	entries := make([]DisplayEntry, 0, len(tickets))
	for i, t := range tickets {
		entries = append(entries, DisplayEntry{
			QueueNumber: t.QueueNumber,
			ProductType: t.ProductType,
			Status:      t.Status,
			Position:    i + 1,
			CreatedAt:   t.CreatedAt,
		})
	}
	return QueueSnapshot{Sequence: sequence, GeneratedAt: at, Entries: entries}
}
