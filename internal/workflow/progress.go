package workflow

import (
	"math"
	"time"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
)

// Progress is the derived document-completion view of a deal. It is computed
// from the deal's document slots on read and never stored.
type Progress struct {
	CompletionPercentage  int      `json:"completion_percentage"`
	PendingDocumentsCount int      `json:"pending_documents_count"`
	OverdueDocuments      []string `json:"overdue_documents"`
	RequiredTotal         int      `json:"required_total"`
	RequiredSatisfied     int      `json:"required_satisfied"`
}

// DocumentProgress computes the completion rollup for a set of document
// slots at the given instant. A required slot counts as satisfied only once
// approved; an upload awaiting review still counts as pending. Optional slots
// never enter the rollup. With no required slots the completion percentage is
// zero.
func DocumentProgress(docs []models.DealDocument, now time.Time) Progress {
	p := Progress{OverdueDocuments: []string{}}

	for _, doc := range docs {
		if !doc.Required {
			continue
		}
		p.RequiredTotal++
		if doc.Status == models.DocumentStatusApproved {
			p.RequiredSatisfied++
			continue
		}
		p.PendingDocumentsCount++
		if doc.DueDate != nil && doc.DueDate.Before(now) {
			p.OverdueDocuments = append(p.OverdueDocuments, doc.Type)
		}
	}

	if p.RequiredTotal > 0 {
		p.CompletionPercentage = int(math.Round(float64(p.RequiredSatisfied) / float64(p.RequiredTotal) * 100))
	}
	return p
}
