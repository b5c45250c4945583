package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
)

func docSlot(docType, status string, required bool, due *time.Time) models.DealDocument {
	return models.DealDocument{Type: docType, Status: status, Required: required, DueDate: due}
}

func TestDocumentProgressEmpty(t *testing.T) {
	p := DocumentProgress(nil, time.Now())
	require.Equal(t, 0, p.CompletionPercentage)
	require.Equal(t, 0, p.PendingDocumentsCount)
	require.Empty(t, p.OverdueDocuments)
}

func TestDocumentProgressNoRequiredSlotsIsZeroPercent(t *testing.T) {
	docs := []models.DealDocument{
		docSlot(models.DocTypeInspection, models.DocumentStatusApproved, false, nil),
		docSlot(models.DocTypeInsurance, models.DocumentStatusUploaded, false, nil),
	}
	p := DocumentProgress(docs, time.Now())
	require.Equal(t, 0, p.CompletionPercentage)
	require.Equal(t, 0, p.PendingDocumentsCount)
}

func TestDocumentProgressRounding(t *testing.T) {
	docs := []models.DealDocument{
		docSlot(models.DocTypeTitle, models.DocumentStatusApproved, true, nil),
		docSlot(models.DocTypeContract, models.DocumentStatusApproved, true, nil),
		docSlot(models.DocTypeOdometer, models.DocumentStatusPending, true, nil),
	}
	// 2 of 3 satisfied rounds to 67.
	p := DocumentProgress(docs, time.Now())
	require.Equal(t, 67, p.CompletionPercentage)
	require.Equal(t, 1, p.PendingDocumentsCount)
}

func TestDocumentProgressOnlyApprovalSatisfies(t *testing.T) {
	docs := []models.DealDocument{
		docSlot(models.DocTypeTitle, models.DocumentStatusUploaded, true, nil),
		docSlot(models.DocTypeContract, models.DocumentStatusRejected, true, nil),
	}
	// An upload awaiting review does not move the needle.
	p := DocumentProgress(docs, time.Now())
	require.Equal(t, 0, p.CompletionPercentage)
	require.Equal(t, 2, p.PendingDocumentsCount)

	docs[0].Status = models.DocumentStatusApproved
	p = DocumentProgress(docs, time.Now())
	require.Equal(t, 50, p.CompletionPercentage)
	require.Equal(t, 1, p.PendingDocumentsCount)
}

func TestDocumentProgressOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	docs := []models.DealDocument{
		docSlot(models.DocTypeTitle, models.DocumentStatusPending, true, &past),
		docSlot(models.DocTypeContract, models.DocumentStatusPending, true, &future),
		// Approved slots never count as overdue even past their due date.
		docSlot(models.DocTypePaymentProof, models.DocumentStatusApproved, true, &past),
		// Neither do optional slots.
		docSlot(models.DocTypeInsurance, models.DocumentStatusPending, false, &past),
	}
	p := DocumentProgress(docs, now)
	require.Equal(t, []string{models.DocTypeTitle}, p.OverdueDocuments)
	require.Equal(t, 2, p.PendingDocumentsCount)
}

func TestDocumentProgressIsPure(t *testing.T) {
	now := time.Now()
	docs := []models.DealDocument{
		docSlot(models.DocTypeTitle, models.DocumentStatusPending, true, nil),
	}
	first := DocumentProgress(docs, now)
	second := DocumentProgress(docs, now)
	require.Equal(t, first, second)
	require.Equal(t, models.DocumentStatusPending, docs[0].Status)
}
