package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/database/testutil"
	"github.com/bigsauer/rp-exotics-platform/internal/models"
	apperrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
)

func newDealerService(t *testing.T) (*DealerService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewDealerService(db)
	require.NoError(t, err)
	return svc, db
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	svc, db := newDealerService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same name with different case resolves to the same row.
	second, err := svc.FindOrCreate(ctx, DealerInput{Name: "velocity motors"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Dealer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFindOrCreateMatchesByPhoneOrEmail(t *testing.T) {
	svc, db := newDealerService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, DealerInput{
		Name:    "Velocity Motors",
		Contact: models.DealerContact{Phone: "314-555-0100", Email: "sales@velocity.example"},
	})
	require.NoError(t, err)

	// A misspelled name still resolves through the phone number.
	byPhone, err := svc.FindOrCreate(ctx, DealerInput{
		Name:    "Velocity Motorsport",
		Contact: models.DealerContact{Phone: "314-555-0100"},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, byPhone.ID)

	byEmail, err := svc.FindOrCreate(ctx, DealerInput{
		Name:    "Velocity",
		Contact: models.DealerContact{Email: "SALES@velocity.example"},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, byEmail.ID)

	var count int64
	require.NoError(t, db.Model(&models.Dealer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFindOrCreateBackfillsMissingContact(t *testing.T) {
	svc, _ := newDealerService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, DealerInput{
		Name:    "Velocity Motors",
		Contact: models.DealerContact{Phone: "314-555-0100"},
	})
	require.NoError(t, err)
	require.Empty(t, first.Contact.Email)

	// The empty email is filled in; the existing phone stays put.
	matched, err := svc.FindOrCreate(ctx, DealerInput{
		Name:    "Velocity Motors",
		Company: "Velocity Motors LLC",
		Contact: models.DealerContact{Phone: "314-555-9999", Email: "sales@velocity.example"},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, matched.ID)
	require.Equal(t, "sales@velocity.example", matched.Contact.Email)
	require.Equal(t, "Velocity Motors LLC", matched.Company)
	require.Equal(t, "314-555-0100", matched.Contact.Phone)
}

func TestFindOrCreatePrivatePartySentinels(t *testing.T) {
	svc, db := newDealerService(t)
	ctx := context.Background()

	for _, name := range []string{PrivateSellerName, PrivateBuyerName, "private seller"} {
		dealer, err := svc.FindOrCreate(ctx, DealerInput{Name: name})
		require.NoError(t, err)
		require.Nil(t, dealer)
	}

	var count int64
	require.NoError(t, db.Model(&models.Dealer{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestRecordDealOutcomeKeepsMetricsInSync(t *testing.T) {
	svc, db := newDealerService(t)
	ctx := context.Background()

	dealer, err := svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordDealOutcome(ctx, dealer.ID, OutcomeInput{
		DealID: "deal-1", Type: models.DealHistoryPurchase, Amount: 85000, Vehicle: "2019 PORSCHE 911",
	}))
	require.NoError(t, svc.RecordDealOutcome(ctx, dealer.ID, OutcomeInput{
		DealID: "deal-2", Type: models.DealHistorySale, Amount: 97500, Vehicle: "2019 PORSCHE 911",
	}))

	got, err := svc.Get(ctx, dealer.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Metrics.TotalDeals)
	require.Len(t, got.DealHistory, got.Metrics.TotalDeals)
	require.InDelta(t, 85000, got.Metrics.TotalPurchaseVolume, 0.001)
	require.InDelta(t, 97500, got.Metrics.TotalSaleVolume, 0.001)
	require.NotNil(t, got.Metrics.LastDealDate)

	var historyCount int64
	require.NoError(t, db.Model(&models.DealerHistoryEntry{}).Where("dealer_id = ?", dealer.ID).Count(&historyCount).Error)
	require.EqualValues(t, got.Metrics.TotalDeals, historyCount)
}

func TestRecordDealOutcomeRejectsUnknownType(t *testing.T) {
	svc, _ := newDealerService(t)
	ctx := context.Background()

	dealer, err := svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)

	err = svc.RecordDealOutcome(ctx, dealer.ID, OutcomeInput{Type: "trade", Amount: 100})
	require.Error(t, err)

	got, err := svc.Get(ctx, dealer.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Metrics.TotalDeals)
}

func TestRecordDealOutcomeUnknownDealer(t *testing.T) {
	svc, _ := newDealerService(t)
	err := svc.RecordDealOutcome(context.Background(), "missing", OutcomeInput{Type: models.DealHistorySale, Amount: 1})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSearchMinimumQueryLength(t *testing.T) {
	svc, _ := newDealerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "V")
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = svc.Search(ctx, "Ve")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchLimitAndFields(t *testing.T) {
	svc, _ := newDealerService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, DealerInput{
			Name:    "Prestige Auto " + string(rune('A'+i)),
			Contact: models.DealerContact{Email: "sales@prestige.example"},
		})
		require.NoError(t, err)
	}

	results, err := svc.Search(ctx, "Prestige")
	require.NoError(t, err)
	require.Len(t, results, 10)

	results, err = svc.Search(ctx, "prestige.example")
	require.NoError(t, err)
	require.Len(t, results, 10)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc, _ := newDealerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestUpdateAndDeleteDealer(t *testing.T) {
	svc, db := newDealerService(t)
	ctx := context.Background()

	dealer, err := svc.Create(ctx, DealerInput{Name: "Velocity Motors"})
	require.NoError(t, err)

	notes := "prefers wire transfers"
	inactive := false
	updated, err := svc.Update(ctx, dealer.ID, DealerUpdateInput{Notes: &notes, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)
	require.False(t, updated.IsActive)

	require.NoError(t, svc.RecordDealOutcome(ctx, dealer.ID, OutcomeInput{
		DealID: "deal-1", Type: models.DealHistorySale, Amount: 50000, Date: time.Now(),
	}))

	require.NoError(t, svc.Delete(ctx, dealer.ID))
	_, err = svc.Get(ctx, dealer.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	var historyCount int64
	require.NoError(t, db.Model(&models.DealerHistoryEntry{}).Count(&historyCount).Error)
	require.EqualValues(t, 0, historyCount)
}
