package reconcile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSweep_RepairsStaleInspection(t *testing.T) {
	db := newTestDatabase(t)

	inspection := &models.Inspection{
		PropertyID:  "prop-1",
		OwnerID:     "seller-1",
		RequesterID: "buyer-1",
		Code:        "123456",
		Status:      models.InspectionVerified,
		Fee:         5000,
	}
	require.NoError(t, db.CreateInspection(inspection))

	// Escrow approved but the inspection write never landed.
	require.NoError(t, db.CreateEscrow(&models.Escrow{
		PropertyID: "prop-1",
		BuyerID:    "buyer-1",
		SellerID:   "seller-1",
		RecordID:   inspection.ID,
		Amount:     5000,
		Type:       models.EscrowInspection,
		Reference:  "ref-1",
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := database.ApproveEscrow(tx, "ref-1", "admin-1")
		return err
	}))

	sweeper := NewSweeper(db, "admin-1", time.Minute, time.Hour, logrus.New())
	require.NoError(t, sweeper.Sweep())

	got, err := db.GetInspection(inspection.ID)
	require.NoError(t, err)
	assert.True(t, got.FeePaid)
	assert.Equal(t, "admin-1", got.EscrowHeldBy)

	// A second sweep finds nothing to repair.
	require.NoError(t, sweeper.Sweep())
}

func TestSweep_RepairsStalePurchase(t *testing.T) {
	db := newTestDatabase(t)

	purchase := &models.Purchase{
		PropertyID:   "prop-1",
		BuyerID:      "buyer-1",
		OwnerID:      "seller-1",
		InspectionID: "insp-1",
		Price:        100000,
	}
	require.NoError(t, db.CreatePurchase(purchase))

	require.NoError(t, db.CreateEscrow(&models.Escrow{
		PropertyID: "prop-1",
		BuyerID:    "buyer-1",
		SellerID:   "seller-1",
		RecordID:   purchase.ID,
		Amount:     100000,
		Type:       models.EscrowPurchase,
		Reference:  "ref-2",
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := database.ApproveEscrow(tx, "ref-2", "admin-1")
		return err
	}))

	sweeper := NewSweeper(db, "admin-1", time.Minute, time.Hour, logrus.New())
	require.NoError(t, sweeper.Sweep())

	got, err := db.GetPurchase(purchase.ID)
	require.NoError(t, err)
	assert.True(t, got.FeePaid)
	assert.Equal(t, models.PurchasePaid, got.Status)
}

func TestSweep_ExpiresStalePendingEscrows(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.CreateEscrow(&models.Escrow{
		PropertyID: "prop-1",
		BuyerID:    "buyer-1",
		SellerID:   "seller-1",
		Amount:     5000,
		Type:       models.EscrowInspection,
		Reference:  "ref-old",
	}))

	// Zero expiry treats every pending escrow as stale.
	sweeper := NewSweeper(db, "admin-1", time.Minute, 0, logrus.New())
	require.NoError(t, sweeper.Sweep())

	got, err := db.GetEscrowByReference("ref-old")
	require.NoError(t, err)
	assert.Equal(t, models.EscrowCancelled, got.Status)
}

func TestSweeper_StartStop(t *testing.T) {
	db := newTestDatabase(t)
	sweeper := NewSweeper(db, "admin-1", 10*time.Millisecond, time.Hour, logrus.New())

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
