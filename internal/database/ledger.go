package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nestkey/server/internal/models"
)

var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---- Users ----

func (d *Database) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return d.db.Create(user).Error
}

func (d *Database) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ---- Properties ----

func (d *Database) CreateProperty(property *models.Property) error {
	if property.ID == "" {
		property.ID = uuid.NewString()
	}
	if property.Status == "" {
		property.Status = models.PropertyAvailable
	}
	return d.db.Create(property).Error
}

func (d *Database) GetProperty(id string) (*models.Property, error) {
	var property models.Property
	if err := d.db.First(&property, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &property, nil
}

func (d *Database) ListProperties() ([]models.Property, error) {
	var properties []models.Property
	err := d.db.Order("created_at DESC").Find(&properties).Error
	return properties, err
}

func (d *Database) ListPropertiesByAgent(agentID string) ([]models.Property, error) {
	var properties []models.Property
	err := d.db.Where("agent_id = ?", agentID).Order("created_at DESC").Find(&properties).Error
	return properties, err
}

// ---- Inspections ----

func (d *Database) CreateInspection(inspection *models.Inspection) error {
	if inspection.ID == "" {
		inspection.ID = uuid.NewString()
	}
	if inspection.Status == "" {
		inspection.Status = models.InspectionPending
	}
	return d.db.Create(inspection).Error
}

func (d *Database) GetInspection(id string) (*models.Inspection, error) {
	var inspection models.Inspection
	if err := d.db.First(&inspection, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &inspection, nil
}

// FindPaidInspection returns a verified, fee-paid inspection for the given
// property and buyer, or ErrNotFound.
func (d *Database) FindPaidInspection(propertyID, buyerID string) (*models.Inspection, error) {
	var inspection models.Inspection
	err := d.db.
		Where("property_id = ? AND requester_id = ? AND status = ? AND fee_paid = ?",
			propertyID, buyerID, models.InspectionVerified, true).
		First(&inspection).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inspection, nil
}

func (d *Database) ListInspectionsByRequester(userID string) ([]models.Inspection, error) {
	var inspections []models.Inspection
	err := d.db.Where("requester_id = ?", userID).Order("created_at DESC").Find(&inspections).Error
	return inspections, err
}

func (d *Database) ListInspectionsByAgent(agentID string) ([]models.Inspection, error) {
	var inspections []models.Inspection
	sub := d.db.Model(&models.Property{}).Select("id").Where("agent_id = ?", agentID)
	err := d.db.Where("property_id IN (?)", sub).Order("created_at DESC").Find(&inspections).Error
	return inspections, err
}

func (d *Database) ListAllInspections() ([]models.Inspection, error) {
	var inspections []models.Inspection
	err := d.db.Order("created_at DESC").Find(&inspections).Error
	return inspections, err
}

// MarkInspectionVerified transitions an inspection from pending to
// verified. Returns false when the inspection was not pending; the
// transition is one-way.
func (d *Database) MarkInspectionVerified(id string) (bool, error) {
	res := d.db.Model(&models.Inspection{}).
		Where("id = ? AND status = ?", id, models.InspectionPending).
		Update("status", models.InspectionVerified)
	return res.RowsAffected > 0, res.Error
}

// ---- Purchases ----

func (d *Database) CreatePurchase(purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	if purchase.Status == "" {
		purchase.Status = models.PurchasePending
	}
	return d.db.Create(purchase).Error
}

func (d *Database) GetPurchase(id string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := d.db.First(&purchase, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

func (d *Database) ListPurchasesByBuyer(buyerID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := d.db.Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (d *Database) ListPurchasesByAgent(agentID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	sub := d.db.Model(&models.Property{}).Select("id").Where("agent_id = ?", agentID)
	err := d.db.Where("property_id IN (?)", sub).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (d *Database) ListAllPurchases() ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := d.db.Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

// ---- Escrows ----

func (d *Database) CreateEscrow(escrow *models.Escrow) error {
	if escrow.ID == "" {
		escrow.ID = uuid.NewString()
	}
	if escrow.Status == "" {
		escrow.Status = models.EscrowPending
	}
	return d.db.Create(escrow).Error
}

func (d *Database) GetEscrowByReference(reference string) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := d.db.First(&escrow, "reference = ?", reference).Error; err != nil {
		return nil, translate(err)
	}
	return &escrow, nil
}

func (d *Database) ListEscrowsByHolder(heldBy string) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := d.db.Where("held_by = ?", heldBy).Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

func (d *Database) ListEscrowsByParty(userID string) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := d.db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

func (d *Database) ListAllEscrows() ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := d.db.Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

// ListStalePendingEscrows returns pending escrows created before cutoff.
func (d *Database) ListStalePendingEscrows(cutoff time.Time) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := d.db.
		Where("status = ? AND created_at < ?", models.EscrowPending, cutoff).
		Find(&escrows).Error
	return escrows, err
}

// ListApprovedEscrows returns approved escrows of the given type.
func (d *Database) ListApprovedEscrows(escrowType models.EscrowType) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := d.db.
		Where("status = ? AND type = ?", models.EscrowApproved, escrowType).
		Find(&escrows).Error
	return escrows, err
}

// CancelPendingEscrow transitions an escrow from pending to cancelled.
// Returns false if the escrow was no longer pending.
func (d *Database) CancelPendingEscrow(reference string) (bool, error) {
	res := d.db.Model(&models.Escrow{}).
		Where("reference = ? AND status = ?", reference, models.EscrowPending).
		Update("status", models.EscrowCancelled)
	return res.RowsAffected > 0, res.Error
}

// ---- Transaction-scoped conditional updates ----
//
// These run inside Database.Transaction so the escrow transition and the
// owning domain record move in lockstep. All of them are compare-and-set:
// the WHERE clause carries the expected prior state and RowsAffected
// reports whether this caller won the transition.

// ApproveEscrow transitions an escrow from pending to approved and
// records the custodian holding the funds.
func ApproveEscrow(tx *gorm.DB, reference, heldBy string) (bool, error) {
	now := time.Now()
	res := tx.Model(&models.Escrow{}).
		Where("reference = ? AND status = ?", reference, models.EscrowPending).
		Updates(map[string]interface{}{
			"status":      models.EscrowApproved,
			"held_by":     heldBy,
			"approved_at": now,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkInspectionFeePaid flips fee_paid from false to true exactly once.
func MarkInspectionFeePaid(tx *gorm.DB, id, heldBy string) (bool, error) {
	res := tx.Model(&models.Inspection{}).
		Where("id = ? AND fee_paid = ?", id, false).
		Updates(map[string]interface{}{
			"fee_paid":       true,
			"escrow_held_by": heldBy,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkPurchasePaid flips fee_paid from false to true and moves the
// purchase to paid, exactly once.
func MarkPurchasePaid(tx *gorm.DB, id, heldBy string) (bool, error) {
	res := tx.Model(&models.Purchase{}).
		Where("id = ? AND fee_paid = ?", id, false).
		Updates(map[string]interface{}{
			"fee_paid":       true,
			"status":         models.PurchasePaid,
			"escrow_held_by": heldBy,
		})
	return res.RowsAffected > 0, res.Error
}
