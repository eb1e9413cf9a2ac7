package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
)

// RequestInspection creates a pending inspection with a fresh verification
// code. Fee is snapshotted from the property at creation time. Repeated
// requests for the same (property, user) pair create independent records.
// A zero scheduledAt schedules the inspection for the request time.
func (e *Engine) RequestInspection(propertyID string, scheduledAt time.Time, principal Principal) (*models.Inspection, error) {
	property, err := e.db.GetProperty(propertyID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("property not found")
		}
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}

	inspection := &models.Inspection{
		PropertyID:    property.ID,
		OwnerID:       property.OwnerID,
		RequesterID:   principal.UserID,
		Code:          code,
		Status:        models.InspectionPending,
		Fee:           property.InspectionFee,
		ScheduledDate: scheduledAt,
	}
	if err := e.db.CreateInspection(inspection); err != nil {
		return nil, err
	}

	e.notifier.Notify(principal.UserID, "Inspection Requested",
		fmt.Sprintf("Inspection requested for %q. Use code %s to verify.", property.Title, code),
		models.Event{Type: "inspection_requested", InspectionID: inspection.ID})

	e.logger.WithFields(map[string]interface{}{
		"inspection_id": inspection.ID,
		"property_id":   property.ID,
	}).Info("Inspection requested")

	return inspection, nil
}

// VerifyInspectionCode transitions a pending inspection to verified when
// the original requester presents the matching code. The transition is
// one-way; a wrong code leaves the inspection pending and retryable.
func (e *Engine) VerifyInspectionCode(inspectionID, code string, principal Principal) (*models.Inspection, error) {
	inspection, err := e.db.GetInspection(inspectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("inspection not found")
		}
		return nil, err
	}

	if inspection.RequesterID != principal.UserID {
		return nil, unauthorized("only the requesting user may verify this inspection")
	}
	if inspection.Status == models.InspectionVerified {
		return nil, conflict("inspection already verified")
	}
	if strings.TrimSpace(code) != inspection.Code {
		return nil, invalidInput("incorrect code")
	}

	ok, err := e.db.MarkInspectionVerified(inspection.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the transition to a concurrent verify.
		return nil, conflict("inspection already verified")
	}
	inspection.Status = models.InspectionVerified

	e.notifier.Notify(principal.UserID, "Inspection Verified",
		"Inspection code verified. You can now pay the inspection fee.",
		models.Event{Type: "inspection_verified", InspectionID: inspection.ID})

	return inspection, nil
}

// InitializeInspectionPayment creates the pending escrow and obtains a
// payment authorization handle. The escrow is created before the gateway
// call; a gateway failure cancels it so no orphaned pending custody record
// survives the request.
func (e *Engine) InitializeInspectionPayment(inspectionID string, principal Principal) (*PaymentInit, error) {
	inspection, err := e.db.GetInspection(inspectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("inspection not found")
		}
		return nil, err
	}

	if inspection.RequesterID != principal.UserID {
		return nil, unauthorized("only the requesting user may pay for this inspection")
	}
	if inspection.Status != models.InspectionVerified {
		return nil, conflict("inspection must be verified first")
	}
	if inspection.FeePaid {
		return nil, conflict("inspection fee already paid")
	}

	reference, err := newReference()
	if err != nil {
		return nil, err
	}

	escrow := &models.Escrow{
		PropertyID: inspection.PropertyID,
		BuyerID:    inspection.RequesterID,
		SellerID:   inspection.OwnerID,
		RecordID:   inspection.ID,
		Amount:     inspection.Fee,
		Status:     models.EscrowPending,
		Type:       models.EscrowInspection,
		Reference:  reference,
	}
	if err := e.db.CreateEscrow(escrow); err != nil {
		return nil, err
	}

	init, err := e.gateway.Initialize(principal.Email, inspection.Fee*100, reference)
	if err != nil {
		if _, cancelErr := e.db.CancelPendingEscrow(reference); cancelErr != nil {
			e.logger.WithError(cancelErr).WithField("reference", reference).
				Error("Failed to cancel escrow after gateway failure")
		}
		return nil, err
	}

	e.notifier.Notify(inspection.RequesterID, "Inspection Payment Started",
		"You initiated inspection payment. Your money will be held in escrow until verification.",
		models.Event{Type: "inspection_payment_started", InspectionID: inspection.ID, EscrowID: escrow.ID})
	e.notifier.Notify(inspection.OwnerID, "Incoming Inspection Payment",
		"A buyer has initiated payment for inspection of your property.",
		models.Event{Type: "inspection_payment_started", InspectionID: inspection.ID, EscrowID: escrow.ID})

	return &PaymentInit{
		AuthorizationURL: init.AuthorizationURL,
		Reference:        reference,
		EscrowID:         escrow.ID,
	}, nil
}

// ConfirmInspectionPayment reconciles a gateway settlement into the
// ledger: one transaction flips the escrow from pending to approved and
// the inspection to fee-paid. Safe under at-least-once delivery: a
// replayed confirmation for an already approved escrow returns success
// without re-emitting notifications.
func (e *Engine) ConfirmInspectionPayment(reference, inspectionID string) (*models.Inspection, *models.Escrow, error) {
	settled, err := e.gateway.Verify(reference)
	if err != nil {
		return nil, nil, err
	}
	if !settled {
		return nil, nil, &Error{Kind: KindGateway, Message: "payment not successful"}
	}

	inspection, err := e.db.GetInspection(inspectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, notFound("inspection not found")
		}
		return nil, nil, err
	}

	escrow, err := e.db.GetEscrowByReference(reference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, notFound("escrow record not found for this transaction")
		}
		return nil, nil, err
	}
	if escrow.Type != models.EscrowInspection || escrow.RecordID != inspection.ID {
		return nil, nil, invalidInput("payment reference does not belong to this inspection")
	}
	if escrow.Status == models.EscrowCancelled || escrow.Status == models.EscrowReleased {
		return nil, nil, conflict("escrow is no longer awaiting approval")
	}

	var firstApproval bool
	err = e.db.Transaction(func(tx *gorm.DB) error {
		won, err := database.ApproveEscrow(tx, reference, e.custodianID)
		if err != nil {
			return err
		}
		firstApproval = won
		// Repair the domain record even on replay, so an approved escrow
		// with a stale inspection converges.
		if _, err := database.MarkInspectionFeePaid(tx, inspection.ID, e.custodianID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if firstApproval {
		event := models.Event{Type: "inspection_fee_paid", InspectionID: inspection.ID, EscrowID: escrow.ID}
		e.notifier.Notify(inspection.RequesterID, "Inspection Fee Paid",
			"Your inspection fee has been paid successfully and is being held in escrow.", event)
		e.notifier.Notify(inspection.OwnerID, "Inspection Fee Received",
			"The inspection fee for your property has been paid and the funds are held in escrow.", event)
		e.notifier.Notify(e.custodianID, "New Escrow Payment",
			"A new inspection escrow payment has been approved.", event)

		e.logger.WithFields(map[string]interface{}{
			"inspection_id": inspection.ID,
			"reference":     reference,
		}).Info("Inspection payment confirmed")
	}

	inspection, err = e.db.GetInspection(inspectionID)
	if err != nil {
		return nil, nil, err
	}
	escrow, err = e.db.GetEscrowByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	return inspection, escrow, nil
}

// GetInspection returns one inspection, scoped to its participants, the
// managing agent, and admins.
func (e *Engine) GetInspection(inspectionID string, principal Principal) (*models.Inspection, error) {
	inspection, err := e.db.GetInspection(inspectionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("inspection not found")
		}
		return nil, err
	}
	if !e.canSeeInspection(inspection, principal) {
		return nil, unauthorized("not allowed to view this inspection")
	}
	return inspection, nil
}

func (e *Engine) canSeeInspection(inspection *models.Inspection, principal Principal) bool {
	if principal.isAdmin() ||
		inspection.RequesterID == principal.UserID ||
		inspection.OwnerID == principal.UserID {
		return true
	}
	property, err := e.db.GetProperty(inspection.PropertyID)
	return err == nil && property.AgentID != "" && property.AgentID == principal.UserID
}

// ListInspections returns the caller's visible inspections: admins see
// all, agents see inspections on their managed properties, everyone else
// sees their own requests.
func (e *Engine) ListInspections(principal Principal) ([]models.Inspection, error) {
	switch {
	case principal.isAdmin():
		return e.db.ListAllInspections()
	case principal.Role == models.RoleAgent:
		return e.db.ListInspectionsByAgent(principal.UserID)
	default:
		return e.db.ListInspectionsByRequester(principal.UserID)
	}
}
