package workflow

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
)

// RequestPurchase creates a pending purchase for the property, gated on a
// verified, fee-paid inspection for the same (property, buyer) pair.
// Price and owner are snapshotted from the property.
func (e *Engine) RequestPurchase(propertyID string, principal Principal) (*models.Purchase, error) {
	property, err := e.db.GetProperty(propertyID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("property not found")
		}
		return nil, err
	}

	inspection, err := e.db.FindPaidInspection(propertyID, principal.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, preconditionFailed("you must complete and pay for inspection first")
		}
		return nil, err
	}

	purchase := &models.Purchase{
		PropertyID:   property.ID,
		BuyerID:      principal.UserID,
		OwnerID:      property.OwnerID,
		InspectionID: inspection.ID,
		Price:        property.Price,
		Status:       models.PurchasePending,
	}
	if err := e.db.CreatePurchase(purchase); err != nil {
		return nil, err
	}

	e.notifier.Notify(principal.UserID, "Purchase Requested",
		fmt.Sprintf("Purchase requested for %q. Proceed to payment.", property.Title),
		models.Event{Type: "purchase_requested", PurchaseID: purchase.ID})

	e.logger.WithFields(map[string]interface{}{
		"purchase_id": purchase.ID,
		"property_id": property.ID,
	}).Info("Purchase requested")

	return purchase, nil
}

// InitializePurchasePayment creates the pending purchase escrow and
// obtains a payment authorization handle, with the same escrow-first,
// cancel-on-gateway-failure ordering as inspections.
func (e *Engine) InitializePurchasePayment(purchaseID string, principal Principal) (*PaymentInit, error) {
	purchase, err := e.db.GetPurchase(purchaseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("purchase not found")
		}
		return nil, err
	}

	if purchase.BuyerID != principal.UserID {
		return nil, unauthorized("only the buyer may pay for this purchase")
	}
	if purchase.FeePaid {
		return nil, conflict("purchase already paid")
	}

	reference, err := newReference()
	if err != nil {
		return nil, err
	}

	escrow := &models.Escrow{
		PropertyID: purchase.PropertyID,
		BuyerID:    purchase.BuyerID,
		SellerID:   purchase.OwnerID,
		RecordID:   purchase.ID,
		Amount:     purchase.Price,
		Status:     models.EscrowPending,
		Type:       models.EscrowPurchase,
		Reference:  reference,
	}
	if err := e.db.CreateEscrow(escrow); err != nil {
		return nil, err
	}

	init, err := e.gateway.Initialize(principal.Email, purchase.Price*100, reference)
	if err != nil {
		if _, cancelErr := e.db.CancelPendingEscrow(reference); cancelErr != nil {
			e.logger.WithError(cancelErr).WithField("reference", reference).
				Error("Failed to cancel escrow after gateway failure")
		}
		return nil, err
	}

	event := models.Event{Type: "purchase_payment_started", PurchaseID: purchase.ID, EscrowID: escrow.ID}
	e.notifier.Notify(purchase.BuyerID, "Purchase Payment Initiated",
		"Your payment for this purchase is initializing. Escrow has been created.", event)
	e.notifier.Notify(purchase.OwnerID, "Purchase Payment Started",
		"A buyer has initiated payment for your property. Funds will be held in escrow.", event)
	e.notifier.Notify(e.custodianID, "New Purchase Escrow",
		"A new purchase payment has been initiated and escrow created.", event)

	return &PaymentInit{
		AuthorizationURL: init.AuthorizationURL,
		Reference:        reference,
		EscrowID:         escrow.ID,
	}, nil
}

// ConfirmPurchasePayment settles a purchase payment: one transaction
// approves the escrow and moves the purchase to paid. Idempotent under
// duplicate confirmation.
func (e *Engine) ConfirmPurchasePayment(reference, purchaseID string) (*models.Purchase, *models.Escrow, error) {
	settled, err := e.gateway.Verify(reference)
	if err != nil {
		return nil, nil, err
	}
	if !settled {
		return nil, nil, &Error{Kind: KindGateway, Message: "payment not successful"}
	}

	purchase, err := e.db.GetPurchase(purchaseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, notFound("purchase not found")
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
	if escrow.Type != models.EscrowPurchase || escrow.RecordID != purchase.ID {
		return nil, nil, invalidInput("payment reference does not belong to this purchase")
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
		if _, err := database.MarkPurchasePaid(tx, purchase.ID, e.custodianID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if firstApproval {
		event := models.Event{Type: "purchase_payment_verified", PurchaseID: purchase.ID, EscrowID: escrow.ID}
		e.notifier.Notify(purchase.BuyerID, "Purchase Payment Verified",
			"Your purchase payment is now verified and securely held in escrow.", event)
		e.notifier.Notify(purchase.OwnerID, "Purchase Payment Held in Escrow",
			"Payment for your property is verified and held in escrow pending release.", event)
		e.notifier.Notify(e.custodianID, "Purchase Escrow Updated",
			"Payment verified for purchase and funds are now in escrow.", event)

		e.logger.WithFields(map[string]interface{}{
			"purchase_id": purchase.ID,
			"reference":   reference,
		}).Info("Purchase payment confirmed")
	}

	purchase, err = e.db.GetPurchase(purchaseID)
	if err != nil {
		return nil, nil, err
	}
	escrow, err = e.db.GetEscrowByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	return purchase, escrow, nil
}

// GetPurchase returns one purchase, scoped to its participants, the
// managing agent, and admins.
func (e *Engine) GetPurchase(purchaseID string, principal Principal) (*models.Purchase, error) {
	purchase, err := e.db.GetPurchase(purchaseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFound("purchase not found")
		}
		return nil, err
	}
	if !e.canSeePurchase(purchase, principal) {
		return nil, unauthorized("not allowed to view this purchase")
	}
	return purchase, nil
}

func (e *Engine) canSeePurchase(purchase *models.Purchase, principal Principal) bool {
	if principal.isAdmin() ||
		purchase.BuyerID == principal.UserID ||
		purchase.OwnerID == principal.UserID {
		return true
	}
	property, err := e.db.GetProperty(purchase.PropertyID)
	return err == nil && property.AgentID != "" && property.AgentID == principal.UserID
}

// ListPurchases mirrors the inspection list scoping.
func (e *Engine) ListPurchases(principal Principal) ([]models.Purchase, error) {
	switch {
	case principal.isAdmin():
		return e.db.ListAllPurchases()
	case principal.Role == models.RoleAgent:
		return e.db.ListPurchasesByAgent(principal.UserID)
	default:
		return e.db.ListPurchasesByBuyer(principal.UserID)
	}
}
