package workflow

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
	"nestkey/server/internal/notify"
	"nestkey/server/internal/payment"
)

// ErrNoCustodian is returned when the engine is constructed without an
// escrow custodian identity. The custodian is configuration, never a
// runtime lookup.
var ErrNoCustodian = errors.New("escrow custodian is not configured")

// Gateway is the slice of the payment provider the engine depends on.
type Gateway interface {
	Initialize(email string, amountMinor int64, reference string) (*payment.InitResult, error)
	Verify(reference string) (bool, error)
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	UserID string
	Email  string
	Role   models.Role
}

func (p Principal) isAdmin() bool {
	return p.Role == models.RoleAdmin
}

// PaymentInit is the redirect handle returned by payment initialization.
type PaymentInit struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	EscrowID         string `json:"escrow_id"`
}

// Engine orchestrates the inspection and purchase state machines over the
// ledger store, the payment gateway, and the notifier.
type Engine struct {
	db          *database.Database
	gateway     Gateway
	notifier    *notify.Notifier
	custodianID string
	logger      *logrus.Logger
}

func NewEngine(db *database.Database, gateway Gateway, notifier *notify.Notifier, custodianID string, logger *logrus.Logger) (*Engine, error) {
	if custodianID == "" {
		return nil, ErrNoCustodian
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Engine{
		db:          db,
		gateway:     gateway,
		notifier:    notifier,
		custodianID: custodianID,
		logger:      logger,
	}, nil
}

// ListEscrows returns the escrows visible to the caller: admins see all,
// everyone else sees escrows where they are the buyer or seller.
func (e *Engine) ListEscrows(principal Principal) ([]models.Escrow, error) {
	if principal.isAdmin() {
		return e.db.ListAllEscrows()
	}
	return e.db.ListEscrowsByParty(principal.UserID)
}

// TransactionStats exposes the ledger summary to admins.
func (e *Engine) TransactionStats(principal Principal) (*models.TransactionStats, error) {
	if !principal.isAdmin() {
		return nil, unauthorized("only the custodian may view transaction stats")
	}
	return e.db.GetTransactionStats()
}
