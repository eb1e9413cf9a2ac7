package reconcile

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nestkey/server/internal/database"
	"nestkey/server/internal/models"
)

// Sweeper periodically reconciles the ledger. The escrow record is the
// source of truth for where the money is, so the sweep repairs domain
// records that lag behind an approved escrow and expires pending escrows
// whose payment never arrived.
type Sweeper struct {
	db            *database.Database
	logger        *logrus.Logger
	custodianID   string
	interval      time.Duration
	pendingExpiry time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

func NewSweeper(db *database.Database, custodianID string, interval, pendingExpiry time.Duration, logger *logrus.Logger) *Sweeper {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Sweeper{
		db:            db,
		logger:        logger,
		custodianID:   custodianID,
		interval:      interval,
		pendingExpiry: pendingExpiry,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.Sweep(); err != nil {
				s.logger.WithError(err).Error("Reconciliation sweep failed")
			}
		}
	}
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep() error {
	if err := s.repairInspections(); err != nil {
		return err
	}
	if err := s.repairPurchases(); err != nil {
		return err
	}
	return s.expirePendingEscrows()
}

// repairInspections re-derives inspection fee state from approved
// inspection escrows.
func (s *Sweeper) repairInspections() error {
	escrows, err := s.db.ListApprovedEscrows(models.EscrowInspection)
	if err != nil {
		return err
	}

	for _, escrow := range escrows {
		repaired, err := database.MarkInspectionFeePaid(s.db.GetDB(), escrow.RecordID, s.custodianID)
		if err != nil {
			return err
		}
		if repaired {
			s.logger.WithFields(logrus.Fields{
				"inspection_id": escrow.RecordID,
				"reference":     escrow.Reference,
			}).Warn("Repaired inspection left stale behind approved escrow")
		}
	}
	return nil
}

// repairPurchases re-derives purchase state from approved purchase
// escrows.
func (s *Sweeper) repairPurchases() error {
	escrows, err := s.db.ListApprovedEscrows(models.EscrowPurchase)
	if err != nil {
		return err
	}

	for _, escrow := range escrows {
		repaired, err := database.MarkPurchasePaid(s.db.GetDB(), escrow.RecordID, s.custodianID)
		if err != nil {
			return err
		}
		if repaired {
			s.logger.WithFields(logrus.Fields{
				"purchase_id": escrow.RecordID,
				"reference":   escrow.Reference,
			}).Warn("Repaired purchase left stale behind approved escrow")
		}
	}
	return nil
}

// expirePendingEscrows cancels escrows that stayed pending past the
// expiry window, so an abandoned or timed-out payment does not hold a
// custody record open forever.
func (s *Sweeper) expirePendingEscrows() error {
	stale, err := s.db.ListStalePendingEscrows(time.Now().Add(-s.pendingExpiry))
	if err != nil {
		return err
	}

	for _, escrow := range stale {
		cancelled, err := s.db.CancelPendingEscrow(escrow.Reference)
		if err != nil {
			return err
		}
		if cancelled {
			s.logger.WithFields(logrus.Fields{
				"reference": escrow.Reference,
				"type":      escrow.Type,
			}).Info("Expired stale pending escrow")
		}
	}
	return nil
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
