package database

import "nestkey/server/internal/models"

// GetTransactionStats summarizes escrow activity across the ledger.
func (d *Database) GetTransactionStats() (*models.TransactionStats, error) {
	var stats models.TransactionStats
	err := d.db.Raw(`
        SELECT
            COUNT(*) AS total_escrows,
            COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_escrows,
            COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0) AS approved_escrows,
            COALESCE(SUM(CASE WHEN status = 'approved' THEN amount ELSE 0 END), 0) AS amount_held,
            COALESCE(SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END), 0) AS amount_pending
        FROM escrows
    `).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
