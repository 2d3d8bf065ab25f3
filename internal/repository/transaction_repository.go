package repository

import (
	"context"

	"github.com/weddia/escrow-api/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository defines the interface for escrow transaction data
// access. The ledger is append-only: there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, entry *models.EscrowTransaction) error
	FindByEscrowAccountID(ctx context.Context, escrowAccountID uint) ([]models.EscrowTransaction, error)
	FindByReference(ctx context.Context, reference string) ([]models.EscrowTransaction, error)
	LedgerBalance(ctx context.Context, escrowAccountID uint) (float64, error)
	SumByType(ctx context.Context, escrowAccountID uint) (map[string]float64, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.EscrowTransaction, int64, error)
}

// transactionRepository handles database operations for escrow transactions
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create appends a new ledger entry
func (r *transactionRepository) Create(ctx context.Context, entry *models.EscrowTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByEscrowAccountID retrieves all ledger entries for an escrow account
// in insertion order
func (r *transactionRepository) FindByEscrowAccountID(ctx context.Context, escrowAccountID uint) ([]models.EscrowTransaction, error) {
	var entries []models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("escrow_account_id = ?", escrowAccountID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// FindByReference retrieves ledger entries carrying a payment reference
func (r *transactionRepository) FindByReference(ctx context.Context, reference string) ([]models.EscrowTransaction, error) {
	var entries []models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// LedgerBalance computes the held balance from the ledger alone:
// deposits add, everything else subtracts.
func (r *transactionRepository) LedgerBalance(ctx context.Context, escrowAccountID uint) (float64, error) {
	var result struct {
		Balance float64
	}

	err := r.db.WithContext(ctx).
		Model(&models.EscrowTransaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0) as balance", models.TransactionTypeDeposit).
		Where("escrow_account_id = ?", escrowAccountID).
		Scan(&result).Error

	return result.Balance, err
}

// SumByType aggregates ledger amounts per transaction type, used by the
// ledger verification report
func (r *transactionRepository) SumByType(ctx context.Context, escrowAccountID uint) (map[string]float64, error) {
	var rows []struct {
		Type  string
		Total float64
	}

	err := r.db.WithContext(ctx).
		Model(&models.EscrowTransaction{}).
		Select("type, COALESCE(SUM(amount), 0) as total").
		Where("escrow_account_id = ?", escrowAccountID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}

// ListAll retrieves ledger entries across all accounts, newest first,
// used by the export report
func (r *transactionRepository) ListAll(ctx context.Context, limit, offset int) ([]models.EscrowTransaction, int64, error) {
	var entries []models.EscrowTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&models.EscrowTransaction{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}
