package persistence

import (
	"context"

	apppayment "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/payment"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// If the function returns an error, the transaction is rolled back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppayment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() payment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// ReconciliationRepo returns the reconciliation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReconciliationRepo() payment.ReconciliationRepository {
	return NewGormReconciliationRepository(r.tx)
}

var _ apppayment.TransactionScope = (*GormTransactionScope)(nil)

var _ apppayment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
