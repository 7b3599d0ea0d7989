package payment

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
)

// TransactionScope runs work inside a single database transaction.
// The transaction is rolled back when fn returns an error and committed otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories that share the
// enclosing transaction. Reconciliation records and the payment state change
// are written through these so they commit or roll back together.
type TransactionalRepositories interface {
	PaymentRepo() payment.PaymentRepository
	ReconciliationRepo() payment.ReconciliationRepository
}
