package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testTenant  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testCompany = payment.Company{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Currency: valueobject.USD}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newSQLiteDB opens an in-memory database with the full schema. One
// connection keeps every query on the same in-memory database.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	return database.DB
}

// newMockDB returns a gorm postgres handle over go-sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func seedInvoice(t *testing.T, db *gorm.DB, partnerID uuid.UUID, number string, kind payment.InvoiceKind, state string, residual string, date time.Time) *models.InvoiceModel {
	t.Helper()
	inv := &models.InvoiceModel{
		BaseModel:      models.BaseModel{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		TenantID:       testTenant,
		Number:         number,
		PartnerID:      partnerID,
		Kind:           kind,
		State:          state,
		Currency:       valueobject.USD,
		AmountTotal:    decimal.RequireFromString(residual),
		AmountResidual: decimal.RequireFromString(residual),
		InvoiceDate:    date,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func newDraftPayment(t *testing.T, amount string) *payment.Payment {
	t.Helper()
	partner := uuid.New()
	p, err := payment.NewPayment(testTenant, payment.NewPaymentParams{
		Reference:   "PAY-0001",
		PaymentType: payment.PaymentTypeOutbound,
		PartnerID:   &partner,
		Amount:      decimal.RequireFromString(amount),
		Currency:    valueobject.USD,
		PaymentDate: day(2024, 3, 15),
		Company:     testCompany,
	})
	require.NoError(t, err)
	return p
}
