package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func invoiceRows(invoiceID, clinicID, patientID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "clinic_id", "version", "invoice_number", "patient_id",
		"status", "total_due", "amount_paid", "issue_date",
	}).AddRow(
		invoiceID, clinicID, 1, "INV-20260301-00001", patientID,
		"SENT", decimal.NewFromFloat(1500), decimal.NewFromFloat(500), time.Now(),
	)
}

func TestNewGormInvoiceRepository(t *testing.T) {
	repo, _, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	t.Run("finds existing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		clinicID := uuid.New()
		patientID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnRows(invoiceRows(invoiceID, clinicID, patientID))

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, invoiceID, invoice.ID)
		assert.Equal(t, "INV-20260301-00001", invoice.InvoiceNumber)
		assert.Equal(t, billing.InvoiceStatusSent, invoice.Status)
		assert.True(t, invoice.TotalDue.Equal(decimal.NewFromFloat(1500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		assert.Error(t, err)
		assert.Nil(t, invoice)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindByIDForClinic(t *testing.T) {
	t.Run("scopes lookup to the clinic", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		clinicID := uuid.New()
		patientID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE clinic_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(clinicID, invoiceID, 1).
			WillReturnRows(invoiceRows(invoiceID, clinicID, patientID))

		invoice, err := repo.FindByIDForClinic(context.Background(), clinicID, invoiceID)

		require.NoError(t, err)
		assert.Equal(t, clinicID, invoice.ClinicID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invoice of another clinic is not found", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE clinic_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByIDForClinic(context.Background(), uuid.New(), uuid.New())

		assert.Nil(t, invoice)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindByIDs(t *testing.T) {
	t.Run("empty id list short-circuits", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoices, err := repo.FindByIDs(context.Background(), uuid.New(), nil)

		require.NoError(t, err)
		assert.Empty(t, invoices)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing ids are simply absent", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		clinicID := uuid.New()
		patientID := uuid.New()
		missingID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE clinic_id = \$1 AND id IN \(\$2,\$3\)`).
			WithArgs(clinicID, invoiceID, missingID).
			WillReturnRows(invoiceRows(invoiceID, clinicID, patientID))

		invoices, err := repo.FindByIDs(context.Background(), clinicID, []uuid.UUID{invoiceID, missingID})

		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, invoiceID, invoices[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindOutstandingByPatient(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	invoiceID := uuid.New()
	clinicID := uuid.New()
	patientID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE clinic_id = \$1 AND patient_id = \$2 AND status NOT IN \(\$3,\$4\) AND total_due > amount_paid ORDER BY issue_date ASC`).
		WithArgs(clinicID, patientID, "CANCELLED", "PAID").
		WillReturnRows(invoiceRows(invoiceID, clinicID, patientID))

	invoices, err := repo.FindOutstandingByPatient(context.Background(), clinicID, patientID)

	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].Balance().Equal(decimal.NewFromFloat(1000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_SumOutstandingByPatient(t *testing.T) {
	t.Run("sums open balances", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		clinicID := uuid.New()
		patientID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_due - amount_paid\), 0\) as total FROM "invoices"`).
			WithArgs(clinicID, patientID, "CANCELLED", "PAID").
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("2750.0000"))

		total, err := repo.SumOutstandingByPatient(context.Background(), clinicID, patientID)

		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromFloat(2750)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no invoices yields zero", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_due - amount_paid\), 0\) as total FROM "invoices"`).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))

		total, err := repo.SumOutstandingByPatient(context.Background(), uuid.New(), uuid.New())

		require.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	newInvoice := func() *billing.Invoice {
		inv := &billing.Invoice{
			InvoiceNumber: "INV-20260301-00001",
			PatientID:     uuid.New(),
			Status:        billing.InvoiceStatusSent,
			TotalDue:      decimal.NewFromFloat(1000),
			AmountPaid:    decimal.NewFromFloat(400),
			IssueDate:     time.Now(),
		}
		inv.ID = uuid.New()
		inv.ClinicID = uuid.New()
		inv.Version = 3
		return inv
	}

	t.Run("bumps version on success", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		inv := newInvoice()

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), inv)

		require.NoError(t, err)
		assert.Equal(t, 4, inv.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		inv := newInvoice()

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), inv)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.Equal(t, 3, inv.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_CountForClinic(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	clinicID := uuid.New()
	status := billing.InvoiceStatusSent

	mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE clinic_id = \$1 AND status = \$2`).
		WithArgs(clinicID, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountForClinic(context.Background(), clinicID, billing.InvoiceFilter{Status: &status})

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_GenerateInvoiceNumber(t *testing.T) {
	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("20060102"))

	t.Run("first invoice of the day", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		clinicID := uuid.New()

		mock.ExpectQuery(`SELECT "invoice_number" FROM "invoices" WHERE clinic_id = \$1 AND invoice_number LIKE \$2`).
			WithArgs(clinicID, prefix+"%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"invoice_number"}))

		number, err := repo.GenerateInvoiceNumber(context.Background(), clinicID)

		require.NoError(t, err)
		assert.Equal(t, prefix+"00001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("continues from the highest number", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		clinicID := uuid.New()

		mock.ExpectQuery(`SELECT "invoice_number" FROM "invoices" WHERE clinic_id = \$1 AND invoice_number LIKE \$2`).
			WithArgs(clinicID, prefix+"%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"invoice_number"}).AddRow(prefix + "00041"))

		number, err := repo.GenerateInvoiceNumber(context.Background(), clinicID)

		require.NoError(t, err)
		assert.Equal(t, prefix+"00042", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
