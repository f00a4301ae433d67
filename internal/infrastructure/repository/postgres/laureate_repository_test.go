package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

func newLaureateRepoWithMock(t *testing.T) (*LaureateRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &LaureateRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestLaureateListOrdersByYear(t *testing.T) {
	repo, mock, done := newLaureateRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"full_name", "last_name", "year_awarded", "country", "gender", "language"}).
		AddRow("Toni Morrison", "Morrison", 1993, "United States", "female", "English").
		AddRow("Kazuo Ishiguro", "Ishiguro", 2017, "United Kingdom", "male", "English")
	mock.ExpectQuery("SELECT full_name, last_name, year_awarded").WillReturnRows(rows)

	laureates, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(laureates) != 2 || laureates[0].FullName != "Toni Morrison" || laureates[1].YearAwarded != 2017 {
		t.Fatalf("laureates = %+v", laureates)
	}
}

func TestLaureateGetByNameNotFound(t *testing.T) {
	repo, mock, done := newLaureateRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT full_name, last_name, year_awarded").
		WithArgs("Unknown Writer").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByName(context.Background(), "Unknown Writer")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestLaureateUpsertDerivesLastName(t *testing.T) {
	repo, mock, done := newLaureateRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO laureates").
		WithArgs("Olga Tokarczuk", "Tokarczuk", 2018, "Poland", "female", "Polish").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), []domain.Laureate{
		{FullName: "Olga Tokarczuk", YearAwarded: 2018, Country: "Poland", Gender: "female", Language: "Polish"},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLaureateUpsertEmptyIsNoop(t *testing.T) {
	repo, mock, done := newLaureateRepoWithMock(t)
	defer done()

	if err := repo.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert(nil) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
