package db

import (
	"time"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

type LoanRepo struct {
	crudRepo[models.Loan]
}

func NewLoanRepo() *LoanRepo { return &LoanRepo{} }

const openLoan = "estado <> '" + string(models.LoanReturned) + "'"

func (LoanRepo) FindByMember(tx *gorm.DB, memberID int64) ([]models.Loan, error) {
	return findWhere[models.Loan](tx, "usuario_id = ?", memberID)
}

func (LoanRepo) FindByBook(tx *gorm.DB, bookID int64) ([]models.Loan, error) {
	return findWhere[models.Loan](tx, "libro_id = ?", bookID)
}

func (LoanRepo) FindByState(tx *gorm.DB, state models.LoanState) ([]models.Loan, error) {
	return findWhere[models.Loan](tx, "estado = ?", state)
}

func (r LoanRepo) FindActive(tx *gorm.DB) ([]models.Loan, error) {
	return r.FindByState(tx, models.LoanActive)
}

// FindOverdue lists active loans whose due date is before today, whether or
// not the sweep has flipped them yet.
func (LoanRepo) FindOverdue(tx *gorm.DB, today time.Time) ([]models.Loan, error) {
	return findWhere[models.Loan](tx,
		"(estado = ? AND fecha_devolucion_esperada < ?) OR estado = ?",
		models.LoanActive, models.DateOf(today), models.LoanOverdue)
}

func (LoanRepo) FindOpenByMember(tx *gorm.DB, memberID int64) ([]models.Loan, error) {
	return findWhere[models.Loan](tx, "usuario_id = ? AND "+openLoan, memberID)
}

func (LoanRepo) FindOpenByBook(tx *gorm.DB, bookID int64) (*models.Loan, error) {
	return takeWhere[models.Loan](tx, "libro_id = ? AND "+openLoan, bookID)
}

func (LoanRepo) CountOpenByMember(tx *gorm.DB, memberID int64) (int64, error) {
	return countWhere[models.Loan](tx, "usuario_id = ? AND "+openLoan, memberID)
}

func (LoanRepo) CountOpenByBook(tx *gorm.DB, bookID int64) (int64, error) {
	return countWhere[models.Loan](tx, "libro_id = ? AND "+openLoan, bookID)
}

func (LoanRepo) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Loan, error) {
	return takeLocked[models.Loan](tx, "UPDATE", id)
}

// FindWithDetails loads every loan with its member and book.
func (LoanRepo) FindWithDetails(tx *gorm.DB) ([]models.Loan, error) {
	var out []models.Loan
	if err := tx.Preload("Member").Preload("Book").Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOverdue flips every ACTIVO loan due before today to VENCIDO in one
// statement and returns how many rows changed.
func (LoanRepo) MarkOverdue(tx *gorm.DB, today time.Time) (int64, error) {
	res := tx.Model(&models.Loan{}).
		Where("estado = ? AND fecha_devolucion_esperada < ?", models.LoanActive, models.DateOf(today)).
		Update("estado", models.LoanOverdue)
	return res.RowsAffected, res.Error
}
