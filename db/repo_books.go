package db

import (
	"fmt"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

type BookRepo struct {
	crudRepo[models.Book]
}

func NewBookRepo() *BookRepo { return &BookRepo{} }

func (BookRepo) FindByISBN(tx *gorm.DB, isbn string) (*models.Book, error) {
	return takeWhere[models.Book](tx, "isbn = ?", isbn)
}

func (BookRepo) ExistsByISBN(tx *gorm.DB, isbn string) (bool, error) {
	n, err := countWhere[models.Book](tx, "isbn = ?", isbn)
	return n > 0, err
}

func (BookRepo) FindByTitle(tx *gorm.DB, fragment string) ([]models.Book, error) {
	return findWhere[models.Book](tx, "titulo ILIKE ?", contains(fragment))
}

func (BookRepo) FindByAuthor(tx *gorm.DB, fragment string) ([]models.Book, error) {
	return findWhere[models.Book](tx, "autor ILIKE ?", contains(fragment))
}

func (BookRepo) FindByGenre(tx *gorm.DB, genre string) ([]models.Book, error) {
	return findWhere[models.Book](tx, "genero ILIKE ?", contains(genre))
}

func (BookRepo) FindAvailable(tx *gorm.DB) ([]models.Book, error) {
	return findWhere[models.Book](tx, "disponible = ?", true)
}

func (BookRepo) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Book, error) {
	return takeLocked[models.Book](tx, "UPDATE", id)
}

func (BookRepo) UpdateAvailability(tx *gorm.DB, id int64, available bool) error {
	res := tx.Model(&models.Book{}).Where("id = ?", id).Update("disponible", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

// ReconcileAvailability recomputes disponible from open loans and returns the
// number of books whose flag was wrong.
func (BookRepo) ReconcileAvailability(tx *gorm.DB) (int64, error) {
	open := fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM %s p WHERE p.libro_id = %s.id AND p.estado <> '%s')",
		models.LoanTable, models.BookTable, models.LoanReturned,
	)
	res := tx.Exec(fmt.Sprintf(
		"UPDATE %s SET disponible = %s WHERE disponible IS DISTINCT FROM %s",
		models.BookTable, open, open,
	))
	return res.RowsAffected, res.Error
}
