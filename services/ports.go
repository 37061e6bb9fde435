package services

import (
	"time"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

// Repository is the CRUD contract shared by every entity store. The tx handle
// comes from the caller's transaction.
type Repository[T any] interface {
	Save(tx *gorm.DB, v *T) error
	FindByID(tx *gorm.DB, id int64) (*T, error)
	FindAll(tx *gorm.DB) ([]T, error)
	Update(tx *gorm.DB, v *T) error
	DeleteByID(tx *gorm.DB, id int64) error
	ExistsByID(tx *gorm.DB, id int64) (bool, error)
}

type MemberStore interface {
	Repository[models.Member]
	FindByEmail(tx *gorm.DB, email string) (*models.Member, error)
	ExistsByEmail(tx *gorm.DB, email string) (bool, error)
	FindByName(tx *gorm.DB, fragment string) ([]models.Member, error)
	FindByIDForShare(tx *gorm.DB, id int64) (*models.Member, error)
	FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Member, error)
}

type BookStore interface {
	Repository[models.Book]
	FindByISBN(tx *gorm.DB, isbn string) (*models.Book, error)
	ExistsByISBN(tx *gorm.DB, isbn string) (bool, error)
	FindByTitle(tx *gorm.DB, fragment string) ([]models.Book, error)
	FindByAuthor(tx *gorm.DB, fragment string) ([]models.Book, error)
	FindByGenre(tx *gorm.DB, genre string) ([]models.Book, error)
	FindAvailable(tx *gorm.DB) ([]models.Book, error)
	FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Book, error)
	UpdateAvailability(tx *gorm.DB, id int64, available bool) error
	ReconcileAvailability(tx *gorm.DB) (int64, error)
}

type LoanStore interface {
	Repository[models.Loan]
	FindByMember(tx *gorm.DB, memberID int64) ([]models.Loan, error)
	FindByBook(tx *gorm.DB, bookID int64) ([]models.Loan, error)
	FindByState(tx *gorm.DB, state models.LoanState) ([]models.Loan, error)
	FindActive(tx *gorm.DB) ([]models.Loan, error)
	FindOverdue(tx *gorm.DB, today time.Time) ([]models.Loan, error)
	FindOpenByMember(tx *gorm.DB, memberID int64) ([]models.Loan, error)
	FindOpenByBook(tx *gorm.DB, bookID int64) (*models.Loan, error)
	CountOpenByMember(tx *gorm.DB, memberID int64) (int64, error)
	CountOpenByBook(tx *gorm.DB, bookID int64) (int64, error)
	FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Loan, error)
	FindWithDetails(tx *gorm.DB) ([]models.Loan, error)
	MarkOverdue(tx *gorm.DB, today time.Time) (int64, error)
}
