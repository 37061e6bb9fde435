package db

import (
	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

type MemberRepo struct {
	crudRepo[models.Member]
}

func NewMemberRepo() *MemberRepo { return &MemberRepo{} }

// FindByEmail expects an already normalised (lowercase) address.
func (MemberRepo) FindByEmail(tx *gorm.DB, email string) (*models.Member, error) {
	return takeWhere[models.Member](tx, "email = ?", email)
}

func (MemberRepo) ExistsByEmail(tx *gorm.DB, email string) (bool, error) {
	n, err := countWhere[models.Member](tx, "email = ?", email)
	return n > 0, err
}

// FindByName matches a case-insensitive substring of nombre.
func (MemberRepo) FindByName(tx *gorm.DB, fragment string) ([]models.Member, error) {
	return findWhere[models.Member](tx, "nombre ILIKE ?", contains(fragment))
}

// FindByIDForShare blocks concurrent deletes of the member until tx ends.
func (MemberRepo) FindByIDForShare(tx *gorm.DB, id int64) (*models.Member, error) {
	return takeLocked[models.Member](tx, "SHARE", id)
}

func (MemberRepo) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Member, error) {
	return takeLocked[models.Member](tx, "UPDATE", id)
}
