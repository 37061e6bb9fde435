package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNoRows is returned by writes that target an id with no row.
	ErrNoRows = errors.New("db: no rows affected")
	// ErrUniqueViolation matches any *ConstraintError.
	ErrUniqueViolation = errors.New("db: unique violation")
)

const (
	ConstraintMemberEmail = "idx_usuarios_email"
	ConstraintBookISBN    = "idx_libros_isbn"
	ConstraintOneOpenLoan = "prestamos_one_open_per_libro"
)

const pgUniqueViolation = "23505"

// ConstraintError carries the name of the unique index a write collided with.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("unique constraint %q violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrUniqueViolation }

// IsConstraint reports whether err is a unique violation on the named index.
func IsConstraint(err error, name string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == name
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &ConstraintError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// crudRepo holds the operations every entity repository shares. All methods
// run on the caller's transaction handle.
type crudRepo[T any] struct{}

// Save inserts v and fills its generated id.
func (crudRepo[T]) Save(tx *gorm.DB, v *T) error {
	return translate(tx.Omit(clause.Associations).Create(v).Error)
}

// FindByID returns (nil, nil) when no row matches.
func (crudRepo[T]) FindByID(tx *gorm.DB, id int64) (*T, error) {
	return take[T](tx, id)
}

func (crudRepo[T]) FindAll(tx *gorm.DB) ([]T, error) {
	var out []T
	if err := tx.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every updatable column of v, zero values included.
func (crudRepo[T]) Update(tx *gorm.DB, v *T) error {
	res := tx.Model(v).Select("*").Omit(clause.Associations).Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (crudRepo[T]) DeleteByID(tx *gorm.DB, id int64) error {
	res := tx.Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func (crudRepo[T]) ExistsByID(tx *gorm.DB, id int64) (bool, error) {
	var n int64
	if err := tx.Model(new(T)).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func take[T any](tx *gorm.DB, id int64) (*T, error) {
	var v T
	if err := tx.Take(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func takeLocked[T any](tx *gorm.DB, strength string, id int64) (*T, error) {
	return take[T](tx.Clauses(clause.Locking{Strength: strength}), id)
}

func findWhere[T any](tx *gorm.DB, query string, args ...any) ([]T, error) {
	var out []T
	if err := tx.Where(query, args...).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func takeWhere[T any](tx *gorm.DB, query string, args ...any) (*T, error) {
	var v T
	if err := tx.Where(query, args...).Take(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func countWhere[T any](tx *gorm.DB, query string, args ...any) (int64, error) {
	var n int64
	if err := tx.Model(new(T)).Where(query, args...).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds an ILIKE pattern matching s anywhere, with wildcards in s
// taken literally.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
