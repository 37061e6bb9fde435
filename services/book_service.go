package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

type BookService struct {
	tx    db.Transactor
	books BookStore
	loans LoanStore
}

func NewBookService(tx db.Transactor, books BookStore, loans LoanStore) *BookService {
	return &BookService{tx: tx, books: books, loans: loans}
}

// Create adds a book to the catalogue. New books are always available.
func (s *BookService) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	in.normalize()
	if err := checkStruct(&in); err != nil {
		return nil, err
	}

	b, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Book, error) {
		taken, err := s.books.ExistsByISBN(tx, in.ISBN)
		if err != nil {
			return nil, fmt.Errorf("check isbn: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateISBN, in.ISBN)
		}

		b := &models.Book{
			Title:           in.Title,
			Author:          in.Author,
			ISBN:            in.ISBN,
			Genre:           in.Genre,
			PublicationYear: in.PublicationYear,
			Available:       true,
		}
		if err := s.books.Save(tx, b); err != nil {
			if db.IsConstraint(err, db.ConstraintBookISBN) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateISBN, in.ISBN)
			}
			return nil, fmt.Errorf("save book: %w", err)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Book created", "book_id", b.ID, "isbn", b.ISBN)
	return b, nil
}

// Update rewrites the descriptive fields. Availability is left as stored.
func (s *BookService) Update(ctx context.Context, id int64, in BookInput) (*models.Book, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkStruct(&in); err != nil {
		return nil, err
	}

	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Book, error) {
		b, err := s.books.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, id)
		}

		other, err := s.books.FindByISBN(tx, in.ISBN)
		if err != nil {
			return nil, fmt.Errorf("check isbn: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateISBN, in.ISBN)
		}

		b.Title, b.Author, b.ISBN, b.Genre = in.Title, in.Author, in.ISBN, in.Genre
		b.PublicationYear = in.PublicationYear
		if err := s.books.Update(tx, b); err != nil {
			if db.IsConstraint(err, db.ConstraintBookISBN) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateISBN, in.ISBN)
			}
			return nil, fmt.Errorf("update book: %w", err)
		}
		return b, nil
	})
}

// Delete removes a book no open loan references.
func (s *BookService) Delete(ctx context.Context, id int64) error {
	if err := checkID("id", id); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		b, err := s.books.FindByIDForUpdate(tx, id)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return fmt.Errorf("%w: id %d", ErrBookNotFound, id)
		}

		open, err := s.loans.CountOpenByBook(tx, id)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("%w: %d open", ErrBookHasOpenLoans, open)
		}

		if err := s.books.DeleteByID(tx, id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Book deleted", "book_id", id)
	return nil
}

// SetAvailability writes the flag directly, refusing any value that
// disagrees with the loans table.
func (s *BookService) SetAvailability(ctx context.Context, id int64, available bool) error {
	if err := checkID("id", id); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		b, err := s.books.FindByIDForUpdate(tx, id)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return fmt.Errorf("%w: id %d", ErrBookNotFound, id)
		}

		open, err := s.loans.CountOpenByBook(tx, id)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if available == (open > 0) {
			return fmt.Errorf("%w: book %d has %d open loans", ErrAvailabilityMismatch, id, open)
		}
		if b.Available == available {
			return nil
		}

		if err := s.books.UpdateAvailability(tx, id, available); err != nil {
			return fmt.Errorf("update availability: %w", err)
		}
		return nil
	})
}

// ReconcileAvailability repairs every disponible flag that disagrees with
// the open loans and returns how many were fixed.
func (s *BookService) ReconcileAvailability(ctx context.Context) (int64, error) {
	n, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (int64, error) {
		n, err := s.books.ReconcileAvailability(tx)
		if err != nil {
			return 0, fmt.Errorf("reconcile availability: %w", err)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Warn("Repaired book availability flags", "count", n)
	}
	return n, nil
}

func (s *BookService) Get(ctx context.Context, id int64) (*models.Book, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Book, error) {
		b, err := s.books.FindByID(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, id)
		}
		return b, nil
	})
}

func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, validationError("isbn is required")
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Book, error) {
		b, err := s.books.FindByISBN(tx, isbn)
		if err != nil {
			return nil, fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: isbn %s", ErrBookNotFound, isbn)
		}
		return b, nil
	})
}

func (s *BookService) SearchByTitle(ctx context.Context, fragment string) ([]models.Book, error) {
	return s.search(ctx, fragment, s.books.FindByTitle)
}

func (s *BookService) SearchByAuthor(ctx context.Context, fragment string) ([]models.Book, error) {
	return s.search(ctx, fragment, s.books.FindByAuthor)
}

func (s *BookService) SearchByGenre(ctx context.Context, genre string) ([]models.Book, error) {
	return s.search(ctx, genre, s.books.FindByGenre)
}

func (s *BookService) search(ctx context.Context, term string, find func(*gorm.DB, string) ([]models.Book, error)) ([]models.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Book, error) {
		return find(tx, term)
	})
}

func (s *BookService) List(ctx context.Context) ([]models.Book, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Book, error) {
		return s.books.FindAll(tx)
	})
}

func (s *BookService) ListAvailable(ctx context.Context) ([]models.Book, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Book, error) {
		return s.books.FindAvailable(tx)
	})
}
