package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/metrics"
	"Gin_postgres_redis_library/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const DefaultLoanDays = 14

// LoanInput opens a loan. LoanDate defaults to today and DueDate to LoanDate
// plus the configured loan period.
type LoanInput struct {
	MemberID int64      `json:"memberId"`
	BookID   int64      `json:"bookId"`
	LoanDate *time.Time `json:"loanDate,omitempty"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

type LoanService struct {
	tx       db.Transactor
	members  MemberStore
	books    BookStore
	loans    LoanStore
	clock    clockwork.Clock
	loanDays int
}

func NewLoanService(tx db.Transactor, members MemberStore, books BookStore, loans LoanStore, clock clockwork.Clock, loanDays int) *LoanService {
	if loanDays <= 0 {
		loanDays = DefaultLoanDays
	}
	return &LoanService{tx: tx, members: members, books: books, loans: loans, clock: clock, loanDays: loanDays}
}

func (s *LoanService) today() time.Time { return models.DateOf(s.clock.Now()) }

// Create opens an ACTIVO loan and marks the book unavailable in the same
// transaction. The book row is locked so two concurrent requests for one book
// cannot both succeed.
func (s *LoanService) Create(ctx context.Context, in LoanInput) (*models.Loan, error) {
	if err := checkID("memberId", in.MemberID); err != nil {
		return nil, err
	}
	if err := checkID("bookId", in.BookID); err != nil {
		return nil, err
	}

	today := s.today()
	loanDate := today
	if in.LoanDate != nil {
		loanDate = models.DateOf(*in.LoanDate)
		if loanDate.After(today) {
			return nil, validationError("loanDate cannot be in the future")
		}
	}
	due := loanDate.AddDate(0, 0, s.loanDays)
	if in.DueDate != nil {
		due = models.DateOf(*in.DueDate)
		if due.Before(loanDate) {
			return nil, validationError("dueDate cannot be before loanDate")
		}
	}
	// also covers the default derived from a backdated loanDate
	if due.Before(today) {
		return nil, validationError("dueDate cannot be in the past")
	}

	loan, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Loan, error) {
		m, err := s.members.FindByIDForShare(tx, in.MemberID)
		if err != nil {
			return nil, fmt.Errorf("load member: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: id %d", ErrMemberNotFound, in.MemberID)
		}

		b, err := s.books.FindByIDForUpdate(tx, in.BookID)
		if err != nil {
			return nil, fmt.Errorf("load book: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, in.BookID)
		}
		if !b.Available {
			return nil, fmt.Errorf("%w: book %d", ErrBookUnavailable, b.ID)
		}
		open, err := s.loans.FindOpenByBook(tx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("check open loan: %w", err)
		}
		if open != nil {
			return nil, fmt.Errorf("%w: book %d is on loan %d", ErrBookUnavailable, b.ID, open.ID)
		}

		l := &models.Loan{
			MemberID: m.ID,
			BookID:   b.ID,
			LoanDate: loanDate,
			DueDate:  due,
			State:    models.LoanActive,
		}
		if err := s.loans.Save(tx, l); err != nil {
			if db.IsConstraint(err, db.ConstraintOneOpenLoan) {
				return nil, fmt.Errorf("%w: book %d", ErrBookUnavailable, b.ID)
			}
			return nil, fmt.Errorf("save loan: %w", err)
		}
		if err := s.books.UpdateAvailability(tx, b.ID, false); err != nil {
			return nil, fmt.Errorf("mark book unavailable: %w", err)
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoanTransitions.WithLabelValues("create").Inc()
	slog.Info("Loan created", "loan_id", loan.ID, "member_id", loan.MemberID, "book_id", loan.BookID, "due", loan.DueDate.Format(time.DateOnly))
	return loan, nil
}

// Return closes an ACTIVO or VENCIDO loan and frees its book. returnDate
// defaults to today.
func (s *LoanService) Return(ctx context.Context, id int64, returnDate *time.Time) (*models.Loan, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	rd := s.today()
	if returnDate != nil {
		rd = models.DateOf(*returnDate)
	}

	loan, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Loan, error) {
		l, err := s.loans.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load loan: %w", err)
		}
		if l == nil {
			return nil, fmt.Errorf("%w: id %d", ErrLoanNotFound, id)
		}
		if l.State == models.LoanReturned {
			return nil, fmt.Errorf("%w: id %d", ErrLoanAlreadyReturned, id)
		}
		if rd.Before(l.LoanDate) {
			return nil, validationError("returnDate cannot be before the loan date")
		}

		l.ReturnedAt = &rd
		l.State = models.LoanReturned
		if err := s.loans.Update(tx, l); err != nil {
			return nil, fmt.Errorf("update loan: %w", err)
		}
		if err := s.books.UpdateAvailability(tx, l.BookID, true); err != nil {
			return nil, fmt.Errorf("mark book available: %w", err)
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoanTransitions.WithLabelValues("return").Inc()
	slog.Info("Loan returned", "loan_id", loan.ID, "book_id", loan.BookID)
	return loan, nil
}

// Renew pushes the due date of an ACTIVO loan back by days.
func (s *LoanService) Renew(ctx context.Context, id int64, days int) (*models.Loan, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, validationError("days must be positive")
	}

	loan, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Loan, error) {
		l, err := s.loans.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load loan: %w", err)
		}
		if l == nil {
			return nil, fmt.Errorf("%w: id %d", ErrLoanNotFound, id)
		}
		if l.State != models.LoanActive {
			return nil, fmt.Errorf("%w: loan %d is %s", ErrLoanNotActive, id, l.State)
		}

		l.DueDate = l.DueDate.AddDate(0, 0, days)
		if err := s.loans.Update(tx, l); err != nil {
			return nil, fmt.Errorf("update loan: %w", err)
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoanTransitions.WithLabelValues("renew").Inc()
	slog.Info("Loan renewed", "loan_id", loan.ID, "days", days, "due", loan.DueDate.Format(time.DateOnly))
	return loan, nil
}

// MarkOverdue moves every ACTIVO loan due before today to VENCIDO and returns
// how many changed. Running it again the same day changes nothing.
func (s *LoanService) MarkOverdue(ctx context.Context) (int, error) {
	today := s.today()
	n, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (int64, error) {
		n, err := s.loans.MarkOverdue(tx, today)
		if err != nil {
			return 0, fmt.Errorf("mark overdue: %w", err)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}

	metrics.OverdueMarked.Add(float64(n))
	slog.Info("Overdue sweep finished", "marked", n, "today", today.Format(time.DateOnly))
	return int(n), nil
}

func (s *LoanService) Get(ctx context.Context, id int64) (*models.Loan, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Loan, error) {
		l, err := s.loans.FindByID(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load loan: %w", err)
		}
		if l == nil {
			return nil, fmt.Errorf("%w: id %d", ErrLoanNotFound, id)
		}
		return l, nil
	})
}

func (s *LoanService) List(ctx context.Context) ([]models.Loan, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		return s.loans.FindAll(tx)
	})
}

func (s *LoanService) ListByState(ctx context.Context, state models.LoanState) ([]models.Loan, error) {
	if !state.Valid() {
		return nil, validationError(fmt.Sprintf("unknown loan state %q", state))
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		return s.loans.FindByState(tx, state)
	})
}

func (s *LoanService) ListActive(ctx context.Context) ([]models.Loan, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		return s.loans.FindActive(tx)
	})
}

// ListByMember returns every loan of the member, newest last.
func (s *LoanService) ListByMember(ctx context.Context, memberID int64) ([]models.Loan, error) {
	return s.listForMember(ctx, memberID, s.loans.FindByMember)
}

// ListOpenByMember returns the member's ACTIVO and VENCIDO loans.
func (s *LoanService) ListOpenByMember(ctx context.Context, memberID int64) ([]models.Loan, error) {
	return s.listForMember(ctx, memberID, s.loans.FindOpenByMember)
}

func (s *LoanService) listForMember(ctx context.Context, memberID int64, find func(*gorm.DB, int64) ([]models.Loan, error)) ([]models.Loan, error) {
	if err := checkID("memberId", memberID); err != nil {
		return nil, err
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		ok, err := s.members.ExistsByID(tx, memberID)
		if err != nil {
			return nil, fmt.Errorf("check member: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrMemberNotFound, memberID)
		}
		return find(tx, memberID)
	})
}

func (s *LoanService) ListByBook(ctx context.Context, bookID int64) ([]models.Loan, error) {
	if err := checkID("bookId", bookID); err != nil {
		return nil, err
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		ok, err := s.books.ExistsByID(tx, bookID)
		if err != nil {
			return nil, fmt.Errorf("check book: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrBookNotFound, bookID)
		}
		return s.loans.FindByBook(tx, bookID)
	})
}

// ListOverdue includes ACTIVO loans already past due that the sweep has not
// reached yet.
func (s *LoanService) ListOverdue(ctx context.Context) ([]models.Loan, error) {
	today := s.today()
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		return s.loans.FindOverdue(tx, today)
	})
}

func (s *LoanService) ListWithDetails(ctx context.Context) ([]models.Loan, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Loan, error) {
		return s.loans.FindWithDetails(tx)
	})
}
