package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type MemberService struct {
	tx      db.Transactor
	members MemberStore
	loans   LoanStore
	clock   clockwork.Clock
}

func NewMemberService(tx db.Transactor, members MemberStore, loans LoanStore, clock clockwork.Clock) *MemberService {
	return &MemberService{tx: tx, members: members, loans: loans, clock: clock}
}

// Create registers a new member dated today. The email must be unused.
func (s *MemberService) Create(ctx context.Context, in MemberInput) (*models.Member, error) {
	in.normalize()
	if err := checkStruct(&in); err != nil {
		return nil, err
	}

	m, err := db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Member, error) {
		taken, err := s.members.ExistsByEmail(tx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
		}

		m := &models.Member{
			Name:         in.Name,
			Email:        in.Email,
			Phone:        in.Phone,
			RegisteredAt: models.DateOf(s.clock.Now()),
		}
		if err := s.members.Save(tx, m); err != nil {
			if db.IsConstraint(err, db.ConstraintMemberEmail) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
			}
			return nil, fmt.Errorf("save member: %w", err)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member created", "member_id", m.ID)
	return m, nil
}

// Update rewrites name, email and phone. The registration date is kept.
func (s *MemberService) Update(ctx context.Context, id int64, in MemberInput) (*models.Member, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkStruct(&in); err != nil {
		return nil, err
	}

	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Member, error) {
		m, err := s.members.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load member: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: id %d", ErrMemberNotFound, id)
		}

		other, err := s.members.FindByEmail(tx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
		}

		m.Name, m.Email, m.Phone = in.Name, in.Email, in.Phone
		if err := s.members.Update(tx, m); err != nil {
			if db.IsConstraint(err, db.ConstraintMemberEmail) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
			}
			return nil, fmt.Errorf("update member: %w", err)
		}
		return m, nil
	})
}

// Delete removes a member that holds no ACTIVO or VENCIDO loan. The row lock
// keeps a concurrent loan creation from slipping in between check and delete.
func (s *MemberService) Delete(ctx context.Context, id int64) error {
	if err := checkID("id", id); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		m, err := s.members.FindByIDForUpdate(tx, id)
		if err != nil {
			return fmt.Errorf("load member: %w", err)
		}
		if m == nil {
			return fmt.Errorf("%w: id %d", ErrMemberNotFound, id)
		}

		open, err := s.loans.CountOpenByMember(tx, id)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("%w: %d open", ErrMemberHasOpenLoans, open)
		}

		if err := s.members.DeleteByID(tx, id); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Member deleted", "member_id", id)
	return nil
}

func (s *MemberService) Get(ctx context.Context, id int64) (*models.Member, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Member, error) {
		m, err := s.members.FindByID(tx, id)
		if err != nil {
			return nil, fmt.Errorf("load member: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: id %d", ErrMemberNotFound, id)
		}
		return m, nil
	})
}

func (s *MemberService) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, validationError("email is required")
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) (*models.Member, error) {
		m, err := s.members.FindByEmail(tx, email)
		if err != nil {
			return nil, fmt.Errorf("load member: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, email)
		}
		return m, nil
	})
}

// SearchByName matches a case-insensitive substring. An empty fragment lists
// everyone.
func (s *MemberService) SearchByName(ctx context.Context, fragment string) ([]models.Member, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return s.List(ctx)
	}
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Member, error) {
		return s.members.FindByName(tx, fragment)
	})
}

func (s *MemberService) List(ctx context.Context) ([]models.Member, error) {
	return db.InTx(ctx, s.tx, func(tx *gorm.DB) ([]models.Member, error) {
		return s.members.FindAll(tx)
	})
}
