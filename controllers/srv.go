package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/jobs"
	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/services"

	"github.com/gin-gonic/gin"
)

type MemberAPI interface {
	Create(ctx context.Context, in services.MemberInput) (*models.Member, error)
	Update(ctx context.Context, id int64, in services.MemberInput) (*models.Member, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	SearchByName(ctx context.Context, fragment string) ([]models.Member, error)
}

type BookAPI interface {
	Create(ctx context.Context, in services.BookInput) (*models.Book, error)
	Update(ctx context.Context, id int64, in services.BookInput) (*models.Book, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	SearchByTitle(ctx context.Context, fragment string) ([]models.Book, error)
	SearchByAuthor(ctx context.Context, fragment string) ([]models.Book, error)
	SearchByGenre(ctx context.Context, genre string) ([]models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	ListAvailable(ctx context.Context) ([]models.Book, error)
}

type LoanAPI interface {
	Create(ctx context.Context, in services.LoanInput) (*models.Loan, error)
	Return(ctx context.Context, id int64, returnDate *time.Time) (*models.Loan, error)
	Renew(ctx context.Context, id int64, days int) (*models.Loan, error)
	Get(ctx context.Context, id int64) (*models.Loan, error)
	List(ctx context.Context) ([]models.Loan, error)
	ListByState(ctx context.Context, state models.LoanState) ([]models.Loan, error)
	ListWithDetails(ctx context.Context) ([]models.Loan, error)
	ListOverdue(ctx context.Context) ([]models.Loan, error)
	ListActive(ctx context.Context) ([]models.Loan, error)
	ListByBook(ctx context.Context, bookID int64) ([]models.Loan, error)
	ListByMember(ctx context.Context, memberID int64) ([]models.Loan, error)
	ListOpenByMember(ctx context.Context, memberID int64) ([]models.Loan, error)
}

type Sweeper interface {
	SweepNow(ctx context.Context) (int, error)
}

// Srv is what every controller hangs off.
type Srv struct {
	Members MemberAPI
	Books   BookAPI
	Loans   LoanAPI
	Sweeper Sweeper
}

func GetSrv(a *app.App) *Srv {
	return &Srv{Members: a.Members, Books: a.Books, Loans: a.Loans, Sweeper: a.Sweeper}
}

// --- helpers ---

// fail renders err with the status its category maps to.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, jobs.ErrLockHeld):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "request_id", c.GetString(app.RequestIDKey), "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, app.H{"error": "internal error"})
		return
	}
	c.JSON(status, app.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg})
}

// pathID parses the :id segment; it writes the 400 itself on failure.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD in local time; empty means nil.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, errors.New(field + " must be a YYYY-MM-DD date")
	}
	return &t, nil
}
