package controllers

import (
	"errors"
	"io"
	"net/http"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/services"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// GET /api/loans?state=&details=true
func (lc *LoanController) ListLoans(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		loans []models.Loan
		err   error
	)
	switch {
	case c.Query("state") != "":
		loans, err = lc.Loans.ListByState(ctx, models.LoanState(c.Query("state")))
	case c.Query("details") == "true":
		loans, err = lc.Loans.ListWithDetails(ctx)
	default:
		loans, err = lc.Loans.List(ctx)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}

// POST /api/loans
func (lc *LoanController) CreateLoan(c *gin.Context) {
	var in struct {
		MemberID int64  `json:"memberId"`
		BookID   int64  `json:"bookId"`
		LoanDate string `json:"loanDate"`
		DueDate  string `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	loanDate, err := parseDate("loanDate", in.LoanDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dueDate, err := parseDate("dueDate", in.DueDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	loan, err := lc.Loans.Create(c.Request.Context(), services.LoanInput{
		MemberID: in.MemberID, BookID: in.BookID, LoanDate: loanDate, DueDate: dueDate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// GET /api/loans/overdue
func (lc *LoanController) ListOverdue(c *gin.Context) {
	loans, err := lc.Loans.ListOverdue(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}

// GET /api/loans/active
func (lc *LoanController) ListActive(c *gin.Context) {
	loans, err := lc.Loans.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}

// GET /api/loans/:id
func (lc *LoanController) GetLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := lc.Loans.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// POST /api/loans/:id/return, body optional: {"returnDate": "2025-03-10"}
func (lc *LoanController) ReturnLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		ReturnDate string `json:"returnDate"`
	}
	// an empty body, sized or chunked, means today
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	rd, err := parseDate("returnDate", in.ReturnDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	loan, err := lc.Loans.Return(c.Request.Context(), id, rd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// POST /api/loans/:id/renew {"days": 7}
func (lc *LoanController) RenewLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Days int `json:"days"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	loan, err := lc.Loans.Renew(c.Request.Context(), id, in.Days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// POST /api/loans/sweep runs the overdue sweep now.
func (lc *LoanController) Sweep(c *gin.Context) {
	n, err := lc.Sweeper.SweepNow(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"marked": n})
}
