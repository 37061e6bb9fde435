package controllers

import (
	"net/http"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/services"

	"github.com/gin-gonic/gin"
)

type BookController struct{ *Srv }

func NewBookController(s *Srv) *BookController { return &BookController{Srv: s} }

// GET /api/books?title=&author=&genre=&available=true
// Filters are exclusive; the first one present wins.
func (bc *BookController) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		books []models.Book
		err   error
	)
	switch {
	case c.Query("title") != "":
		books, err = bc.Books.SearchByTitle(ctx, c.Query("title"))
	case c.Query("author") != "":
		books, err = bc.Books.SearchByAuthor(ctx, c.Query("author"))
	case c.Query("genre") != "":
		books, err = bc.Books.SearchByGenre(ctx, c.Query("genre"))
	case c.Query("available") == "true":
		books, err = bc.Books.ListAvailable(ctx)
	default:
		books, err = bc.Books.List(ctx)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"books": books})
}

// POST /api/books
func (bc *BookController) CreateBook(c *gin.Context) {
	var in services.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := bc.Books.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/books/:id
func (bc *BookController) GetBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := bc.Books.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/books/isbn/:isbn
func (bc *BookController) GetBookByISBN(c *gin.Context) {
	b, err := bc.Books.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/books/:id/loans
func (bc *BookController) ListBookLoans(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loans, err := bc.Loans.ListByBook(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}

// PUT /api/books/:id
func (bc *BookController) UpdateBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := bc.Books.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /api/books/:id
func (bc *BookController) DeleteBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := bc.Books.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
