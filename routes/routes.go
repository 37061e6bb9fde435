package routes

import (
	"net/http"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/controllers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, s *controllers.Srv) {
	memberCtl := controllers.NewMemberController(s)
	bookCtl := controllers.NewBookController(s)
	loanCtl := controllers.NewLoanController(s)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// ------------------------------
	// Socios
	// ------------------------------
	members := api.Group("/members")
	{
		members.GET("", memberCtl.ListMembers) // ?name=
		members.POST("", memberCtl.CreateMember)
		members.GET("/email/:email", memberCtl.GetMemberByEmail)
		members.GET("/:id", memberCtl.GetMember)
		members.PUT("/:id", memberCtl.UpdateMember)
		members.DELETE("/:id", memberCtl.DeleteMember)
		members.GET("/:id/loans", memberCtl.ListMemberLoans) // ?open=true
	}

	// ------------------------------
	// Catálogo
	// ------------------------------
	books := api.Group("/books")
	{
		books.GET("", bookCtl.ListBooks) // ?title=&author=&genre=&available=true
		books.POST("", bookCtl.CreateBook)
		books.GET("/isbn/:isbn", bookCtl.GetBookByISBN)
		books.GET("/:id", bookCtl.GetBook)
		books.GET("/:id/loans", bookCtl.ListBookLoans)
		books.PUT("/:id", bookCtl.UpdateBook)
		books.DELETE("/:id", bookCtl.DeleteBook)
	}

	// ------------------------------
	// Préstamos
	// ------------------------------
	loans := api.Group("/loans")
	{
		loans.GET("", loanCtl.ListLoans) // ?state=&details=true
		loans.POST("", loanCtl.CreateLoan)
		loans.GET("/overdue", loanCtl.ListOverdue)
		loans.GET("/active", loanCtl.ListActive)
		loans.POST("/sweep", loanCtl.Sweep)
		loans.GET("/:id", loanCtl.GetLoan)
		loans.POST("/:id/return", loanCtl.ReturnLoan)
		loans.POST("/:id/renew", loanCtl.RenewLoan)
	}
}
