package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/services"

	"github.com/gin-gonic/gin"
)

type MemberController struct{ *Srv }

func NewMemberController(s *Srv) *MemberController { return &MemberController{Srv: s} }

// GET /api/members?name=
func (mc *MemberController) ListMembers(c *gin.Context) {
	members, err := mc.Members.SearchByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"members": members})
}

// POST /api/members
func (mc *MemberController) CreateMember(c *gin.Context) {
	var in services.MemberInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := mc.Members.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GET /api/members/:id
func (mc *MemberController) GetMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := mc.Members.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GET /api/members/email/:email
func (mc *MemberController) GetMemberByEmail(c *gin.Context) {
	m, err := mc.Members.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PUT /api/members/:id
func (mc *MemberController) UpdateMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.MemberInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := mc.Members.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DELETE /api/members/:id
func (mc *MemberController) DeleteMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := mc.Members.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/members/:id/loans?open=true
func (mc *MemberController) ListMemberLoans(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	openOnly, _ := strconv.ParseBool(c.DefaultQuery("open", "false"))

	list := mc.Loans.ListByMember
	if openOnly {
		list = mc.Loans.ListOpenByMember
	}
	loans, err := list(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}
