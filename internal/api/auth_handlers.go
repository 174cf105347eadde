package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginLinkRequest struct {
	Email string `json:"email"`
}

type redeemRequest struct {
	Token string `json:"token"`
}

type verifyRequest struct {
	Assertion string `json:"assertion"`
	// Token is accepted as an alias for clients that post {"token": ...}.
	Token string `json:"token"`
}

func (h *Handler) requestLogin(c *gin.Context) {
	var req loginLinkRequest
	if !decodeJSON(c, &req) {
		return
	}

	if err := h.auth.RequestLogin(c.Request.Context(), req.Email); err != nil {
		respondError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login link sent"})
}

func (h *Handler) redeem(c *gin.Context) {
	var req redeemRequest
	if !decodeJSON(c, &req) {
		return
	}

	assertion, err := h.auth.Redeem(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, assertion)
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if !decodeJSON(c, &req) {
		return
	}

	assertion := req.Assertion
	if assertion == "" {
		assertion = req.Token
	}

	identity, err := h.auth.Verify(c.Request.Context(), assertion)
	if err != nil {
		respondError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, identity)
}
