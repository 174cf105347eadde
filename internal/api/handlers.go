// Package api exposes the photo and login services over JSON/HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zzenonn/partyphoto/internal/domain"
	"github.com/zzenonn/partyphoto/internal/ratelimit"
)

type PhotoService interface {
	ListPhotos(ctx context.Context, query domain.ListPhotosQuery) (domain.PhotoList, error)
	BatchUpload(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error)
	SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error
}

type AuthService interface {
	RequestLogin(ctx context.Context, email string) error
	Redeem(ctx context.Context, token string) (domain.Assertion, error)
	Verify(ctx context.Context, assertion string) (domain.Identity, error)
}

type Handler struct {
	photos       PhotoService
	auth         AuthService
	loginLimiter ratelimit.Limiter
}

// NewHandler wires the services into HTTP handlers. loginLimiter may be nil
// to disable throttling of login-link requests.
func NewHandler(photos PhotoService, auth AuthService, loginLimiter ratelimit.Limiter) *Handler {
	return &Handler{
		photos:       photos,
		auth:         auth,
		loginLimiter: loginLimiter,
	}
}

// Routes registers every endpoint on router.
func (h *Handler) Routes(router gin.IRouter) {
	router.GET("/healthz", h.health)

	photos := router.Group("/photos")
	{
		photos.GET("", h.listPhotos)
		photos.POST("/uploads", h.batchUpload)
		photos.POST("/delete", h.softDeletePhoto)
	}

	auth := router.Group("/auth")
	{
		auth.POST("/login-link", rateLimit(h.loginLimiter), h.requestLogin)
		auth.POST("/redeem", h.redeem)
		auth.POST("/verify", h.verify)
	}
}

// NewRouter builds a gin engine with the standard middleware and all routes.
// Forwarded client-IP headers are honoured only from trustedProxies; with
// none, the client IP is the connection's remote address.
func NewRouter(h *Handler, trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), requestLogger(), cors())
	h.Routes(router)
	return router, nil
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
