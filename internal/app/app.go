// Package app builds the process-wide dependency handles shared by the API
// server and the admin CLI. Everything here is constructed once at startup
// and is safe to share between requests.
package app

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/partyphoto/internal/config"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
	"github.com/zzenonn/partyphoto/internal/mail"
	"github.com/zzenonn/partyphoto/internal/ratelimit"
	"github.com/zzenonn/partyphoto/internal/repository/db"
	"github.com/zzenonn/partyphoto/internal/repository/migrate"
	"github.com/zzenonn/partyphoto/internal/repository/objectstore"
	"github.com/zzenonn/partyphoto/internal/service"
)

type App struct {
	Config   *config.Config
	Database *db.DynamoDb
	Signer   objectstore.Signer
	Photos   *service.PhotoService
	Parties  *db.PartyRepository
	Transfer *objectstore.TransferClient

	tokens db.TokenRepository
}

// New connects the stores and builds the photo service. The auth service is
// built separately because it needs mail and signing configuration that
// photo-only commands do not.
func New(cfg *config.Config) (*App, error) {
	database, err := db.NewDatabase(cfg.AwsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	factory := objectstore.NewSignerFactory(cfg.AwsConfig, cfg.GcsClient)
	signer, err := factory.CreateSigner(objectstore.BucketConfig{
		Name:          cfg.Bucket.BucketName,
		Type:          objectstore.RepositoryType(cfg.Bucket.Platform),
		GCSAccessID:   cfg.GCSAccessID,
		GCSPrivateKey: cfg.GCSPrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create URL signer: %w", err)
	}

	photoRepository := db.NewPhotoRepository(database.Client, cfg.PhotosTable)
	partyRepository := db.NewPartyRepository(database.Client, cfg.PartiesTable, cfg.PartiesEmailIndex)

	photos := service.NewPhotoService(&photoRepository, signer, service.PhotoSettings{
		DownloadURLTTL: cfg.DownloadURLTTL,
		UploadURLTTL:   cfg.UploadURLTTL,
		MaxBatchFiles:  cfg.MaxBatchFiles,
	})

	log.Debugf("Photo store %s, bucket %s://%s", cfg.PhotosTable, signer.GetStorageType(), signer.GetBucketName())

	return &App{
		Config:   cfg,
		Database: database,
		Signer:   signer,
		Photos:   photos,
		Parties:  &partyRepository,
		Transfer: objectstore.NewTransferClient(nil),
		tokens:   db.NewTokenRepository(database.Client, cfg.TokensTable),
	}, nil
}

// Tables returns the table names used by migrations.
func (a *App) Tables() migrate.Tables {
	return migrate.Tables{
		Photos:            a.Config.PhotosTable,
		Tokens:            a.Config.TokensTable,
		Parties:           a.Config.PartiesTable,
		PartiesEmailIndex: a.Config.PartiesEmailIndex,
	}
}

// AuthService builds the passwordless login service.
func (a *App) AuthService() (*service.AuthService, error) {
	mailer, err := NewMailer(a.Config)
	if err != nil {
		return nil, err
	}

	return service.NewAuthService(&a.tokens, a.Parties, mailer, service.AuthSettings{
		LoginURLBase: a.Config.LoginURLBase,
		Secret:       a.Config.JWTSecret,
		TokenTTL:     a.Config.LoginTokenTTL,
		AssertionTTL: a.Config.AssertionTTL,
	})
}

// NewMailer selects the mail transport named by mail_provider.
func NewMailer(cfg *config.Config) (mail.Sender, error) {
	switch strings.ToLower(cfg.MailProvider) {
	case "log":
		log.Warn("Login links are logged, not mailed (mail_provider=log)")
		return mail.LogSender{}, nil
	case "ses", "":
		if cfg.EmailFrom == "" {
			return nil, perrors.ConfigNotSetError("email_from")
		}
		return mail.NewSESSenderFromConfig(cfg.AwsConfig, cfg.EmailFrom), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.MailProvider)
	}
}

// NewLoginLimiter returns the login-link limiter, shared through Redis when
// redis_addr is set. A non-positive request budget disables limiting.
func NewLoginLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return ratelimit.NewRedisLimiter(client, "partyphoto:login", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
}
