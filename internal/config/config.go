package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BucketConfig represents the photo bucket configuration
type BucketConfig struct {
	BucketName string `yaml:"bucket_name"`
	Platform   string `yaml:"platform"`
}

// Config holds the application configuration
type Config struct {
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	ListenAddr string `yaml:"listen_addr"`
	// AwsConfig: AWS SDK uses a shared configuration object that contains
	// credentials, region, retry policies, etc. DynamoDB, S3, SES and SSM
	// clients are all created from this single config.
	AwsConfig aws.Config
	// GcsClient is only created when the photo bucket lives on GCS.
	GcsClient *storage.Client

	PhotosTable       string `yaml:"photos_table"`
	TokensTable       string `yaml:"tokens_table"`
	PartiesTable      string `yaml:"parties_table"`
	PartiesEmailIndex string `yaml:"parties_email_index"`

	Bucket            BucketConfig
	GCSAccessID       string `yaml:"gcs_access_id"`
	GCSPrivateKey     []byte
	DownloadURLTTL    time.Duration `yaml:"download_url_ttl"`
	UploadURLTTL      time.Duration `yaml:"upload_url_ttl"`
	MaxBatchFiles     int           `yaml:"max_batch_files"`
	LoginURLBase      string        `yaml:"login_url_base"`
	EmailFrom         string        `yaml:"email_from"`
	MailProvider      string        `yaml:"mail_provider"`
	JWTSecret         []byte
	AssertionTTL      time.Duration `yaml:"assertion_ttl"`
	LoginTokenTTL     time.Duration `yaml:"login_token_ttl"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RedisAddr         string        `yaml:"redis_addr"`
	RedisPassword     string        `yaml:"redis_password"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means forwarded headers are ignored.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}

	awsConfig, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	bucket, err := ParseBucket(viper.GetString("bucket"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:          viper.GetString("log_level"),
		LogFormat:         viper.GetString("log_format"),
		ListenAddr:        viper.GetString("listen_addr"),
		AwsConfig:         awsConfig,
		PhotosTable:       viper.GetString("photos_table"),
		TokensTable:       viper.GetString("tokens_table"),
		PartiesTable:      viper.GetString("parties_table"),
		PartiesEmailIndex: viper.GetString("parties_email_index"),
		Bucket:            bucket,
		GCSAccessID:       viper.GetString("gcs_access_id"),
		DownloadURLTTL:    viper.GetDuration("download_url_ttl"),
		UploadURLTTL:      viper.GetDuration("upload_url_ttl"),
		MaxBatchFiles:     viper.GetInt("max_batch_files"),
		LoginURLBase:      viper.GetString("login_url_base"),
		EmailFrom:         viper.GetString("email_from"),
		MailProvider:      viper.GetString("mail_provider"),
		AssertionTTL:      viper.GetDuration("assertion_ttl"),
		LoginTokenTTL:     viper.GetDuration("login_token_ttl"),
		RateLimitRequests: viper.GetInt("rate_limit_requests"),
		RateLimitWindow:   viper.GetDuration("rate_limit_window"),
		RedisAddr:         viper.GetString("redis_addr"),
		RedisPassword:     viper.GetString("redis_password"),
		TrustedProxies:    trustedProxies(viper.GetStringSlice("trusted_proxies")),
	}

	if bucket.Platform == "gcs" {
		if cfg.GcsClient, err = loadGCSClient(); err != nil {
			return nil, err
		}
		if keyFile := viper.GetString("gcs_private_key_file"); keyFile != "" {
			if cfg.GCSPrivateKey, err = os.ReadFile(keyFile); err != nil {
				return nil, fmt.Errorf("unable to read GCS private key: %w", err)
			}
		}
	}

	secret, err := resolveJWTSecret(context.Background(), awsConfig)
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret = secret

	return cfg, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	SetDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if rootCmd != nil {
		var bindErr error
		// Flags are dashed on the command line and underscored in config keys
		rootCmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
			if err := viper.BindPFlag(strings.ReplaceAll(flag.Name, "-", "_"), flag); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// SetDefaults sets default configuration values
func SetDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("photos_table", "party-photos")
	viper.SetDefault("tokens_table", "login-tokens")
	viper.SetDefault("parties_table", "party-members")
	viper.SetDefault("parties_email_index", "emailIndex")
	viper.SetDefault("bucket", "s3://party-photos")
	viper.SetDefault("download_url_ttl", 600*time.Second)
	viper.SetDefault("upload_url_ttl", 60*time.Second)
	viper.SetDefault("max_batch_files", 50)
	viper.SetDefault("mail_provider", "ses")
	viper.SetDefault("assertion_ttl", 24*time.Hour)
	viper.SetDefault("login_token_ttl", 15*time.Minute)
	viper.SetDefault("rate_limit_requests", 5)
	viper.SetDefault("rate_limit_window", time.Minute)
}

// trustedProxies drops blank entries so "" or "a, ,b" from env or flags
// does not reach gin as an invalid proxy.
func trustedProxies(raw []string) []string {
	var proxies []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				proxies = append(proxies, part)
			}
		}
	}
	return proxies
}

// ParseBucket parses the photo bucket location.
// Formats: "s3://bucket-name", "gs://bucket-name", "s3:bucket-name", or "bucket-name" (defaults to S3)
func ParseBucket(bucketStr string) (BucketConfig, error) {
	bucketStr = strings.TrimSpace(bucketStr)

	// Handle URI format (s3://, gs://)
	if strings.Contains(bucketStr, "://") {
		parts := strings.SplitN(bucketStr, "://", 2)
		scheme := strings.ToLower(strings.TrimSpace(parts[0]))
		bucketName := strings.TrimSpace(parts[1])

		if bucketName == "" {
			return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
		}

		switch scheme {
		case "s3":
			return BucketConfig{BucketName: bucketName, Platform: "s3"}, nil
		case "gs":
			return BucketConfig{BucketName: bucketName, Platform: "gcs"}, nil
		default:
			return BucketConfig{}, fmt.Errorf("unsupported scheme: %s", scheme)
		}
	}

	// Handle colon format (s3:bucket-name)
	parts := strings.SplitN(bucketStr, ":", 2)
	if len(parts) != 2 {
		if bucketStr == "" {
			return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
		}
		return BucketConfig{BucketName: bucketStr, Platform: "s3"}, nil
	}

	platform := strings.ToLower(strings.TrimSpace(parts[0]))
	bucketName := strings.TrimSpace(parts[1])
	if bucketName == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
	}
	if platform == "gs" {
		platform = "gcs"
	}
	if platform != "s3" && platform != "gcs" {
		return BucketConfig{}, fmt.Errorf("unsupported platform: %s", platform)
	}

	return BucketConfig{BucketName: bucketName, Platform: platform}, nil
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig() (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// loadGCSClient loads Google Cloud Storage client
func loadGCSClient() (*storage.Client, error) {
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %v", err)
	}
	return client, nil
}

// ParameterGetter is the part of the SSM client used to resolve secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// resolveJWTSecret prefers an SSM SecureString parameter over a literal secret.
func resolveJWTSecret(ctx context.Context, awsConfig aws.Config) ([]byte, error) {
	if name := viper.GetString("jwt_secret_parameter"); name != "" {
		return FetchParameter(ctx, ssm.NewFromConfig(awsConfig), name)
	}
	return []byte(viper.GetString("jwt_secret")), nil
}

// FetchParameter reads and decrypts a single SSM parameter.
func FetchParameter(ctx context.Context, client ParameterGetter, name string) ([]byte, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return nil, fmt.Errorf("parameter %s is empty", name)
	}
	return []byte(*out.Parameter.Value), nil
}
