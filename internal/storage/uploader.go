package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const defaultPrefix = "payment-proofs"

// receiptExtensions lists the receipt formats accepted for storage.
var receiptExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Config describes an S3-compatible bucket whose objects are publicly readable
// under PublicBaseURL.
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
	Prefix        string
}

func (c Config) validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"bucket", c.Bucket},
		{"region", c.Region},
		{"access key", c.AccessKey},
		{"secret key", c.SecretKey},
		{"public base url", c.PublicBaseURL},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("s3 config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Uploader stores payment receipts and hands back their public URL, which
// users then submit as the proof reference of a payment request.
type Uploader struct {
	bucket  string
	baseURL string
	prefix  string
	client  *s3.Client
	now     func() time.Time
}

func NewUploader(cfg Config) (*Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Uploader{
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:  prefix,
		client:  s3.New(options),
		now:     time.Now,
	}, nil
}

// Upload stores a receipt of a sniffed contentType under a fresh dated key.
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty receipt")
	}
	key, err := u.receiptKey(contentType)
	if err != nil {
		return "", err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(u.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
		ACL:                types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("put receipt %s: %w", key, err)
	}
	return u.publicURL(key), nil
}

func (u *Uploader) publicURL(key string) string {
	return u.baseURL + "/" + key
}

// receiptKey lays objects out as <prefix>/<yyyy>/<mm>/<dd>/<uuid><ext>.
func (u *Uploader) receiptKey(contentType string) (string, error) {
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported receipt type %q", contentType)
	}
	day := u.now().UTC().Format("2006/01/02")
	return path.Join(u.prefix, day, uuid.NewString()+ext), nil
}
