// Package attachments keeps assignment files in S3 and hands out presigned
// download links.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

// DefaultURLTTL is how long a presigned download link stays valid.
const DefaultURLTTL = time.Hour

var (
	// ErrDisabled is returned when no bucket is configured.
	ErrDisabled = errors.New("attachment storage not configured")
	// ErrInvalidKey is returned for keys outside the assignments folder.
	ErrInvalidKey = errors.New("invalid attachment path")
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used by Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store writes attachments under <prefix>assignments/.
type Store struct {
	bucket    string
	prefix    string
	s3Client  S3API
	presigner Presigner
	ttl       time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

// Options configures a Store.
type Options struct {
	Bucket string
	Prefix string
	URLTTL time.Duration
	Logger *logging.Logger
}

// NewStore creates a Store. If the bucket is empty every operation returns ErrDisabled.
func NewStore(s3Client S3API, presigner Presigner, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &Store{
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		s3Client:  s3Client,
		presigner: presigner,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// NewS3Store wires a Store to a real S3 client.
func NewS3Store(client *s3.Client, opts Options) *Store {
	if client == nil {
		return NewStore(nil, nil, opts)
	}
	return NewStore(client, s3.NewPresignClient(client), opts)
}

// Enabled returns true if storage is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil && s.presigner != nil
}

func (s *Store) folder() string {
	return s.prefix + "assignments/"
}

// Key builds the object key for a file uploaded at t.
func (s *Store) Key(fileName string, t time.Time) string {
	return fmt.Sprintf("%s%d-%s", s.folder(), t.UnixMilli(), cleanName(fileName))
}

// Upload stores body and returns its key.
func (s *Store) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	key := s.Key(fileName, s.now())
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("attachments: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored attachment", "s3_key", key)
	return key, nil
}

// URL returns a presigned GET link for key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if err := s.checkKey(key); err != nil {
		return "", err
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("attachments: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key. Missing objects are not an error in S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	if err := s.checkKey(key); err != nil {
		return err
	}
	if _, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("attachments: s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) checkKey(key string) error {
	if key == "" || strings.Contains(key, "..") || !strings.HasPrefix(key, s.folder()) {
		return ErrInvalidKey
	}
	return nil
}

// cleanName drops any directory part a browser may send along.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
