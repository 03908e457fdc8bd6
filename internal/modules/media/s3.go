package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/the-flip/core/internal/config"
)

// Archiver mirrors finished media into an S3-compatible bucket so the
// museum keeps an off-box copy of floor documentation.
type Archiver struct {
	opts config.S3Options
}

func NewArchiver(opts config.S3Options) *Archiver {
	return &Archiver{opts: opts}
}

func (a *Archiver) Enabled() bool {
	return a.opts.Enable && a.opts.Bucket != ""
}

func (a *Archiver) client() *s3.Client {
	return s3.New(s3.Options{
		Region: a.region(),
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(a.opts.AccessKeyID, a.opts.SecretAccessKey, "")),
		BaseEndpoint: endpointOrNil(a.opts.Endpoint),
		UsePathStyle: a.opts.PathStyleAccess,
	})
}

func (a *Archiver) region() string {
	if a.opts.Region != "" {
		return a.opts.Region
	}
	return "us-east-1"
}

// Upload stores the local file under key and returns its public URL.
func (a *Archiver) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("s3 archive is not configured")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(a.opts.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client().PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return a.publicURL(key), nil
}

// Delete removes an archived object; best effort.
func (a *Archiver) Delete(ctx context.Context, key string) error {
	if !a.Enabled() || key == "" {
		return nil
	}
	_, err := a.client().DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.opts.Bucket),
		Key:    aws.String(key),
	})
	return err
}

func (a *Archiver) publicURL(key string) string {
	if a.opts.CustomDomain != "" {
		return strings.TrimRight(a.opts.CustomDomain, "/") + "/" + key
	}
	if a.opts.Endpoint != "" {
		base := strings.TrimRight(a.opts.Endpoint, "/")
		if a.opts.PathStyleAccess {
			return base + "/" + path.Join(a.opts.Bucket, key)
		}
		return strings.Replace(base, "://", "://"+a.opts.Bucket+".", 1) + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.opts.Bucket, a.region(), key)
}

func endpointOrNil(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}
