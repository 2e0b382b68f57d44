package hosting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tilgarden/tilgarden/internal/common"
)

// S3Settings configures the object-storage backend (MinIO-compatible).
type S3Settings struct {
	RootUser     string
	RootPassword string
	Region       string
	BaseEndpoint string
	Bucket       string
}

// S3 implements Provider over a single bucket. A "repository" is a key
// prefix; the object ETag serves as the version token, and conditional
// puts (If-Match / If-None-Match) give the same optimistic-concurrency
// behavior the GitHub backend gets from content SHAs.
type S3 struct {
	client *s3.Client
	bucket string
}

func NewS3(ctx context.Context, cfg S3Settings) (*S3, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser, cfg.RootPassword, "")))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (p *S3) key(repo Repo, path string) string {
	return fmt.Sprintf("%s/%s", repo.Name, path)
}

func (p *S3) GetFile(ctx context.Context, _ Credentials, repo Repo, path, _ string) (*File, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(repo, path)),
	})
	if err != nil {
		return nil, classifyS3(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading object body: %v", common.ErrInternal, err)
	}
	return &File{Content: data, VersionToken: aws.ToString(out.ETag)}, nil
}

func (p *S3) CreateFile(ctx context.Context, _ Credentials, repo Repo, path string, content []byte, _ string) (*CommitRef, error) {
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key(repo, path)),
		Body:        bytes.NewReader(content),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return nil, classifyS3(err)
	}
	return &CommitRef{SHA: strings.Trim(aws.ToString(out.ETag), `"`)}, nil
}

func (p *S3) UpdateFile(ctx context.Context, _ Credentials, repo Repo, path string, content []byte, _ string, versionToken string) (*CommitRef, error) {
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(p.bucket),
		Key:     aws.String(p.key(repo, path)),
		Body:    bytes.NewReader(content),
		IfMatch: aws.String(versionToken),
	})
	if err != nil {
		return nil, classifyS3(err)
	}
	return &CommitRef{SHA: strings.Trim(aws.ToString(out.ETag), `"`)}, nil
}

// CreateRepository drops a marker object under the repository prefix; the
// bucket itself is provisioned out of band.
func (p *S3) CreateRepository(ctx context.Context, _ Credentials, name string, _ CreateRepoOptions) (*RepoHandle, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(name + "/.keep"),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, classifyS3(err)
	}
	return &RepoHandle{Name: name, URL: fmt.Sprintf("s3://%s/%s", p.bucket, name)}, nil
}

func (p *S3) RepoURL(repo Repo) string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, repo.Name)
}

// classifyS3 maps SDK errors onto the taxonomy.
func classifyS3(err error) error {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return common.ErrNotFoundUpstream
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return common.ErrNotFoundUpstream
		case "PreconditionFailed", "ConditionalRequestConflict":
			return common.ErrConflict
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return common.ErrUnauthorized
		case "AccessDenied":
			return common.ErrForbidden
		case "SlowDown", "RequestLimitExceeded":
			return common.RateLimited(DefaultRateLimitWait)
		}
	}
	return fmt.Errorf("%w: %v", common.ErrInternal, err)
}
