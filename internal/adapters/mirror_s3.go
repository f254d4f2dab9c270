package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
)

// S3API is the subset of the S3 client the mirror uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3MirrorConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string
}

// S3MirrorAdapter stores source archives in a bucket and serves s3:// URLs.
type S3MirrorAdapter struct {
	Client S3API
	Bucket string
	Prefix string
}

// NewS3MirrorAdapter builds a client from the default AWS credential chain.
// A custom Endpoint switches to path-style addressing for S3-compatible
// stores.
func NewS3MirrorAdapter(ctx context.Context, cfg S3MirrorConfig) (*S3MirrorAdapter, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("unable to load AWS config").
			WithCause(err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3MirrorAdapter{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

func (a *S3MirrorAdapter) objectKey(key string) string {
	return strings.TrimLeft(a.Prefix+key, "/")
}

func (a *S3MirrorAdapter) Fetch(ctx context.Context, key string, dest string) (bool, error) {
	found, err := a.get(ctx, a.Bucket, a.objectKey(key), dest)
	if err != nil || !found {
		return found, err
	}
	log.Ctx(ctx).Info().Str("bucket", a.Bucket).Str("key", a.objectKey(key)).Msg("archive fetched from mirror")
	return true, nil
}

func (a *S3MirrorAdapter) Store(ctx context.Context, key string, src string) error {
	file, err := os.Open(src)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open archive for upload").
			WithCause(err)
	}
	defer file.Close()
	if _, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(a.objectKey(key)),
		Body:   file,
	}); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to upload s3://%s/%s", a.Bucket, a.objectKey(key))).
			WithCause(err)
	}
	return nil
}

// Download serves s3://bucket/key URLs.
func (a *S3MirrorAdapter) Download(ctx context.Context, url string, dest string) error {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(url, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("malformed s3 url %s", url))
	}
	found, err := a.get(ctx, bucket, key, dest)
	if err != nil {
		return err
	}
	if !found {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s does not exist", url))
	}
	return nil
}

func (a *S3MirrorAdapter) get(ctx context.Context, bucket string, key string, dest string) (bool, error) {
	result, err := a.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return false, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read s3://%s/%s", bucket, key)).
			WithCause(err)
	}
	defer result.Body.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, internalError("failed to create download directory", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return false, internalError("failed to create download file", err)
	}
	if _, err := io.Copy(out, result.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read S3 object body").
			WithCause(err)
	}
	return true, out.Close()
}

func isMissingObject(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ ports.MirrorPort = (*S3MirrorAdapter)(nil)
var _ ports.DownloaderPort = (*S3MirrorAdapter)(nil)
