package manifest

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

// GetObjectAPI is the part of *s3.Client that S3Source uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a manifest object from S3.
//
// Example usage:
//
//	client := s3.NewFromConfig(awsCfg)
//	src := manifest.NewS3Source(client, "console-config", "routes/prod.yaml", views.Console())
//	routes, err := src.Load(ctx)
type S3Source struct {
	client   GetObjectAPI
	bucket   string
	key      string
	registry *views.Registry

	etag string
}

// NewS3Source creates a source for s3://bucket/key.
func NewS3Source(client GetObjectAPI, bucket, key string, reg *views.Registry) *S3Source {
	return &S3Source{
		client:   client,
		bucket:   bucket,
		key:      key,
		registry: reg,
	}
}

// String returns the s3:// URL of the object.
func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}

// ETag returns the entity tag of the last object read.
func (s *S3Source) ETag() string {
	return s.etag
}

// Load fetches and parses the manifest. The format comes from the key's
// extension.
func (s *S3Source) Load(ctx context.Context) ([]router.Route, error) {
	format, err := FormatFromPath(s.key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.New("E200").
			WithDetailf("GetObject %s: %v", s, err).
			Wrap(err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, err
	}
	routes, err := Parse(data, format, s.registry)
	if err != nil {
		return nil, err
	}
	s.etag = aws.ToString(out.ETag)
	return routes, nil
}
