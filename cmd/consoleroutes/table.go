package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/consoleroutes/internal/config"
	"github.com/vango-dev/consoleroutes/internal/console"
	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/manifest"
	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func tableOptions(cfg *config.Config) []router.Option {
	var opts []router.Option
	if cfg.Routes.CaseSensitive {
		opts = append(opts, router.CaseSensitive())
	}
	if cfg.Routes.RootRelativeChildren {
		opts = append(opts, router.RootRelativeChildren())
	}
	return opts
}

// declaredRoutes returns the configured declaration: the manifest when one
// is set, otherwise the built-in variant.
func declaredRoutes(ctx context.Context, cfg *config.Config, reg *views.Registry) ([]router.Route, error) {
	if cfg.Routes.Manifest == "" {
		return console.Routes(cfg.Variant(), reg), nil
	}
	bucket, key, err := cfg.ManifestLocation()
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		return manifest.LoadFile(key, reg)
	}
	return manifest.NewS3Source(newS3Client(), bucket, key, reg).Load(ctx)
}

func buildTable(ctx context.Context, cfg *config.Config, reg *views.Registry) (*router.Table, error) {
	routes, err := declaredRoutes(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}
	table, err := router.New(routes, tableOptions(cfg)...)
	if err != nil {
		return nil, errors.New("E203").Wrap(err)
	}
	return table, nil
}

// newS3Client builds a client from the standard AWS environment variables.
func newS3Client() *s3.Client {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		})),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_S3"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}
