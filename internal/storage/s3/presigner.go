// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package s3 signs direct-to-bucket uploads against S3 or an S3-compatible
// store such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fieldbook/fieldbook/internal/storage/s3")

// Config holds object storage settings
type Config struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// Presigner issues pre-signed PUT URLs
type Presigner struct {
	client *awss3.PresignClient
	ttl    time.Duration
}

// NewPresigner creates a presigner. Static keys are used when both are set,
// otherwise the default AWS credential chain.
func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	if cfg.PresignTTL <= 0 {
		return nil, errors.New("presign ttl must be positive")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsConfig, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Presigner{
		client: awss3.NewPresignClient(client),
		ttl:    cfg.PresignTTL,
	}, nil
}

// PresignPut returns a URL that accepts one PUT of key until it expires.
func (p *Presigner) PresignPut(ctx context.Context, bucket, key, contentType string) (string, time.Time, error) {
	ctx, span := tracer.Start(ctx, "S3.PresignPutObject",
		trace.WithAttributes(
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
		),
	)
	defer span.End()

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	expires := time.Now().Add(p.ttl).UTC()
	req, err := p.client.PresignPutObject(ctx, input, awss3.WithPresignExpires(p.ttl))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to presign upload")
		return "", time.Time{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	return req.URL, expires, nil
}
