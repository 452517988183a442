package fileserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/filetrade/internal/contentid"
	fsconfig "github.com/dmitrijs2005/filetrade/internal/fileserver/config"
)

// Publisher stores content and returns its content identifier.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Publisher writes content to an S3-compatible bucket under its CID, so
// the object key doubles as the integrity check for downloaders.
type S3Publisher struct {
	client objectPutter
	bucket string
}

func NewS3Publisher(ctx context.Context, c *fsconfig.Config) (*S3Publisher, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3AccessKey,
			c.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Publisher{client: client, bucket: c.S3Bucket}, nil
}

func (p *S3Publisher) Publish(ctx context.Context, data []byte) (string, error) {
	id, err := contentid.Of(data)
	if err != nil {
		return "", err
	}
	key := id.String()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
