package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Client archives raw verified webhook payloads to S3 so out-of-band
// reconciliation has the exact bytes the provider sent, independent of what
// the hot path managed to persist.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new webhook archive client
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("webhook archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	log.Infof("[S3Archive] Initialized webhook archive for bucket: %s", cfg.BucketName)
	return client, nil
}

// ArchivePayload stores one raw webhook payload. Failures are the caller's
// to log; archiving must never block the webhook acknowledgement.
func (c *Client) ArchivePayload(ctx context.Context, eventID string, payload []byte) error {
	objectKey := c.config.GetObjectKey(eventID, time.Now().UTC())

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata: map[string]string{
			"event-id":       eventID,
			"archive-source": "chainletter-webhook",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive webhook payload: %w", err)
	}

	log.Infof("[S3Archive] Archived webhook payload: s3://%s/%s", c.config.BucketName, objectKey)
	return nil
}
