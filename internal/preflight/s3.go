// Package preflight verifies S3 reachability before a job is submitted.
// The conversion program reads its NetCDF inputs from and writes its Zarr
// store to S3; a bad bucket or empty input prefix should fail here, at
// submission time on the login node, not hours later inside an allocation.
package preflight

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ashiklom/veda-data-processing/internal/config"
)

// S3API is the slice of the S3 client the checks need. Test seam.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewClient builds a real S3 client from the ambient AWS credential chain.
func NewClient(ctx context.Context, region string) (S3API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Check verifies the bucket is reachable and, when an input prefix is
// configured, that at least one object exists under it.
func Check(ctx context.Context, api S3API, pf config.Preflight, logger *slog.Logger) error {
	log := logger.With("component", "preflight", "bucket", pf.Bucket)

	if _, err := api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(pf.Bucket)}); err != nil {
		return fmt.Errorf("bucket %s not reachable: %w", pf.Bucket, err)
	}
	log.Debug("bucket reachable")

	if pf.InputPrefix != "" {
		out, err := api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(pf.Bucket),
			Prefix:  aws.String(pf.InputPrefix),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return fmt.Errorf("list inputs under s3://%s/%s: %w", pf.Bucket, pf.InputPrefix, err)
		}
		if aws.ToInt32(out.KeyCount) == 0 {
			return fmt.Errorf("no input objects under s3://%s/%s", pf.Bucket, pf.InputPrefix)
		}
		log.Debug("input prefix populated", "prefix", pf.InputPrefix)
	}

	log.Info("preflight passed")
	return nil
}
