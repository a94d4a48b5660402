package preflight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ashiklom/veda-data-processing/internal/config"
	"github.com/ashiklom/veda-data-processing/internal/logging"
)

type fakeS3 struct {
	headErr  error
	listErr  error
	keyCount int32

	gotPrefix  string
	gotMaxKeys int32
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.gotPrefix = aws.ToString(in.Prefix)
	f.gotMaxKeys = aws.ToInt32(in.MaxKeys)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &s3.ListObjectsV2Output{KeyCount: aws.Int32(f.keyCount)}, nil
}

func testProfile() config.Preflight {
	return config.Preflight{
		Enabled:     true,
		Region:      "us-west-2",
		Bucket:      "lis-output",
		InputPrefix: "netcdf/SURFACEMODEL/",
	}
}

func TestCheck_Passes(t *testing.T) {
	api := &fakeS3{keyCount: 1}

	if err := Check(context.Background(), api, testProfile(), logging.Discard()); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if api.gotPrefix != "netcdf/SURFACEMODEL/" {
		t.Errorf("listed prefix %q, want configured input prefix", api.gotPrefix)
	}
	if api.gotMaxKeys != 1 {
		t.Errorf("MaxKeys = %d, want 1 (existence check only)", api.gotMaxKeys)
	}
}

func TestCheck_BucketUnreachable(t *testing.T) {
	api := &fakeS3{headErr: errors.New("api error 403")}

	err := Check(context.Background(), api, testProfile(), logging.Discard())
	if err == nil {
		t.Fatal("Check succeeded with unreachable bucket, want error")
	}
	if !strings.Contains(err.Error(), "lis-output") {
		t.Errorf("error %q does not name the bucket", err)
	}
}

func TestCheck_EmptyInputPrefix(t *testing.T) {
	api := &fakeS3{keyCount: 0}

	err := Check(context.Background(), api, testProfile(), logging.Discard())
	if err == nil {
		t.Fatal("Check succeeded with no input objects, want error")
	}
	if !strings.Contains(err.Error(), "no input objects") {
		t.Errorf("error = %v, want empty-prefix failure", err)
	}
}

func TestCheck_NoPrefixConfigured_SkipsListing(t *testing.T) {
	api := &fakeS3{listErr: errors.New("should not be called")}
	pf := testProfile()
	pf.InputPrefix = ""

	if err := Check(context.Background(), api, pf, logging.Discard()); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
}
