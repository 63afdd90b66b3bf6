package publish

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Publisher(t *testing.T) {
	fake := &fakeS3{}
	p := newS3Publisher(fake, S3Config{Bucket: "reports", Prefix: "cdr"})

	loc, err := p.Publish(context.Background(), "run-1", "Phone_System_Analysis.xlsx", []byte("xlsx"))
	require.NoError(t, err)

	assert.Equal(t, "s3://reports/cdr/run-1/Phone_System_Analysis.xlsx", loc)
	assert.Equal(t, "reports", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "cdr/run-1/Phone_System_Analysis.xlsx", aws.ToString(fake.in.Key))
	assert.Equal(t, XLSXContentType, aws.ToString(fake.in.ContentType))
	assert.Equal(t, "run-1", fake.in.Metadata["run_id"])
	assert.Equal(t, []byte("xlsx"), fake.body)
}

func TestS3PublisherNoPrefix(t *testing.T) {
	fake := &fakeS3{}
	p := newS3Publisher(fake, S3Config{Bucket: "reports"})

	loc, err := p.Publish(context.Background(), "run-2", "a.xlsx", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/run-2/a.xlsx", loc)
}

func TestS3PublisherError(t *testing.T) {
	fake := &fakeS3{err: errors.New("denied")}
	p := newS3Publisher(fake, S3Config{Bucket: "reports"})

	_, err := p.Publish(context.Background(), "run-3", "a.xlsx", nil)
	assert.ErrorContains(t, err, "denied")
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	loc, err := p.Publish(context.Background(), "run", "a.xlsx", []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, loc)
}
