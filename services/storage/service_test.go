package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/config"
)

type memoryClient struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryClient() *memoryClient {
	return &memoryClient{objects: map[string][]byte{}, types: map[string]string{}}
}

func (c *memoryClient) Upload(_ context.Context, input *s3manager.UploadInput) error {
	if c.err != nil {
		return c.err
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return err
	}
	key := aws.StringValue(input.Bucket) + "/" + aws.StringValue(input.Key)
	c.objects[key] = data
	c.types[key] = aws.StringValue(input.ContentType)
	return nil
}

func (c *memoryClient) Download(_ context.Context, bucket, key string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.objects[bucket+"/"+key], nil
}

func (c *memoryClient) Delete(_ context.Context, bucket, key string) error {
	delete(c.objects, bucket+"/"+key)
	return nil
}

func TestObjectStorageService_RoundTrip(t *testing.T) {
	client := newMemoryClient()
	storage := NewStorageService(client, "attachments")
	ctx := context.Background()

	require.NoError(t, storage.Upload(ctx, "user/email/file.pdf", []byte("%PDF"), "application/pdf"))
	assert.Equal(t, "application/pdf", client.types["attachments/user/email/file.pdf"])

	content, err := storage.Download(ctx, "user/email/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), content)

	require.NoError(t, storage.Delete(ctx, "user/email/file.pdf"))
	assert.Empty(t, client.objects)
	assert.Equal(t, "attachments", storage.Bucket())
}

func TestObjectStorageService_Errors(t *testing.T) {
	client := newMemoryClient()
	client.err = errors.New("AccessDenied")
	storage := NewStorageService(client, "attachments")

	err := storage.Upload(context.Background(), "k", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, client.err)
	assert.Contains(t, err.Error(), "failed to upload k")

	_, err = storage.Download(context.Background(), "k")
	assert.ErrorIs(t, err, client.err)
}

func TestNewR2StorageService_Disabled(t *testing.T) {
	storage, err := NewR2StorageService(&config.R2StorageConfig{EmailAttachmentBucket: "attachments"})
	require.NoError(t, err)
	assert.Nil(t, storage)
}
