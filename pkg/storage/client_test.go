package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(in.Key)
	data, ok := f.objects[f.lastKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestDownload(t *testing.T) {
	data := []byte("\x89PNG fake image bytes")
	api := &fakeS3{objects: map[string][]byte{"codes/wifi.png": data}}
	c := NewClientWithAPI(api, "bucket")

	dst := filepath.Join(t.TempDir(), "downloads", "wifi.png")
	res, err := c.Download(context.Background(), "codes/wifi.png", dst, 1024)
	require.NoError(t, err)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, dst, res.LocalPath)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDownload_TooLarge(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"big.png": bytes.Repeat([]byte{1}, 64)}}
	c := NewClientWithAPI(api, "bucket")

	dst := filepath.Join(t.TempDir(), "big.png")
	_, err := c.Download(context.Background(), "big.png", dst, 32)
	require.ErrorIs(t, err, ErrTooLarge)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_Missing(t *testing.T) {
	c := NewClientWithAPI(&fakeS3{objects: map[string][]byte{}}, "bucket")

	_, err := c.Download(context.Background(), "nope.png", filepath.Join(t.TempDir(), "x"), 0)
	assert.Error(t, err)
}
