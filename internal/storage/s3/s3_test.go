package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePutter struct {
	bucket, key string
	body        []byte
	opts        minio.PutObjectOptions
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.key, f.opts = bucket, object, opts
	f.body, _ = io.ReadAll(r)
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestUpload_KeyAndURL(t *testing.T) {
	fp := &fakePutter{}
	s := &Storage{client: fp, bucket: "listings", base: "http://localhost:9000/listings", log: zaptest.NewLogger(t)}
	id := uuid.Must(uuid.NewV4())

	url, err := s.Upload(context.Background(), id, "Front.JPG", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.Equal(t, "listings", fp.bucket)
	require.True(t, strings.HasPrefix(fp.key, "images/"+id.String()+"/"))
	require.True(t, strings.HasSuffix(fp.key, ".jpg"))
	require.Equal(t, "http://localhost:9000/listings/"+fp.key, url)
	require.Equal(t, "image/jpeg", fp.opts.ContentType)
	require.Equal(t, []byte("jpeg-bytes"), fp.body)
}

func TestUpload_Error(t *testing.T) {
	s := &Storage{client: &fakePutter{err: errors.New("access denied")}, bucket: "b", log: zaptest.NewLogger(t)}
	_, err := s.Upload(context.Background(), uuid.Must(uuid.NewV4()), "a.png", "image/png", []byte{1})
	require.Error(t, err)
}
