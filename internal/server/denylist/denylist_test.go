package denylist

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func stubS3(t *testing.T, getter ObjectGetter, loadErr error) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	applied := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		if loadErr != nil {
			return aws.Config{}, loadErr
		}
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectGetter {
		for _, fn := range optFns {
			fn(applied)
		}
		return getter
	}
	return applied
}

func TestFetchS3(t *testing.T) {
	g := &fakeGetter{body: "# list\nLetMeIn1\n\nhunter22\n"}

	list, err := FetchS3(context.Background(), g, "bucket", "deny.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"LetMeIn1", "hunter22"}, list)
	assert.Equal(t, "bucket", g.bucket)
	assert.Equal(t, "deny.txt", g.key)

	_, err = FetchS3(context.Background(), &fakeGetter{err: errors.New("NoSuchKey")}, "bucket", "deny.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/deny.txt")
}

func TestNewS3Client_AppliesEndpoint(t *testing.T) {
	g := &fakeGetter{}
	applied := stubS3(t, g, nil)

	client, err := NewS3Client(context.Background(), &config.Config{
		S3Region:       "eu-central-1",
		S3RootUser:     "minio",
		S3RootPassword: "minio-pass",
		S3BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Same(t, g, client)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(applied.BaseEndpoint))
	assert.True(t, applied.UsePathStyle)
}

func TestNewS3Client_ConfigError(t *testing.T) {
	stubS3(t, &fakeGetter{}, errors.New("no region"))

	_, err := NewS3Client(context.Background(), &config.Config{})
	assert.Error(t, err)
}

func TestLoad_Sources(t *testing.T) {
	ctx := context.Background()

	t.Run("builtin", func(t *testing.T) {
		list, err := Load(ctx, &config.Config{}, logging.Nop())
		require.NoError(t, err)
		assert.Nil(t, list)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deny.txt")
		require.NoError(t, os.WriteFile(path, []byte("monkey123\n"), 0o600))

		list, err := Load(ctx, &config.Config{DenyListPath: path}, logging.Nop())
		require.NoError(t, err)
		assert.Equal(t, []string{"monkey123"}, list)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(ctx, &config.Config{DenyListPath: filepath.Join(t.TempDir(), "nope")}, logging.Nop())
		assert.Error(t, err)
	})

	t.Run("s3 wins over file", func(t *testing.T) {
		stubS3(t, &fakeGetter{body: "trustno1\n"}, nil)

		list, err := Load(ctx, &config.Config{S3Bucket: "b", DenyListS3Key: "k", DenyListPath: "/ignored"}, logging.Nop())
		require.NoError(t, err)
		assert.Equal(t, []string{"trustno1"}, list)
	})

	t.Run("url wins over file", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# common\nletmein\n"))
		}))
		defer ts.Close()

		list, err := Load(ctx, &config.Config{DenyListURL: ts.URL, DenyListPath: "/ignored"}, logging.Nop())
		require.NoError(t, err)
		assert.Equal(t, []string{"letmein"}, list)
	})

	t.Run("url error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		_, err := Load(ctx, &config.Config{DenyListURL: ts.URL}, logging.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("s3 error", func(t *testing.T) {
		stubS3(t, &fakeGetter{err: errors.New("AccessDenied")}, nil)

		_, err := Load(ctx, &config.Config{S3Bucket: "b", DenyListS3Key: "k"}, logging.Nop())
		assert.Error(t, err)
	})
}
