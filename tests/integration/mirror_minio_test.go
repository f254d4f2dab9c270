//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ios-toolchain/internal/adapters"
)

const (
	minioUser     = "toolchain"
	minioPassword = "toolchain-secret"
	minioBucket   = "ios-sources"
)

func TestS3MirrorWithMinIO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}
	ctx := t.Context()
	endpoint, cleanup := startMinIO(ctx, t)
	t.Cleanup(cleanup)

	t.Setenv("AWS_ACCESS_KEY_ID", minioUser)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)

	mirror, err := adapters.NewS3MirrorAdapter(ctx, adapters.S3MirrorConfig{
		Bucket:   minioBucket,
		Prefix:   "cache/",
		Endpoint: endpoint,
	})
	require.NoError(t, err)
	client, ok := mirror.Client.(*s3.Client)
	require.True(t, ok)
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(minioBucket)})
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "openmp-openmp-12.0.1.src.tar.xz")
	require.NoError(t, os.WriteFile(src, []byte("openmp sources"), 0o644))

	found, err := mirror.Fetch(ctx, "openmp-openmp-12.0.1.src.tar.xz", filepath.Join(dir, "miss"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mirror.Store(ctx, "openmp-openmp-12.0.1.src.tar.xz", src))

	fetched := filepath.Join(dir, "fetched", "archive")
	found, err = mirror.Fetch(ctx, "openmp-openmp-12.0.1.src.tar.xz", fetched)
	require.NoError(t, err)
	require.True(t, found)
	content, err := os.ReadFile(fetched)
	require.NoError(t, err)
	assert.Equal(t, "openmp sources", string(content))

	downloaded := filepath.Join(dir, "downloaded")
	routing := adapters.NewRoutingDownloaderAdapter(adapters.NewHTTPDownloaderAdapter(), mirror)
	require.NoError(t, routing.Download(ctx, fmt.Sprintf("s3://%s/cache/openmp-openmp-12.0.1.src.tar.xz", minioBucket), downloaded))
	content, err = os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, "openmp sources", string(content))
}

func startMinIO(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}
