package ports

import "context"

// DownloaderPort fetches a URL into a local file, replacing it if present.
type DownloaderPort interface {
	Download(ctx context.Context, url string, dest string) error
}

// MirrorPort is an optional object store holding copies of source archives.
type MirrorPort interface {
	// Fetch copies key into dest. It reports false when the key is absent.
	Fetch(ctx context.Context, key string, dest string) (bool, error)
	Store(ctx context.Context, key string, src string) error
}

// ArchivePort inspects and unpacks source archives.
type ArchivePort interface {
	RootDir(path string) (string, error)
	Extract(ctx context.Context, path string, destDir string) error
}
