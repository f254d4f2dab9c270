package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"ios-toolchain/internal/ports"
	"ios-toolchain/internal/shared"
)

// userAgent mimics a browser; some upstream mirrors reject Go's default.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/28.0.1500.71 Safari/537.36"

const progressInterval = 2 * time.Second

// HTTPDownloaderAdapter fetches http(s) URLs. Failures are not retried.
type HTTPDownloaderAdapter struct {
	Client *http.Client
}

func NewHTTPDownloaderAdapter() HTTPDownloaderAdapter {
	return HTTPDownloaderAdapter{Client: &http.Client{}}
}

func (a HTTPDownloaderAdapter) Download(ctx context.Context, url string, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to create request").
			WithCause(err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := a.Client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := errbuilder.CodeInternal
		if resp.StatusCode == http.StatusNotFound {
			code = errbuilder.CodeNotFound
		}
		return errbuilder.New().
			WithCode(code).
			WithMsg("download failed").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create download directory").
			WithCause(err)
	}
	_ = os.Remove(dest)
	out, err := os.Create(dest)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create download file").
			WithCause(err)
	}
	progress := &progressWriter{ctx: ctx, total: resp.ContentLength, last: time.Now()}
	if _, err := io.Copy(io.MultiWriter(out, progress), resp.Body); err != nil {
		out.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write download").
			WithCause(err)
	}
	progress.report()
	return out.Close()
}

type progressWriter struct {
	ctx     context.Context
	total   int64
	written int64
	last    time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if time.Since(p.last) >= progressInterval {
		p.report()
		p.last = time.Now()
	}
	return len(b), nil
}

func (p *progressWriter) report() {
	var progression string
	if p.total <= 0 {
		progression = fmt.Sprintf("%d bytes", p.written)
	} else {
		progression = fmt.Sprintf("%.2f%%", float64(p.written)*100/float64(p.total))
	}
	log.Ctx(p.ctx).Debug().Int64("bytes", p.written).Msgf("Download %s", progression)
}

// RoutingDownloaderAdapter dispatches on the URL scheme.
type RoutingDownloaderAdapter struct {
	HTTP ports.DownloaderPort
	S3   ports.DownloaderPort
}

func NewRoutingDownloaderAdapter(httpDownloader ports.DownloaderPort, s3Downloader ports.DownloaderPort) RoutingDownloaderAdapter {
	return RoutingDownloaderAdapter{HTTP: httpDownloader, S3: s3Downloader}
}

func (a RoutingDownloaderAdapter) Download(ctx context.Context, url string, dest string) error {
	switch {
	case strings.HasPrefix(url, "s3://"):
		if a.S3 == nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no s3 client configured for %s", url))
		}
		return a.S3.Download(ctx, url, dest)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return a.HTTP.Download(ctx, url, dest)
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported url scheme in %s", url))
	}
}

var _ ports.DownloaderPort = HTTPDownloaderAdapter{}
var _ ports.DownloaderPort = RoutingDownloaderAdapter{}
