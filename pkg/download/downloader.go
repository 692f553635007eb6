package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/stackload/pkg/buildinfo"
	"github.com/matzehuels/stackload/pkg/cache"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/httputil"
	"github.com/matzehuels/stackload/pkg/observability"
)

// PackageDir is the final path segment of every unpacked archive.
const PackageDir = "package"

// Defaults applied by [New].
const (
	DefaultTTL          = 24 * time.Hour
	DefaultTimeout      = 2 * time.Minute
	DefaultFetchTimeout = 10 * time.Minute
)

// Options configures a [Downloader].
type Options struct {
	Index        cache.Cache   // Freshness index (default: cache.NullCache)
	TTL          time.Duration // Age after which an entry is revalidated (default: DefaultTTL)
	Client       *http.Client  // HTTP client (default: DefaultTimeout)
	Attempts     int           // Fetch attempts for transient failures (default: 3)
	Backoff      time.Duration // Initial retry delay (default: 1s)
	FetchTimeout time.Duration // Bound on one shared fetch, retries included (default: DefaultFetchTimeout)
	Logger       *log.Logger   // (default: log.Default())
}

func (o Options) withDefaults() Options {
	if o.Index == nil {
		o.Index = cache.NewNullCache()
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Downloader fetches and unpacks archives below a base path.
// It is safe for concurrent use.
type Downloader struct {
	base   string
	opts   Options
	flight singleflight.Group

	mu      sync.Mutex
	cleaned map[string]bool // base paths already wiped by Clean
}

// New creates a downloader rooted at basePath, creating the directory.
func New(basePath string, opts Options) (*Downloader, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve download path %s", basePath)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Downloader{
		base:    abs,
		opts:    opts.withDefaults(),
		cleaned: make(map[string]bool),
	}, nil
}

// BasePath returns the absolute directory archives are unpacked below.
func (d *Downloader) BasePath() string { return d.base }

// PathFor returns the directory rawURL unpacks into.
func (d *Downloader) PathFor(rawURL string) (string, error) {
	if err := errors.ValidateArchiveURL(rawURL); err != nil {
		return "", err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidLocator, err, "parse archive url %s", rawURL)
	}

	host := u.Host
	if u.Scheme == "file" || host == "" {
		host = "file"
	}
	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if u.RawQuery != "" {
		p = path.Join(p, "q-"+cache.Hash([]byte(u.RawQuery))[:12])
	}
	return filepath.Join(d.base, host, filepath.FromSlash(p), PackageDir), nil
}

// GetForArchive makes the archive at rawURL available locally and returns
// its unpacked directory.
//
// Concurrent calls for one archive share a single fetch. The fetch is not
// tied to any caller's context, so a canceled caller returns early while
// the others still get the archive.
func (d *Downloader) GetForArchive(ctx context.Context, rawURL string) (string, error) {
	dir, err := d.PathFor(rawURL)
	if err != nil {
		return "", err
	}
	ch := d.flight.DoChan(dir, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.FetchTimeout)
		defer cancel()
		return nil, d.ensure(fctx, rawURL, dir)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			d.opts.Logger.Debug("shared archive fetch", "url", rawURL)
		}
		return dir, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// record is the freshness index entry of one URL.
type record struct {
	ETag      string    `json:"etag,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (d *Downloader) ensure(ctx context.Context, rawURL, dir string) error {
	var rec record
	indexErr := cache.GetJSON(ctx, d.opts.Index, rawURL, &rec)
	indexed := indexErr == nil
	if indexed {
		observability.Cache().OnCacheHit(ctx, "download")
	} else {
		observability.Cache().OnCacheMiss(ctx, "download")
	}

	if dirExists(dir) {
		switch {
		case indexed && time.Since(rec.FetchedAt) < d.opts.TTL:
			observability.Download().OnDownloadReused(ctx, rawURL, "fresh")
			return nil
		case !indexed:
			observability.Download().OnDownloadReused(ctx, rawURL, "present")
			return d.remember(ctx, rawURL, record{FetchedAt: time.Now()})
		}
	} else {
		rec = record{}
	}

	res, err := d.fetch(ctx, rawURL, dir, rec.ETag)
	if err != nil {
		if dirExists(dir) {
			d.opts.Logger.Warn("revalidation failed, reusing archive", "url", rawURL, "err", err)
			observability.Download().OnDownloadReused(ctx, rawURL, "present")
			return nil
		}
		return err
	}
	if res.notModified {
		observability.Download().OnDownloadReused(ctx, rawURL, "revalidated")
		res.etag = rec.ETag
	}
	return d.remember(ctx, rawURL, record{ETag: res.etag, FetchedAt: time.Now()})
}

func (d *Downloader) remember(ctx context.Context, rawURL string, rec record) error {
	if err := cache.SetJSON(ctx, d.opts.Index, rawURL, rec, 0); err != nil {
		d.opts.Logger.Warn("update download index", "url", rawURL, "err", err)
		return nil
	}
	observability.Cache().OnCacheSet(ctx, "download", len(rawURL))
	return nil
}

type fetchResult struct {
	notModified bool
	etag        string
}

// fetch downloads rawURL into a temporary file and unpacks it into dir,
// replacing any previous contents. etag, when set, is sent as
// If-None-Match and a 304 leaves dir untouched.
func (d *Downloader) fetch(ctx context.Context, rawURL, dir, etag string) (res fetchResult, err error) {
	start := time.Now()
	observability.Download().OnDownloadStart(ctx, rawURL)
	var size int64
	defer func() {
		observability.Download().OnDownloadComplete(ctx, rawURL, size, time.Since(start), err)
	}()

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return res, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dir), ".download-*")
	if err != nil {
		return res, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	err = httputil.Retry(ctx, d.opts.Attempts, d.opts.Backoff, func() error {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := tmp.Truncate(0); err != nil {
			return err
		}
		var ferr error
		res, size, ferr = d.copyTo(ctx, rawURL, etag, tmp)
		return ferr
	})
	if err != nil {
		return res, classify(rawURL, err)
	}
	if res.notModified {
		return res, nil
	}
	if err := tmp.Close(); err != nil {
		return res, err
	}

	staging, err := os.MkdirTemp(filepath.Dir(dir), ".unpack-*")
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(staging)

	if err := Extract(tmp.Name(), staging); err != nil {
		return res, errors.Wrap(errors.ErrCodeInvalidArchive, err, "unpack %s", rawURL)
	}
	if err := os.RemoveAll(dir); err != nil {
		return res, err
	}
	if err := os.Rename(staging, dir); err != nil {
		return res, err
	}
	d.opts.Logger.Debug("unpacked archive", "url", rawURL, "dir", dir, "bytes", size)
	return res, nil
}

// copyTo streams the archive body into w.
func (d *Downloader) copyTo(ctx context.Context, rawURL, etag string, w io.Writer) (fetchResult, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fetchResult{}, 0, err
	}
	if u.Scheme == "file" {
		f, err := os.Open(filepath.FromSlash(u.Path))
		if err != nil {
			if os.IsNotExist(err) {
				return fetchResult{}, 0, httputil.ErrNotFound
			}
			return fetchResult{}, 0, err
		}
		defer f.Close()
		n, err := io.Copy(w, f)
		return fetchResult{}, n, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fetchResult{}, 0, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	start := time.Now()
	observability.HTTP().OnRequest(ctx, req.Method, u.Host, u.Path)
	resp, err := d.opts.Client.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, u.Host, u.Path, err)
		return fetchResult{}, 0, httputil.Retryable(fmt.Errorf("%w: %v", httputil.ErrNetwork, err))
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckStatus(resp.StatusCode); err != nil {
		return fetchResult{}, 0, err
	}
	if resp.StatusCode == http.StatusNotModified {
		return fetchResult{notModified: true}, 0, nil
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fetchResult{}, n, httputil.Retryable(fmt.Errorf("%w: %v", httputil.ErrNetwork, err))
	}
	return fetchResult{etag: resp.Header.Get("ETag")}, n, nil
}

func classify(rawURL string, err error) error {
	switch {
	case errors.Is(err, errors.ErrCodeInvalidArchive):
		return err
	case stderrors.Is(err, httputil.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, "archive %s", rawURL)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "download %s", rawURL)
	}
}

// Clean removes everything below the base path. It runs at most once per
// base path for the lifetime of the downloader and reports whether it did.
func (d *Downloader) Clean(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cleaned[d.base] {
		return false, nil
	}
	d.cleaned[d.base] = true

	d.opts.Logger.Info("cleaning download cache", "path", d.base)
	if err := os.RemoveAll(d.base); err != nil {
		return false, err
	}
	return true, os.MkdirAll(d.base, 0o755)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
