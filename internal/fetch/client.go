// Package fetch downloads python.org release artifacts.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/observability"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the python.org FTP tree.
const DefaultBaseURL = "https://www.python.org/ftp/python/"

var (
	ErrHTTPStatus     = errors.New("fetch: unexpected http status")
	ErrInvalidBaseURL = errors.New("fetch: invalid base url")
)

// DefaultMSIs are the dev MSIs fetched per architecture, in extraction order.
var DefaultMSIs = []string{"dev.msi", "dev_d.msi"}

type Kind string

const (
	KindMSI   Kind = "msi"
	KindEmbed Kind = "embed"
)

// Request is one artifact to place at Path.
type Request struct {
	Kind Kind
	Arch devfiles.Arch
	URL  string
	Path string
}

// Result describes a completed download.
type Result struct {
	URL      string
	Path     string
	Bytes    int64
	SHA256   string
	Duration time.Duration
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{BaseURL: base, HTTP: httpClient}, nil
}

// MSIURL is <base><release>/<arch><level>/<name>. Pre-releases live under
// their final release, e.g. 3.13.0/amd64rc2/dev.msi.
func (c *Client) MSIURL(version devfiles.Version, arch devfiles.Arch, name string) string {
	return c.BaseURL + MSIDir(version, arch) + "/" + name
}

// MSIDir is the slash-separated directory of the arch's MSIs relative to the
// FTP root.
func MSIDir(version devfiles.Version, arch devfiles.Arch) string {
	return version.Release() + "/" + arch.FTPDir(version)
}

// EmbedZipName is the python.org file name of the embeddable distribution.
func EmbedZipName(version devfiles.Version, arch devfiles.Arch) string {
	return fmt.Sprintf("python-%s-embed-%s.zip", version.String(), arch)
}

// EmbedZipURL is <base><release>/python-<version>-embed-<arch>.zip.
func (c *Client) EmbedZipURL(version devfiles.Version, arch devfiles.Arch) string {
	return c.BaseURL + version.Release() + "/" + EmbedZipName(version, arch)
}

// MSIRequests builds requests for names, placing each file in dir.
func (c *Client) MSIRequests(version devfiles.Version, arch devfiles.Arch, dir string, names []string) []Request {
	out := make([]Request, 0, len(names))
	for _, name := range names {
		out = append(out, Request{
			Kind: KindMSI,
			Arch: arch,
			URL:  c.MSIURL(version, arch, name),
			Path: filepath.Join(dir, name),
		})
	}
	return out
}

// Download streams url into path. The body lands in a sibling temp file that
// is renamed over path only once it is complete.
func (c *Client) Download(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := c.download(ctx, req)
	res.Duration = time.Since(start)
	observability.RecordDownload(string(req.Kind), string(req.Arch), res.Bytes, res.Duration, err == nil)
	if err != nil {
		return res, err
	}
	log.Info().
		Str("url", req.URL).
		Str("path", req.Path).
		Str("size", humanize.Bytes(uint64(res.Bytes))).
		Dur("took", res.Duration).
		Msg("downloaded")
	return res, nil
}

func (c *Client) download(ctx context.Context, req Request) (Result, error) {
	res := Result{URL: req.URL, Path: req.Path}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return res, err
	}
	log.Debug().Str("url", req.URL).Msg("fetch.get")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return res, fmt.Errorf("get %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("%w: %s: %s", ErrHTTPStatus, req.URL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return res, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(req.Path), "."+filepath.Base(req.Path)+".*.part")
	if err != nil {
		return res, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	hash := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	closeErr := tmp.Close()
	res.Bytes = n
	if copyErr != nil {
		return res, fmt.Errorf("read %s: %w", req.URL, copyErr)
	}
	if closeErr != nil {
		return res, closeErr
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return res, fmt.Errorf("read %s: short body %d of %d bytes", req.URL, n, resp.ContentLength)
	}

	if err := os.Rename(tmpName, req.Path); err != nil {
		return res, err
	}
	committed = true
	res.SHA256 = hex.EncodeToString(hash.Sum(nil))
	return res, nil
}

// DownloadAll fetches reqs with at most concurrency transfers in flight.
// Results are returned in request order; the first failure cancels the rest.
func (c *Client) DownloadAll(ctx context.Context, reqs []Request, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Download(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FileSHA256 hashes a file already on disk.
func FileSHA256(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	hash := sha256.New()
	n, err := io.Copy(hash, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), n, nil
}
