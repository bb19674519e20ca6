package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/songsnip/internal/catalog"
)

// maxPreviewSize caps a single download. Previews are about 1 MB.
const maxPreviewSize = 16 << 20

// Config holds loader configuration.
type Config struct {
	// Timeout bounds one download (defaults to 15s).
	Timeout time.Duration

	// CacheSize is the store capacity in bytes (defaults to 64 MB).
	CacheSize int64

	// Transport defaults to catalog.NewTransport().
	Transport http.RoundTripper

	// Decoder converts downloads to PCM.
	Decoder Decoder

	Logger *log.Logger
}

// DefaultConfig returns the default loader configuration. Decoder must
// still be set.
func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		CacheSize: 64 << 20,
	}
}

// Loader fetches previews and decodes them for playback.
type Loader struct {
	http    *http.Client
	store   *Store
	decoder Decoder
	timeout time.Duration
	logger  *log.Logger

	group singleflight.Group
}

// NewLoader creates a loader.
func NewLoader(cfg Config) (*Loader, error) {
	if cfg.Decoder == nil {
		return nil, errors.New("preview loader needs a decoder")
	}

	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.Transport == nil {
		cfg.Transport = catalog.NewTransport()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	return &Loader{
		http:    &http.Client{Transport: cfg.Transport},
		store:   NewStore(cfg.CacheSize),
		decoder: cfg.Decoder,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Load returns decoded PCM for the preview at url.
func (l *Loader) Load(ctx context.Context, url string) ([]byte, error) {
	src, err := l.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pcm, err := l.decoder.Decode(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("unable to decode preview: %w", err)
	}

	l.logger.Debug("preview decoded", "url", url, "pcm", len(pcm), "duration", time.Since(start))
	return pcm, nil
}

// Fetch returns the preview file at url from the store or the network.
// Concurrent calls for one url share a download.
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("track has no preview")
	}

	if data, ok := l.store.Get(url); ok {
		return data, nil
	}

	ch := l.group.DoChan(url, func() (any, error) {
		// The download outlives any single caller so that others waiting
		// on it are not cancelled with them.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		data, err := l.download(dctx, url)
		if err != nil {
			return nil, err
		}
		if err := l.store.Put(url, data); err != nil {
			l.logger.Warn("preview not cached", "url", url, "error", err)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}

	start := time.Now()
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download preview: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("preview download returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read preview: %w", err)
	}
	if len(data) > maxPreviewSize {
		return nil, fmt.Errorf("preview exceeds %d bytes", maxPreviewSize)
	}
	if len(data) == 0 {
		return nil, errors.New("preview is empty")
	}

	l.logger.Debug("preview downloaded", "url", url, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// Stats returns statistics of the preview store.
func (l *Loader) Stats() StoreStats {
	return l.store.Stats()
}
