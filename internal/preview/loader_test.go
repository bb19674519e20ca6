package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDecoder prefixes the source so tests can tell decoded output apart.
type fakeDecoder struct {
	calls atomic.Int64
	err   error
}

func (d *fakeDecoder) Decode(_ context.Context, src []byte) ([]byte, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return append([]byte("pcm:"), src...), nil
}

func newTestLoader(t *testing.T, h http.HandlerFunc, dec Decoder) (*Loader, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	l, err := NewLoader(Config{
		Timeout:   time.Second,
		CacheSize: 1 << 20,
		Transport: srv.Client().Transport,
		Decoder:   dec,
	})
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return l, srv
}

func TestNewLoader_RequiresDecoder(t *testing.T) {
	if _, err := NewLoader(Config{}); err == nil {
		t.Error("expected error without a decoder")
	}
}

func TestLoader_LoadCachesSource(t *testing.T) {
	var hits atomic.Int64
	dec := &fakeDecoder{}
	l, srv := newTestLoader(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("aac"))
	}, dec)

	url := srv.URL + "/p/1.m4a"
	for i := 0; i < 3; i++ {
		pcm, err := l.Load(context.Background(), url)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if string(pcm) != "pcm:aac" {
			t.Errorf("Load = %q", pcm)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("downloads = %d, want 1", hits.Load())
	}
	if dec.calls.Load() != 3 {
		t.Errorf("decodes = %d, want 3", dec.calls.Load())
	}
	if stats := l.Stats(); stats.Hits != 2 || stats.Items != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestLoader_ConcurrentFetchSharesDownload(t *testing.T) {
	var hits atomic.Int64
	l, srv := newTestLoader(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("aac"))
	}, &fakeDecoder{})

	url := srv.URL + "/p/2.m4a"

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Fetch(context.Background(), url); err != nil {
				t.Errorf("Fetch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("downloads = %d, want 1", hits.Load())
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		dec  *fakeDecoder
	}{
		{
			name: "not found",
			h:    http.NotFound,
			dec: &fakeDecoder{},
		},
		{
			name: "empty body",
			h:    func(http.ResponseWriter, *http.Request) {},
			dec:  &fakeDecoder{},
		},
		{
			name: "decoder failure",
			h: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("aac"))
			},
			dec: &fakeDecoder{err: ErrDecoderMissing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, srv := newTestLoader(t, tt.h, tt.dec)
			if _, err := l.Load(context.Background(), srv.URL+"/p.m4a"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoader_DecoderErrorIsWrapped(t *testing.T) {
	l, srv := newTestLoader(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("aac"))
	}, &fakeDecoder{err: ErrDecoderMissing})

	_, err := l.Load(context.Background(), srv.URL+"/p.m4a")
	if !errors.Is(err, ErrDecoderMissing) {
		t.Errorf("Load() = %v, want ErrDecoderMissing", err)
	}
}

func TestLoader_EmptyURL(t *testing.T) {
	l, _ := newTestLoader(t, func(http.ResponseWriter, *http.Request) {}, &fakeDecoder{})
	if _, err := l.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error for a track without a preview")
	}
}

func TestLoader_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	l, srv := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("aac"))
	}, &fakeDecoder{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Fetch(ctx, srv.URL+"/slow.m4a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() = %v, want deadline exceeded", err)
	}
}
