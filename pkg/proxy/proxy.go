// Package proxy relays authenticated video byte-streams from the upstream
// media server to the requesting client.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tvsync/tvsync/pkg/cache"
	"github.com/tvsync/tvsync/pkg/emby"
)

type configCache interface {
	Get(ctx context.Context) (*cache.Entry, error)
}

type Proxy struct {
	cache configCache
	http  *http.Client
}

func New(configCache configCache) *Proxy {
	// No client timeout: a stream stays open for as long as the client reads.
	return &Proxy{
		cache: configCache,
		http:  &http.Client{},
	}
}

// Stream fetches the item's byte stream and relays it to the client. Only
// the inbound Range header is forwarded upstream. The upstream request is
// bound to the client's request context, so a dropped client tears down the
// upstream fetch.
func (p *Proxy) Stream(w http.ResponseWriter, r *http.Request, itemID, filename string) error {
	entry, err := p.cache.Get(r.Context())
	if err != nil {
		return err
	}

	target := emby.New(entry.ServerURL, entry.APIKey).StreamURL(itemID)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to fetch stream from media server")
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("unexpected response (%d) from media server stream", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))

	for _, name := range []string{"Content-Length", "Accept-Ranges", "Content-Range"} {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are out already, nothing to report to the client.
		log.WithError(err).WithField("item_id", itemID).Debug("stream copy interrupted")
	}

	return nil
}
