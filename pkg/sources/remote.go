package sources

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

// fetchTimeout bounds every outbound request. A slow peer delays only its
// own results; the pipeline keeps going with whatever else answered.
const fetchTimeout = 15 * time.Second

// RemoteConfig describes one configured peer instance. The optional filter
// fields are pinned server-side: they are sent with every request to that
// peer, on top of whatever the caller asked for.
type RemoteConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Enabled     bool   `mapstructure:"enabled"`
	EventType   string `mapstructure:"event_type"`
	ServiceBody string `mapstructure:"service_body"`
	Categories  string `mapstructure:"categories"`
	Tags        string `mapstructure:"tags"`
}

// Remote fetches events from another instance's JSON API.
type Remote struct {
	cfg    RemoteConfig
	client *retryablehttp.Client
}

func NewRemote(cfg RemoteConfig) *Remote {
	return &Remote{cfg: cfg, client: newHTTPClient()}
}

func newHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = stdlog.New(io.Discard, "", 0)
	c.RetryMax = 2
	c.HTTPClient.Timeout = fetchTimeout
	return c
}

func (r *Remote) Source() event.Source {
	name := r.cfg.Name
	host := r.cfg.URL
	if u, err := url.Parse(r.cfg.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	if name == "" {
		name = host
	}
	return event.Source{
		ID:   r.cfg.ID,
		Name: name,
		Kind: event.KindExternal,
		URL:  host,
	}
}

func (r *Remote) Fetch(ctx context.Context, q Query) ([]event.Record, error) {
	params := url.Values{}
	setIfNotEmpty := func(key, cfgVal, reqVal string) {
		// The caller's filter wins over the pinned source filter.
		if reqVal != "" {
			params.Set(key, reqVal)
		} else if cfgVal != "" {
			params.Set(key, cfgVal)
		}
	}
	setIfNotEmpty("event_type", r.cfg.EventType, q.EventType)
	setIfNotEmpty("service_body", r.cfg.ServiceBody, q.ServiceBody)
	setIfNotEmpty("categories", r.cfg.Categories, q.Categories)
	setIfNotEmpty("tags", r.cfg.Tags, q.Tags)
	if q.Archive {
		params.Set("archive", "true")
	}
	params.Set("per_page", "100")

	endpoint := strings.TrimSuffix(r.cfg.URL, "/") + "/api/events?" + params.Encode()
	body, err := r.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	// Accept either an {"events":[...]} envelope or a bare array.
	items := parsed.Get("events")
	if !items.Exists() && parsed.IsArray() {
		items = parsed
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("unexpected payload from %s", r.Source().ID)
	}

	src := r.Source()
	var records []event.Record
	for _, item := range items.Array() {
		records = append(records, RecordFromJSON(item, src))
	}
	return records, nil
}

func (r *Remote) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
