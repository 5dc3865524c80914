package sources

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/recurrence"
)

// ServiceBody is one entry from the directory's service body hierarchy.
type ServiceBody struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory integrates a BMLT root server: it resolves service-body codes
// to names and can surface the directory's meetings as event records.
// Lookups are cached briefly so one aggregation request never hits the
// root server twice for the same data.
type Directory struct {
	id      string
	name    string
	rootURL string
	client  *retryablehttp.Client
	cache   *gocache.Cache
}

const serviceBodiesCacheKey = "service_bodies"

func NewDirectory(id, name, rootURL string) *Directory {
	if id == "" {
		id = "bmlt"
	}
	if name == "" {
		name = "Meeting Directory"
	}
	c := retryablehttp.NewClient()
	c.Logger = stdlog.New(io.Discard, "", 0)
	c.RetryMax = 1
	c.HTTPClient.Timeout = fetchTimeout
	return &Directory{
		id:      id,
		name:    name,
		rootURL: strings.TrimSuffix(rootURL, "/"),
		client:  c,
		cache:   gocache.New(time.Minute, 5*time.Minute),
	}
}

func (d *Directory) Source() event.Source {
	return event.Source{
		ID:   d.id,
		Name: d.name,
		Kind: event.KindDirectory,
		URL:  d.rootURL,
	}
}

// ServiceBodies fetches the directory's service body list, cached.
func (d *Directory) ServiceBodies(ctx context.Context) ([]ServiceBody, error) {
	if cached, ok := d.cache.Get(serviceBodiesCacheKey); ok {
		return cached.([]ServiceBody), nil
	}

	body, err := d.get(ctx, d.rootURL+"/client_interface/json/?switcher=GetServiceBodies")
	if err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("unexpected service body payload from %s", d.rootURL)
	}

	var bodies []ServiceBody
	for _, item := range parsed.Array() {
		bodies = append(bodies, ServiceBody{
			ID:   item.Get("id").String(),
			Name: item.Get("name").String(),
		})
	}
	d.cache.SetDefault(serviceBodiesCacheKey, bodies)
	return bodies, nil
}

// NameMap returns service body names keyed by id. Failure is non-fatal:
// callers get an empty map and raw codes stay visible.
func (d *Directory) NameMap(ctx context.Context) map[string]string {
	bodies, err := d.ServiceBodies(ctx)
	if err != nil {
		return map[string]string{}
	}
	m := make(map[string]string, len(bodies)+1)
	m["0"] = "Unaffiliated"
	for _, b := range bodies {
		m[b.ID] = b.Name
	}
	return m
}

// Fetch maps the directory's weekly meetings to event records, each dated
// at its next occurrence on or after the query's "today". Directory records
// are passthrough: the pipeline never expands them.
func (d *Directory) Fetch(ctx context.Context, q Query) ([]event.Record, error) {
	body, err := d.get(ctx, d.rootURL+"/client_interface/json/?switcher=GetSearchResults")
	if err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(body)
	meetings := parsed.Get("meetings")
	if !meetings.Exists() && parsed.IsArray() {
		meetings = parsed
	}
	if !meetings.IsArray() {
		return nil, fmt.Errorf("unexpected meeting payload from %s", d.rootURL)
	}

	today := time.Now().UTC()
	if q.Today != "" {
		if t, err := recurrence.ParseDate(q.Today); err == nil {
			today = t
		}
	}
	names := d.NameMap(ctx)
	src := d.Source()

	var records []event.Record
	for _, m := range meetings.Array() {
		// BMLT weekdays are 1-based starting Sunday.
		weekday := int(m.Get("weekday_tinyint").Int()) - 1
		if weekday < 0 || weekday > 6 {
			continue
		}
		date := nextWeekday(today, time.Weekday(weekday))

		rec := event.Record{
			ID:          m.Get("id_bigint").String(),
			Title:       m.Get("meeting_name").String(),
			StartDate:   recurrence.FormatDate(date),
			StartTime:   m.Get("start_time").String(),
			EventType:   "Meeting",
			ServiceBody: m.Get("service_body_bigint").String(),
			Timezone:    m.Get("time_zone").String(),
			Location: event.Location{
				Name:    m.Get("location_text").String(),
				Address: joinNonEmpty(", ", m.Get("location_street").String(), m.Get("location_municipality").String()),
				Details: m.Get("location_info").String(),
			},
			Source: src,
		}
		if name, ok := names[rec.ServiceBody]; ok {
			rec.ServiceBodyName = name
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d *Directory) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func nextWeekday(from time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
