package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

func directoryTestServer(t *testing.T, serviceBodyHits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switcher := r.URL.Query().Get("switcher")
		switch {
		case switcher == "GetServiceBodies":
			if serviceBodyHits != nil {
				*serviceBodyHits++
			}
			w.Write([]byte(`[{"id":"5","name":"River Area"},{"id":"12","name":"Mountain Area"}]`))
		case switcher == "GetSearchResults":
			w.Write([]byte(`{"meetings":[
				{"id_bigint":"101","meeting_name":"Morning Serenity","weekday_tinyint":"3","start_time":"07:00:00","service_body_bigint":"5","location_text":"Old Library","location_street":"12 Oak St","location_municipality":"Rivertown"},
				{"id_bigint":"102","meeting_name":"Broken Weekday","weekday_tinyint":"0","start_time":"19:00:00","service_body_bigint":"12"}
			]}`))
		default:
			t.Fatalf("unexpected switcher %q", switcher)
		}
	}))
}

func TestDirectoryServiceBodies_Cached(t *testing.T) {
	hits := 0
	ts := directoryTestServer(t, &hits)
	defer ts.Close()

	d := NewDirectory("", "", ts.URL)
	for i := 0; i < 3; i++ {
		bodies, err := d.ServiceBodies(context.Background())
		if err != nil {
			t.Fatalf("ServiceBodies: %v", err)
		}
		if len(bodies) != 2 || bodies[0].Name != "River Area" {
			t.Fatalf("unexpected bodies: %#v", bodies)
		}
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits)
	}
}

func TestDirectoryNameMap(t *testing.T) {
	ts := directoryTestServer(t, nil)
	defer ts.Close()

	d := NewDirectory("", "", ts.URL)
	m := d.NameMap(context.Background())
	if m["5"] != "River Area" || m["12"] != "Mountain Area" {
		t.Fatalf("unexpected map: %#v", m)
	}
	if m["0"] != "Unaffiliated" {
		t.Fatalf("expected id 0 to map to Unaffiliated, got %q", m["0"])
	}
}

func TestDirectoryNameMap_FailureIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	d := NewDirectory("", "", ts.URL)
	if m := d.NameMap(context.Background()); len(m) != 0 {
		t.Fatalf("expected empty map on failure, got %#v", m)
	}
}

func TestDirectoryFetch(t *testing.T) {
	ts := directoryTestServer(t, nil)
	defer ts.Close()

	d := NewDirectory("", "", ts.URL)
	// 2025-07-01 is a Tuesday; weekday_tinyint 3 is Tuesday in the
	// directory's 1-based-Sunday numbering.
	records, err := d.Fetch(context.Background(), Query{Today: "2025-07-01"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// The meeting with an out-of-range weekday is dropped.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d: %#v", len(records), records)
	}
	rec := records[0]
	if rec.ID != "101" || rec.Title != "Morning Serenity" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.StartDate != "2025-07-01" {
		t.Fatalf("expected next occurrence on 2025-07-01, got %s", rec.StartDate)
	}
	if rec.Source.Kind != event.KindDirectory {
		t.Fatalf("expected directory kind, got %s", rec.Source.Kind)
	}
	if rec.ServiceBodyName != "River Area" {
		t.Fatalf("expected resolved service body name, got %q", rec.ServiceBodyName)
	}
	if !strings.Contains(rec.Location.Address, "Oak St") || !strings.Contains(rec.Location.Address, "Rivertown") {
		t.Fatalf("address not joined: %q", rec.Location.Address)
	}
}

func TestNextWeekday(t *testing.T) {
	tue := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) // a Tuesday
	cases := []struct {
		day  time.Weekday
		want string
	}{
		{time.Tuesday, "2025-07-01"}, // same day
		{time.Thursday, "2025-07-03"},
		{time.Monday, "2025-07-07"}, // wraps to next week
	}
	for _, c := range cases {
		got := nextWeekday(tue, c.day)
		if got.Format("2006-01-02") != c.want {
			t.Fatalf("nextWeekday(Tue, %s) = %s, want %s", c.day, got.Format("2006-01-02"), c.want)
		}
	}
}
