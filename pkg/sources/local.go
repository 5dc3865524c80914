package sources

import (
	"context"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

// Local serves events from the SQLite store. It is always available and is
// queried unless the request's source allow-list excludes it.
type Local struct {
	DB      *storage.DB
	SiteURL string
}

func (l *Local) Source() event.Source {
	return event.Source{
		ID:   "local",
		Name: "Local Events",
		Kind: event.KindLocal,
		URL:  l.SiteURL,
	}
}

func (l *Local) Fetch(ctx context.Context, q Query) ([]event.Record, error) {
	records, err := l.DB.ListEvents(ctx, storage.ListOptions{
		Status:        q.Status,
		EventType:     q.EventType,
		ServiceBodies: SplitList(q.ServiceBody),
		Relation:      q.Relation,
	})
	if err != nil {
		return nil, err
	}
	src := l.Source()
	for i := range records {
		records[i].Source = src
	}
	return records, nil
}
