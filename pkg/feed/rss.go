package feed

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
)

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link,omitempty"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
}

// RSS renders the records as an RSS 2.0 feed.
func RSS(title, siteURL string, records []event.Record) (string, error) {
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:       title,
			Link:        siteURL,
			Description: "Upcoming events",
		},
	}

	for i := range records {
		rec := &records[i]
		item := rssItem{
			Title: rec.Title,
			GUID:  rec.Key() + "-" + rec.StartDate,
		}

		var parts []string
		if rec.StartDate != "" {
			when := rec.StartDate
			if rec.StartTime != "" {
				when += " " + rec.StartTime
			}
			parts = append(parts, when)
		}
		if loc := locationLine(rec); loc != "" {
			parts = append(parts, loc)
		}
		if desc := StripHTML(rec.DescriptionHTML); desc != "" {
			parts = append(parts, desc)
		}
		item.Description = strings.Join(parts, " | ")

		if start, err := eventStart(rec); err == nil {
			item.PubDate = start.Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}
