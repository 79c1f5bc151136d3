package source

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// FeedItem is one entry of an RSS 2.0 or Atom feed.
type FeedItem struct {
	Title     string
	Link      string
	Published string
	Summary   string
}

type Feed struct {
	Title string
	Items []FeedItem
}

type rssDocument struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			PubDate     string `xml:"pubDate"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDocument struct {
	Title   string `xml:"title"`
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Published string `xml:"published"`
		Updated   string `xml:"updated"`
		Summary   string `xml:"summary"`
	} `xml:"entry"`
}

// ParseFeed decodes an RSS 2.0 or Atom document.
func ParseFeed(r io.Reader) (*Feed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	switch strings.ToLower(root.XMLName.Local) {
	case "rss":
		var doc rssDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		feed := &Feed{Title: strings.TrimSpace(doc.Channel.Title)}
		for _, it := range doc.Channel.Items {
			feed.Items = append(feed.Items, FeedItem{
				Title:     strings.TrimSpace(it.Title),
				Link:      strings.TrimSpace(it.Link),
				Published: strings.TrimSpace(it.PubDate),
				Summary:   strings.TrimSpace(it.Description),
			})
		}
		return feed, nil

	case "feed":
		var doc atomDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse atom: %w", err)
		}
		feed := &Feed{Title: strings.TrimSpace(doc.Title)}
		for _, e := range doc.Entries {
			item := FeedItem{
				Title:     strings.TrimSpace(e.Title),
				Published: strings.TrimSpace(e.Published),
				Summary:   strings.TrimSpace(e.Summary),
			}
			if item.Published == "" {
				item.Published = strings.TrimSpace(e.Updated)
			}
			for _, l := range e.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					item.Link = strings.TrimSpace(l.Href)
					break
				}
			}
			feed.Items = append(feed.Items, item)
		}
		return feed, nil

	default:
		return nil, fmt.Errorf("parse feed: unsupported root element <%s>", root.XMLName.Local)
	}
}
