package model

import (
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DateLayout is the YYYYMMDD layout used for ingestion dates
const DateLayout = "20060102"

type ItemType string

const (
	ItemTypeNormal ItemType = "normal"
	// ItemTypeFlashSub is a fragment decomposed from a digest item
	ItemTypeFlashSub ItemType = "flash_sub"
)

// Item is one unit of ingested content. It is owned by the caller and never persisted
// by the saga engine.
type Item struct {
	Title    string   `json:"title"`
	SourceID string   `json:"url"`
	Content  string   `json:"content"`
	Date     string   `json:"date"`
	Type     ItemType `json:"type,omitempty"`
	ParentID string   `json:"parent_url,omitempty"`
}

// IsFragment reports whether the item was decomposed from a parent item
func (i *Item) IsFragment() bool {
	return i.Type == ItemTypeFlashSub
}

// FragmentID derives the source identifier of the n-th fragment of parent.
func FragmentID(parent string, n int) string {
	return parent + "#" + strconv.Itoa(n)
}

// NewFragment builds the n-th fragment item of parent
func NewFragment(parent *Item, n int, title, content string) *Item {
	return &Item{
		Title:    title,
		SourceID: FragmentID(parent.SourceID, n),
		Content:  content,
		Date:     parent.Date,
		Type:     ItemTypeFlashSub,
		ParentID: parent.SourceID,
	}
}

// Briefing is the ordered daily batch of items.
type Briefing struct {
	Date         string  `json:"date"`
	AbstractText string  `json:"abstract_text"`
	Items        []*Item `json:"news_items"`
}

// Validate checks the briefing date and that every item has a source identifier
func (b *Briefing) Validate() error {
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return goerr.Wrap(err, "invalid briefing date", goerr.V("date", b.Date))
	}
	for i, item := range b.Items {
		if item == nil {
			return goerr.New("nil item in briefing", goerr.V("index", i))
		}
		if item.SourceID == "" {
			return goerr.New("item has no source identifier", goerr.V("index", i), goerr.V("title", item.Title))
		}
	}
	return nil
}
