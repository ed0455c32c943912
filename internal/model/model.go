package model

import "time"

// Platform identifies a marketplace. The set is closed; see internal/platform for the dispatch table.
type Platform string

const (
	Amazon     Platform = "amazon"
	Flipkart   Platform = "flipkart"
	Croma      Platform = "croma"
	VijaySales Platform = "vijaysales"
)

// Target is a tracked product reference with alert thresholds and a cached snapshot
type Target struct {
	ID         string   `json:"id"`
	Platform   Platform `json:"platform"`
	Reference  string   `json:"reference"` // URL or opaque platform product id
	MinPrice   float64  `json:"min_price"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	SendAlerts bool     `json:"send_alerts"`
	Recipient  string   `json:"recipient,omitempty"`
	UserID     string   `json:"user_id,omitempty"`

	// Snapshot fields, written only by the check cycle
	Title         string     `json:"title,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	URL           string     `json:"url,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// Snapshot holds the fields refreshed on a target once per cycle
type Snapshot struct {
	Title     string
	Price     *float64
	Currency  string
	ImageURL  string
	URL       string
	CheckedAt time.Time
}

// ScrapeResult is produced per fetch and consumed immediately by the cycle.
// Empty strings stand for absent values.
type ScrapeResult struct {
	Title    string
	Price    *float64
	Currency string
	ImageURL string
	URL      string
}

// HistoryRecord is one append-only row per check per target
type HistoryRecord struct {
	ID        string
	TargetID  string
	Platform  Platform
	URL       string
	Title     string
	Price     *float64
	Currency  string
	ImageURL  string
	Recipient string
	UserID    string
	CheckedAt time.Time
}

// NewHistoryRecord captures a target's snapshot at check time
func NewHistoryRecord(id string, t Target, s Snapshot) HistoryRecord {
	return HistoryRecord{
		ID:        id,
		TargetID:  t.ID,
		Platform:  t.Platform,
		URL:       s.URL,
		Title:     s.Title,
		Price:     s.Price,
		Currency:  s.Currency,
		ImageURL:  s.ImageURL,
		Recipient: t.Recipient,
		UserID:    t.UserID,
		CheckedAt: s.CheckedAt,
	}
}

// Filter narrows FindAll. The zero value matches every target.
type Filter struct {
	UserID string
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
