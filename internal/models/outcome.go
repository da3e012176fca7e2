package models

import "time"

// QuoteOutcome reports how a previously quoted deal closed. Outcomes
// feed the in-memory history aggregates; durable storage belongs to an
// external collaborator.
type QuoteOutcome struct {
	ProductFamily string    `json:"product_family"`
	Segment       string    `json:"segment"`
	FinalPrice    float64   `json:"final_price"`
	Quantity      int       `json:"quantity"`
	Won           bool      `json:"won"`
	ClosedAt      time.Time `json:"closed_at"`
}

// OutcomeSummary aggregates closed quotes for one product family and
// segment.
type OutcomeSummary struct {
	ProductFamily string    `json:"product_family"`
	Segment       string    `json:"segment"`
	Quotes        int       `json:"quotes"`
	Won           int       `json:"won"`
	WinRate       float64   `json:"win_rate"`
	MinPrice      float64   `json:"min_price"`
	MaxPrice      float64   `json:"max_price"`
	LastClosed    time.Time `json:"last_closed"`
}
