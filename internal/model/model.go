// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Kind distinguishes whole machines from spare parts.
type Kind string

const (
	KindGrader Kind = "grader"
	KindPart   Kind = "part"
)

// StockCountry is the warehousing region of a listing.
type StockCountry string

const (
	CountryEU    StockCountry = "EU"
	CountryKenya StockCountry = "Kenya"
	CountryUS    StockCountry = "US"
)

// SaleStatus is the display state derived from Listing.IsSold.
type SaleStatus string

const (
	StatusForSale SaleStatus = "for-sale"
	StatusSold    SaleStatus = "sold"
)

// Listing is a grader or part shown in the catalog.
type Listing struct {
	ID           uuid.UUID         `json:"id"`
	Kind         Kind              `json:"kind"`
	Title        string            `json:"title"`
	Brand        string            `json:"brand"`
	Model        string            `json:"model"` // model for graders, category for parts
	Price        int64             `json:"price"` // integer currency units, > 0
	Year         int               `json:"year,omitempty"`
	PartNumber   string            `json:"partNumber,omitempty"`
	Images       []string          `json:"images"`
	Description  string            `json:"description"`
	Specs        map[string]string `json:"specs,omitempty"`
	Features     []string          `json:"features,omitempty"`
	Safety       []string          `json:"safety,omitempty"`
	IsNew        bool              `json:"isNew"`
	IsSold       bool              `json:"isSold"`
	ListedAt     time.Time         `json:"listedAt"`
	StockCountry StockCountry      `json:"stockCountry"`
}

// Status returns the derived sale status.
func (l Listing) Status() SaleStatus {
	if l.IsSold {
		return StatusSold
	}
	return StatusForSale
}

// PriceRange bounds a price filter. Zero on either side means unbounded.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FilterState is the set of active catalog filters.
// An empty set for a dimension means no constraint on it.
type FilterState struct {
	Brands     []string       `json:"brands,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Countries  []StockCountry `json:"countries,omitempty"`
	Statuses   []SaleStatus   `json:"statuses,omitempty"`
	Kinds      []Kind         `json:"kinds,omitempty"`
	Price      PriceRange     `json:"price"`
}

// SortKey selects the catalog ordering.
type SortKey string

const (
	SortNone      SortKey = ""
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// Query is a complete catalog request: filters, free text and ordering.
type Query struct {
	Filter FilterState
	Text   string
	Sort   SortKey
}

// VerificationSession tracks an issued two-factor code pending confirmation.
type VerificationSession struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
	Attempts int       `json:"attempts"`
}

// Admin is a dashboard account. Passwords are never stored in plaintext.
type Admin struct {
	ID        uuid.UUID
	Email     string // unique
	Name      string
	PwdHash   []byte // Argon2id(password, Salt)
	Salt      []byte
	CreatedAt time.Time
}

// Tokens collects an issued access token and its expiry.
type Tokens struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ReplySource tells which chat rule produced a reply.
type ReplySource string

const (
	SourceExact     ReplySource = "exact"
	SourceSubstring ReplySource = "substring"
	SourceSearch    ReplySource = "search"
	SourceDefault   ReplySource = "default"
)

// ChatReply is the chat widget answer to one message.
type ChatReply struct {
	Reply    string      `json:"reply"`
	Source   ReplySource `json:"source"`
	Listings []Listing   `json:"listings,omitempty"`
}
