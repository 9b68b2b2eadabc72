package auction

import (
	"sort"
	"time"
)

// Record is one fully-materialised auction result row. A Record only exists
// when every field parsed successfully; rows with sentinel "null" values never
// become Records.
type Record struct {
	IssueDate       time.Time `json:"issue_date"`
	CUSIP           string    `json:"cusip"`
	SecurityTerm    string    `json:"security_term"`
	PricePer100     float64   `json:"price_per100"`
	BidToCoverRatio float64   `json:"bid_to_cover_ratio"`
}

// SortByIssueDate orders records ascending by issue date in place.
func SortByIssueDate(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].IssueDate.Before(records[j].IssueDate)
	})
}
