package client

import (
	"context"
	"net/url"
)

// AlertsClient reads /api/v1/alerts.
type AlertsClient struct {
	client *Client
}

// BucketCount is one bucket of a summary. FromDays is nil for "expired".
type BucketCount struct {
	Bucket   string `json:"bucket"`
	FromDays *int   `json:"fromDays"`
	ToDays   int    `json:"toDays"`
	Count    int    `json:"count"`
}

type Summary struct {
	Buckets []BucketCount `json:"buckets"`
}

// Count returns the count of the named bucket, zero when absent.
func (s Summary) Count(bucket string) int {
	for _, b := range s.Buckets {
		if b.Bucket == bucket {
			return b.Count
		}
	}
	return 0
}

func (s Summary) Total() int {
	n := 0
	for _, b := range s.Buckets {
		n += b.Count
	}
	return n
}

type AlertRow struct {
	ID           string `json:"id"`
	SourceID     string `json:"sourceId"`
	Kind         string `json:"kind"`
	Category     string `json:"category"`
	Label        string `json:"label"`
	SubjectLabel string `json:"subjectLabel"`
	TenantID     string `json:"tenantId"`
	DueDate      string `json:"dueDate"`
	Status       string `json:"status"`
	DaysToDue    int    `json:"daysToDue"`
	Bucket       string `json:"bucket"`
}

type AlertListing struct {
	Filter string     `json:"filter,omitempty"`
	Rows   []AlertRow `json:"rows"`
	Total  int        `json:"total"`
}

// Summary counts records per bucket. An empty tenant asks for every tenant
// the token may read.
func (a *AlertsClient) Summary(ctx context.Context, tenant string) (*Summary, error) {
	var out Summary
	if err := a.client.get(ctx, "/api/v1/alerts/summary", nil, tenant, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the alert rows, restricted to one bucket when filter is set.
func (a *AlertsClient) List(ctx context.Context, tenant, filter string) (*AlertListing, error) {
	var q url.Values
	if filter != "" {
		q = url.Values{"filter": {filter}}
	}
	var out AlertListing
	if err := a.client.get(ctx, "/api/v1/alerts", q, tenant, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
