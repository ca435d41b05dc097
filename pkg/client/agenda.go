package client

import (
	"context"
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

// AgendaClient reads /api/v1/agenda.
type AgendaClient struct {
	client *Client
}

type LeadRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgendaItem is one agenda row. LeadRef is nil for entries derived from
// contracts and compliance records.
type AgendaItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	DateTime time.Time `json:"dateTime"`
	Status   string    `json:"status"`
	Origin   string    `json:"origin"`
	LeadRef  *LeadRef  `json:"leadRef"`
}

// AgendaParams narrows an agenda request. Zero values are omitted and the
// server defaults apply.
type AgendaParams struct {
	Tenant  string
	From    time.Time
	To      time.Time
	Status  string
	OwnerID string
}

func (p AgendaParams) values() url.Values {
	q := url.Values{}
	if !p.From.IsZero() {
		q.Set("from", p.From.Format(dateLayout))
	}
	if !p.To.IsZero() {
		q.Set("to", p.To.Format(dateLayout))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.OwnerID != "" {
		q.Set("ownerId", p.OwnerID)
	}
	return q
}

func (a *AgendaClient) List(ctx context.Context, p AgendaParams) ([]AgendaItem, error) {
	var out []AgendaItem
	if err := a.client.get(ctx, "/api/v1/agenda", p.values(), p.Tenant, &out); err != nil {
		return nil, err
	}
	return out, nil
}
