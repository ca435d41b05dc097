package cli

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	domainAgenda "github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// operatorCaller is the identity the CLI reads with. Operators see every
// tenant and every owner.
var operatorCaller = access.Caller{UserID: "cli-operator", Privileged: true}

func NewAgendaCmd() *cobra.Command {
	var tenant, from, to, status, owner string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List the unified agenda",
		Long:  "List CRM tasks merged with contract renewals and compliance due dates.\nDates are YYYY-MM-DD; --to includes the whole day.",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := agenda.Query{TenantID: tenant, Status: status, OwnerID: owner}
			var err error
			if q.From, err = parseDay("from", from); err != nil {
				return err
			}
			if q.To, err = parseDay("to", to); err != nil {
				return err
			}
			if !q.To.IsZero() {
				q.To = q.To.Add(24*time.Hour - time.Nanosecond)
			}

			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			entries, err := b.AgendaService().ListAgenda(ctx, operatorCaller, q)
			if err != nil {
				return err
			}
			return PrintResult(cmd, agendaView(entries))
		},
	}
	f := cmd.Flags()
	f.StringVar(&tenant, "tenant", "", "tenant id (default: all tenants)")
	f.StringVar(&from, "from", "", "first day (default: open)")
	f.StringVar(&to, "to", "", "last day (default: open)")
	f.StringVar(&status, "status", "", "open or done")
	f.StringVar(&owner, "owner", "", "task owner id")
	return cmd
}

func parseDay(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, errors.Newf(errors.ErrCodeValidation, "--%s must be YYYY-MM-DD, got %q", name, raw)
	}
	return t, nil
}

type agendaView []domainAgenda.Entry

type agendaItem struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	DateTime time.Time             `json:"dateTime"`
	Status   string                `json:"status"`
	Origin   string                `json:"origin"`
	LeadRef  *domainAgenda.LeadRef `json:"leadRef"`
}

func (v agendaView) MarshalJSON() ([]byte, error) {
	items := make([]agendaItem, 0, len(v))
	for _, e := range v {
		items = append(items, agendaItem{
			ID: e.ID(), Title: e.Title, DateTime: e.DateTime,
			Status: string(e.Status), Origin: string(e.Origin), LeadRef: e.Lead,
		})
	}
	return json.Marshal(items)
}

func (v agendaView) TableHeaders() []string {
	return []string{"WHEN", "ORIGIN", "STATUS", "ID", "LEAD", "TITLE"}
}

func (v agendaView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, e := range v {
		lead := ""
		if e.Lead != nil {
			lead = e.Lead.Name
		}
		rows = append(rows, []string{
			e.DateTime.Format("2006-01-02 15:04"), string(e.Origin), string(e.Status), e.ID(), lead, e.Title,
		})
	}
	return rows
}
