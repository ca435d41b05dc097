package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

func NewAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect compliance alert buckets",
	}
	cmd.AddCommand(newAlertsSummaryCmd(), newAlertsListCmd(), newAlertsWindowsCmd())
	return cmd
}

func newAlertsWindowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Show or change the alert window offsets",
	}
	cmd.AddCommand(newWindowsShowCmd(), newWindowsSetCmd())
	return cmd
}

func newWindowsShowCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the windows in force, creating the defaults if none exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			w, err := b.WindowResolver().Resolve(ctx, tenant)
			if err != nil {
				return err
			}
			return PrintResult(cmd, windowsView{w})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (only used with per-tenant windows)")
	return cmd
}

func newWindowsSetCmd() *cobra.Command {
	var tenant, raw string
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Replace the window offsets",
		Example: "  cronos alerts windows set --offsets 15,45,90",
		RunE: func(cmd *cobra.Command, args []string) error {
			offsets, err := parseOffsets(raw)
			if err != nil {
				return err
			}
			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			w, err := b.WindowResolver().Update(ctx, tenant, offsets)
			if err != nil {
				return err
			}
			return PrintResult(cmd, windowsView{w})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (only used with per-tenant windows)")
	cmd.Flags().StringVar(&raw, "offsets", "", "comma separated day offsets, strictly increasing")
	_ = cmd.MarkFlagRequired("offsets")
	return cmd
}

func parseOffsets(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeValidation, "--offsets must be integers, got %q", p)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "--offsets is empty")
	}
	return out, nil
}

func newAlertsSummaryCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count records per alert bucket",
		Long:  "Count expired and due records per alert bucket. Without --tenant every tenant is counted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			sum, err := b.AlertsService().Summary(ctx, tenant)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summaryView{sum})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (default: all tenants)")
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	var tenant, filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records inside the alert horizon",
		Long:  "List records sorted by due date. --filter names a bucket (expired, due1, due2, ...); unknown names list every bucket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			listing, err := b.AlertsService().List(ctx, tenant, filter)
			if err != nil {
				return err
			}
			return PrintResult(cmd, listingView{listing})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (default: all tenants)")
	cmd.Flags().StringVar(&filter, "filter", "", "bucket name")
	return cmd
}

type summaryView struct{ *alerts.Summary }

func (v summaryView) TableHeaders() []string { return []string{"BUCKET", "FROM_DAYS", "TO_DAYS", "COUNT"} }

func (v summaryView) TableRows() [][]string {
	buckets := v.Buckets()
	rows := make([][]string, 0, len(buckets)+1)
	for _, b := range buckets {
		from := "-"
		if b.FromDays != nil {
			from = strconv.Itoa(*b.FromDays)
		}
		rows = append(rows, []string{b.Bucket, from, strconv.Itoa(b.ToDays), strconv.Itoa(b.Count)})
	}
	rows = append(rows, []string{"total", "", "", strconv.Itoa(v.Total())})
	return rows
}

type windowsView struct {
	*compliance.AlertWindows
}

func (v windowsView) TableHeaders() []string { return []string{"SCOPE", "ID", "OFFSETS"} }

func (v windowsView) TableRows() [][]string {
	offsets := make([]string, len(v.Offsets))
	for i, o := range v.Offsets {
		offsets[i] = strconv.Itoa(o)
	}
	return [][]string{{v.Scope, strconv.FormatInt(v.ID, 10), strings.Join(offsets, ",")}}
}

type listingView struct{ *alerts.Listing }

func (v listingView) TableHeaders() []string {
	return []string{"ID", "TENANT", "CATEGORY", "LABEL", "SUBJECT", "DUE_DATE", "DAYS", "STATUS", "BUCKET"}
}

func (v listingView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		rows = append(rows, []string{
			r.ID, r.TenantID, r.Category, r.Label, r.SubjectLabel,
			r.DueDate, strconv.Itoa(r.DaysToDue), string(r.Status), r.Bucket,
		})
	}
	return rows
}
