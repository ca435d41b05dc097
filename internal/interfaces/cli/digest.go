package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/application/digest"
)

func NewDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Publish per-tenant alert digests",
	}
	cmd.AddCommand(newDigestPublishCmd())
	return cmd
}

func newDigestPublishCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish digests now",
		Long:  "Publish the alert digest of one tenant, or of every tenant when --tenant is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ctx, cancel, err := backendFor(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			pub, err := b.Publisher()
			if err != nil {
				return err
			}

			if tenant != "" {
				published, err := pub.PublishTenant(ctx, tenant)
				if err != nil {
					return err
				}
				if !published {
					PrintSuccess(cmd, fmt.Sprintf("tenant %s has nothing to report, skipped", tenant))
					return nil
				}
				PrintSuccess(cmd, fmt.Sprintf("digest published for tenant %s", tenant))
				return nil
			}

			res, err := pub.PublishAll(ctx)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, resultView{res}); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d tenant(s) failed", len(res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "publish a single tenant")
	return cmd
}

type resultView struct{ *digest.Result }

func (v resultView) TableHeaders() []string { return []string{"TENANTS", "PUBLISHED", "SKIPPED", "FAILED"} }

func (v resultView) TableRows() [][]string {
	rows := [][]string{{
		strconv.Itoa(v.Tenants), strconv.Itoa(v.Published), strconv.Itoa(v.Skipped), strconv.Itoa(len(v.Failed)),
	}}
	tenants := make([]string, 0, len(v.Failed))
	for t := range v.Failed {
		tenants = append(tenants, t)
	}
	sort.Strings(tenants)
	for _, t := range tenants {
		rows = append(rows, []string{"failed: " + t, v.Failed[t]})
	}
	return rows
}
