package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// NewDueCmd is a local calculator; it needs neither configuration nor a
// database.
func NewDueCmd() *cobra.Command {
	var (
		occurredOn   string
		validityDays int
		warningDays  int
		today        string
	)
	cmd := &cobra.Command{
		Use:         "due",
		Short:       "Compute the due date and status of an occurrence",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if occurredOn == "" {
				return errors.New(errors.ErrCodeValidation, "--occurred-on is required")
			}
			if validityDays <= 0 {
				return errors.New(errors.ErrCodeValidation, "--validity-days must be positive")
			}
			occurred, err := parseDay("occurred-on", occurredOn)
			if err != nil {
				return err
			}
			now := time.Now()
			if today != "" {
				if now, err = parseDay("today", today); err != nil {
					return err
				}
			}

			fact := compliance.CalculateDue(occurred, validityDays, warningDays, now)
			return PrintResult(cmd, dueView{fact})
		},
	}
	f := cmd.Flags()
	f.StringVar(&occurredOn, "occurred-on", "", "occurrence date (YYYY-MM-DD)")
	f.IntVar(&validityDays, "validity-days", 0, "validity in days")
	f.IntVar(&warningDays, "warning-days", compliance.DefaultWarningDays, "due-soon threshold in days")
	f.StringVar(&today, "today", "", "evaluate as of this date instead of today")
	return cmd
}

type dueView struct{ compliance.DueFact }

func (v dueView) TableHeaders() []string { return []string{"DUE_DATE", "DAYS_TO_DUE", "STATUS"} }

func (v dueView) TableRows() [][]string {
	return [][]string{{v.DueDate.Format("2006-01-02"), strconv.Itoa(v.DaysToDue), string(v.Status)}}
}
