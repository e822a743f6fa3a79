package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/quatton/qsys/pkg/qsys/models"
	"github.com/spf13/cobra"
)

var jobsCancelCmd = &cobra.Command{
	Use:     "cancel",
	Short:   "Cancel jobs on specific systems",
	Example: `  qsysctl jobs cancel --job <JID>:<SYSTEM_ID> --job <JID>:<OTHER_SYSTEM_ID>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, _ := cmd.Flags().GetStringArray("job")
		batch, err := parseJobRefs(refs)
		if err != nil {
			return err
		}

		sdk, cfg, err := newSdk(cmd)
		if err != nil {
			return err
		}

		resp, err := sdk.Jobs.CancelJobs(cmd.Context(), batch)
		if err != nil {
			sdk.HandleUnauthorized(err)
			return err
		}

		err = render(cmd.OutOrStdout(), cfg.Output, resp, func(tw *tabwriter.Writer) {
			if resp.Error == nil {
				fmt.Fprintf(tw, "Canceled %d job(s)\n", len(batch))
				return
			}
			fmt.Fprintln(tw, "JID\tERROR")
			for _, inner := range resp.Error.InnerErrors {
				fmt.Fprintf(tw, "%s\t%s\n", inner.ResourceID, inner.Message)
			}
		})
		if err != nil {
			return err
		}
		if resp.Error != nil {
			return fmt.Errorf("%w: %s", errInBand, resp.Error.Message)
		}
		return nil
	},
}

// parseJobRefs splits JID:SYSTEM_ID pairs.
func parseJobRefs(refs []string) ([]models.CancelJobRequest, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one --job JID:SYSTEM_ID is required")
	}
	out := make([]models.CancelJobRequest, 0, len(refs))
	for _, ref := range refs {
		jid, system, ok := strings.Cut(ref, ":")
		jid, system = strings.TrimSpace(jid), strings.TrimSpace(system)
		if !ok || jid == "" || system == "" {
			return nil, fmt.Errorf("invalid --job %q: want JID:SYSTEM_ID", ref)
		}
		out = append(out, models.CancelJobRequest{JID: jid, SystemID: system})
	}
	return out, nil
}

func init() {
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCancelCmd.Flags().StringArray("job", nil, "Job to cancel as JID:SYSTEM_ID (repeatable)")
}
