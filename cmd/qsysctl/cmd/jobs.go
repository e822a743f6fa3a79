package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/quatton/qsys/pkg/qsys"
	"github.com/quatton/qsys/pkg/qsys/models"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:     "jobs",
	Aliases: []string{"job"},
	Short:   "Create, list, query and cancel systems management jobs",
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Dispatch a job to one or more target systems",
	Example: `  qsysctl jobs create --tgt <SYSTEM_ID> --fun system.set_computer_desc \
    --arg '["A description"]' --metadata '{"queued": true}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, cfg, err := newSdk(cmd)
		if err != nil {
			return err
		}

		req, err := createRequestFromFlags(cmd)
		if err != nil {
			return err
		}

		resp, err := sdk.Jobs.CreateJob(cmd.Context(), req)
		if err != nil {
			sdk.HandleUnauthorized(err)
			return err
		}

		err = render(cmd.OutOrStdout(), cfg.Output, resp, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "JID\tTARGETS\tFUNCTIONS")
			fmt.Fprintf(tw, "%s\t%s\t%s\n", resp.JID, joinOrDash(resp.TargetSystems), joinOrDash(resp.Functions))
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

func createRequestFromFlags(cmd *cobra.Command) (models.CreateJobRequest, error) {
	var req models.CreateJobRequest
	flags := cmd.Flags()

	tgt, _ := flags.GetStringSlice("tgt")
	fun, _ := flags.GetStringSlice("fun")
	rawArgs, _ := flags.GetStringArray("arg")
	rawMeta, _ := flags.GetString("metadata")

	if len(tgt) > 0 {
		req.TargetSystems = tgt
	}
	if len(fun) > 0 {
		req.Functions = fun
	}

	arguments, err := parseArguments(rawArgs)
	if err != nil {
		return req, err
	}
	req.Arguments = arguments

	if strings.TrimSpace(rawMeta) != "" {
		if err := models.DecodeValue([]byte(rawMeta), &req.Metadata); err != nil {
			return req, fmt.Errorf("--metadata must be a JSON object: %w", err)
		}
	}
	return req, nil
}

// parseArguments decodes one JSON array per function.
func parseArguments(raw []string) ([][]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([][]any, 0, len(raw))
	for i, r := range raw {
		var list []any
		if err := models.DecodeValue([]byte(r), &list); err != nil {
			return nil, fmt.Errorf("--arg #%d must be a JSON array: %w", i+1, err)
		}
		if list == nil {
			list = []any{}
		}
		out = append(out, list)
	}
	return out, nil
}

var jobsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List jobs, optionally by jid or system id",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, cfg, err := newSdk(cmd)
		if err != nil {
			return err
		}

		params := qsys.ListJobsParams{}
		params.JID, _ = cmd.Flags().GetString("jid")
		params.SystemID, _ = cmd.Flags().GetString("system-id")
		params.Skip, params.Take = pagingFromFlags(cmd)

		jobs, err := sdk.Jobs.ListJobs(cmd.Context(), params)
		if err != nil {
			sdk.HandleUnauthorized(err)
			return err
		}
		return renderJobs(cmd, cfg.Output, jobs, jobs)
	},
}

var jobsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show how many jobs are active, failed and succeeded",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, cfg, err := newSdk(cmd)
		if err != nil {
			return err
		}

		sum, err := sdk.Jobs.GetJobSummary(cmd.Context())
		if err != nil {
			sdk.HandleUnauthorized(err)
			return err
		}

		err = render(cmd.OutOrStdout(), cfg.Output, sum, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ACTIVE\tFAILED\tSUCCEEDED")
			fmt.Fprintf(tw, "%d\t%d\t%d\n", sum.ActiveCount, sum.FailedCount, sum.SucceededCount)
		})
		if err != nil {
			return err
		}
		if sum.Error != nil {
			return fmt.Errorf("%w: %s", errInBand, sum.Error.Message)
		}
		return nil
	},
}

// pagingFromFlags returns skip and take only when they were set explicitly.
func pagingFromFlags(cmd *cobra.Command) (skip, take *int) {
	if cmd.Flags().Changed("skip") {
		v, _ := cmd.Flags().GetInt("skip")
		skip = &v
	}
	if cmd.Flags().Changed("take") {
		v, _ := cmd.Flags().GetInt("take")
		take = &v
	}
	return skip, take
}

func addPagingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("skip", 0, "Number of jobs to skip")
	cmd.Flags().Int("take", 0, "Maximum number of jobs to return")
}

func renderJobs(cmd *cobra.Command, format string, v any, jobs []models.Job) error {
	return render(cmd.OutOrStdout(), format, v, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "JID\tSYSTEM\tSTATE\tFUNCTIONS\tCREATED")
		for _, j := range jobs {
			var fun []string
			if j.Config != nil {
				fun = j.Config.Functions
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.JID, j.SystemID, j.State, joinOrDash(fun), formatTime(j.CreatedTimestamp))
		}
	})
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsCreateCmd, jobsListCmd, jobsSummaryCmd)

	jobsCreateCmd.Flags().StringSlice("tgt", nil, "Target system id (repeatable)")
	jobsCreateCmd.Flags().StringSlice("fun", nil, "Salt function to run (repeatable)")
	jobsCreateCmd.Flags().StringArray("arg", nil, "JSON array of arguments, one per --fun in order")
	jobsCreateCmd.Flags().String("metadata", "", "JSON object stored with the job")

	jobsListCmd.Flags().String("jid", "", "Only jobs with this jid")
	jobsListCmd.Flags().String("system-id", "", "Only jobs targeting this system")
	addPagingFlags(jobsListCmd)
}
