package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/quatton/qsys/pkg/qart"
	"github.com/quatton/qsys/pkg/qsdk"
	"github.com/quatton/qsys/pkg/qsys/models"
	"github.com/spf13/cobra"
)

var jobsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query jobs with a filter expression",
	Example: `  qsysctl jobs query --filter 'config.fun.Contains("system.set_computer_desc")' --take 10
  qsysctl jobs query --filter 'state = "FAILED"' --export failed-jobs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, cfg, err := newSdk(cmd)
		if err != nil {
			return err
		}

		req := models.QueryJobsRequest{}
		req.Filter, _ = cmd.Flags().GetString("filter")
		req.OrderBy, _ = cmd.Flags().GetString("order-by")
		req.Skip, req.Take = pagingFromFlags(cmd)

		resp, err := sdk.Jobs.QueryJobs(cmd.Context(), req)
		if err != nil {
			sdk.HandleUnauthorized(err)
			return err
		}

		if name, _ := cmd.Flags().GetString("export"); name != "" {
			expiry, _ := cmd.Flags().GetDuration("export-expiry")
			obj, err := exportQuery(cmd, cfg.Export, name, req, resp, expiry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d jobs to s3://%s/%s\n", resp.Count, obj.Bucket, obj.Key)
			fmt.Fprintln(cmd.OutOrStdout(), obj.URL)
			return nil
		}

		return renderJobs(cmd, cfg.Output, resp, resp.Data)
	},
}

func exportQuery(cmd *cobra.Command, cfg qsdk.ExportConfig, name string, req models.QueryJobsRequest, resp *models.QueryJobsResponse, expiry time.Duration) (*qart.Object, error) {
	store, err := qart.NewS3Store(qart.S3Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: set export.endpoint and export.bucket", err)
	}

	return qart.ExportJSON(cmd.Context(), store, name, resp, qart.ExportOptions{
		Metadata: exportMetadata(req, resp),
		Expiry:   expiry,
	})
}

// exportMetadata describes an export in object user metadata. Object stores
// only accept ASCII there, so the filter is query-escaped.
func exportMetadata(req models.QueryJobsRequest, resp *models.QueryJobsResponse) map[string]string {
	meta := map[string]string{"count": fmt.Sprint(resp.Count)}
	if req.Filter != "" {
		meta["filter"] = url.QueryEscape(req.Filter)
	}
	return meta
}

func init() {
	jobsCmd.AddCommand(jobsQueryCmd)

	jobsQueryCmd.Flags().String("filter", "", "Filter expression, e.g. 'jid = \"<jid>\" && state = \"FAILED\"'")
	jobsQueryCmd.Flags().String("order-by", "", "Sort order, e.g. 'createdTimestamp descending'")
	jobsQueryCmd.Flags().String("export", "", "Upload the result as JSON under this name to the export bucket")
	jobsQueryCmd.Flags().Duration("export-expiry", qart.DefaultURLExpiry, "Lifetime of the presigned export URL")
	addPagingFlags(jobsQueryCmd)
}
