package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/config"
	"github.com/scholarlyreport/scholarly/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the rendered report to S3",
	Long: `Publish uploads every file of the output directory to the S3 bucket named
in scholarly.yml (s3.bucket), below s3.prefix.

Credentials come from SCHOLARLY_S3_ACCESS_KEY / SCHOLARLY_S3_SECRET_KEY or
the global config; without them the default AWS credential chain is used.`,
	RunE: runPublish,
}

var publishDryRun bool

func init() {
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Validate the target without uploading")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(mustFindProject())
	logger := mustNewLogger()
	defer logger.Sync()

	if cfg.S3.Bucket == "" {
		exitWithError(ExitConfigError, "%v (set s3.bucket in %s)", publish.ErrNoBucket, config.ProjectFile)
	}
	if publishDryRun {
		outputStatus("ok", cfg.OutputDir)
		return nil
	}

	res, err := publishReport(cmd.Context(), cfg, logger)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Uploaded %d files (%s) to s3://%s/%s\n", res.Files, formatBytes(res.Bytes), res.Bucket, res.Prefix)
		return nil
	}
	return outputJSON(res)
}

// publishReport uploads the output directory to the configured bucket.
func publishReport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*publish.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	accessKey, secretKey := config.GetS3Credentials()
	client, err := publish.NewS3Client(ctx, cfg.S3, accessKey, secretKey)
	if err != nil {
		return nil, err
	}
	up := publish.NewUploader(client, cfg.S3.Bucket,
		publish.WithPrefix(cfg.S3.Prefix),
		publish.WithLogger(logger))
	return up.Upload(ctx, cfg.OutputDir)
}

func outputStatus(status, path string) {
	if humanOutput {
		fmt.Printf("%s: %s\n", status, path)
		return
	}
	outputJSON(StatusResponse{Status: status, Path: path})
}
