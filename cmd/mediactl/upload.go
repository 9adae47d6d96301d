package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediaondemand/services"
	"mediaondemand/worker"
)

var (
	uploadManifest string
	uploadWorkers  int
	uploadRetries  int
)

var uploadVideosCmd = &cobra.Command{
	Use:   "upload-videos <dir>",
	Short: "Upload local video files to the video bucket",
	Long: `Upload every .mp4, .mov, .m4v and .webm file in a directory to
videos/<slug><ext> in the video bucket, then write a JSON manifest of
{filename, storagePath, publicUrl} for the uploaded files.

Examples:
  mediactl upload-videos ./videos
  mediactl upload-videos ./videos --manifest out.json --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runUploadVideos,
}

func init() {
	uploadVideosCmd.Flags().StringVarP(&uploadManifest, "manifest", "m", "video-manifest.json", "manifest output path")
	uploadVideosCmd.Flags().IntVarP(&uploadWorkers, "workers", "w", 4, "concurrent uploads")
	uploadVideosCmd.Flags().IntVar(&uploadRetries, "retries", 3, "retries per file")
}

func runUploadVideos(cmd *cobra.Command, args []string) error {
	if !cfg.VideoStorageConfigured() {
		return errors.New("storage is not configured: set SUPABASE_URL, S3_KEY, S3_SECRET and SUPABASE_VIDEO_BUCKET")
	}

	jobs, err := worker.VideoJobs(args[0])
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No video files found.")
		return nil
	}

	store, err := services.NewS3Store(cfg, cfg.VideoBucket)
	if err != nil {
		return err
	}

	results := worker.NewPool(store, logger, uploadWorkers, uploadRetries).Run(cmd.Context(), jobs)

	uploaded, failed := splitResults(results)
	if err := writeJSON(uploadManifest, uploaded); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d of %d files, manifest written to %s\n", len(uploaded), len(results), uploadManifest)
	if len(failed) > 0 {
		for _, res := range failed {
			logger.Error("upload failed", zap.String("filename", res.Filename), zap.Error(res.Err))
		}
		return fmt.Errorf("%d uploads failed", len(failed))
	}
	return nil
}

func splitResults(results []worker.UploadResult) (uploaded, failed []worker.UploadResult) {
	uploaded = []worker.UploadResult{}
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res)
			continue
		}
		uploaded = append(uploaded, res)
	}
	return uploaded, failed
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
