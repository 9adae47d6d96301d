package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediaondemand/services"
)

var backupDir string

var backupIndexCmd = &cobra.Command{
	Use:   "backup-index",
	Short: "Export every search index record to a JSON file",
	RunE:  runBackupIndex,
}

func init() {
	backupIndexCmd.Flags().StringVarP(&backupDir, "out", "o", "backups", "backup directory")
}

type recordSource interface {
	Name() string
	Browse(ctx context.Context, fn func(record map[string]interface{}) error) error
}

type indexBackup struct {
	ExportedAt time.Time                `json:"exportedAt"`
	Index      string                   `json:"index"`
	Count      int                      `json:"count"`
	Records    []map[string]interface{} `json:"records"`
}

func runBackupIndex(cmd *cobra.Command, args []string) error {
	if !cfg.AlgoliaConfigured() {
		return errors.New("search index is not configured: set ALGOLIA_APP_ID and ALGOLIA_ADMIN_KEY")
	}

	index := services.NewAlgoliaIndex(cfg.AlgoliaAppID, cfg.AlgoliaAdminKey, cfg.AlgoliaIndexName)
	path, count, err := writeBackup(cmd.Context(), index, backupDir, time.Now().UTC())
	if err != nil {
		return err
	}

	logger.Info("index backup written", zap.String("index", index.Name()), zap.Int("count", count), zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d records to %s\n", count, path)
	return nil
}

func writeBackup(ctx context.Context, source recordSource, dir string, now time.Time) (string, int, error) {
	backup := indexBackup{
		ExportedAt: now,
		Index:      source.Name(),
		Records:    []map[string]interface{}{},
	}
	err := source.Browse(ctx, func(record map[string]interface{}) error {
		backup.Records = append(backup.Records, record)
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	backup.Count = len(backup.Records)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("algolia-%s-%s.json", backup.Index, now.Format("20060102-150405")))
	if err := writeJSON(path, backup); err != nil {
		return "", 0, err
	}
	return path, backup.Count, nil
}
