package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ReportStore persists archived reports. Implemented by storage.S3ReportStore
// and storage.FileReportStore.
type ReportStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ScanReport is the archived record of one scan cycle
type ScanReport struct {
	Source               string `json:"source"`
	AccountID            int64  `json:"account_id"`
	NearExpiryWindowDays int    `json:"near_expiry_window_days"`
	ScanStats
}

// ReportArchiver writes one JSON report per scan cycle, keyed by scan day and run ID
type ReportArchiver struct {
	store  ReportStore
	source string
	config ScannerConfig
	logger *zap.Logger
}

// NewReportArchiver creates an archiver. source names the instance in the report.
func NewReportArchiver(store ReportStore, source string, config ScannerConfig, logger *zap.Logger) *ReportArchiver {
	return &ReportArchiver{store: store, source: source, config: config, logger: logger}
}

// ReportKey returns the object key for a scan run
func ReportKey(stats *ScanStats) string {
	return fmt.Sprintf("expiry-scans/%s/%s.json", stats.StartedAt.UTC().Format("2006/01/02"), stats.RunID)
}

// Archive uploads the report for stats and returns its key
func (a *ReportArchiver) Archive(ctx context.Context, stats *ScanStats) (string, error) {
	data, err := json.Marshal(ScanReport{
		Source:               a.source,
		AccountID:            a.config.AccountID,
		NearExpiryWindowDays: a.config.NearExpiryWindowDays,
		ScanStats:            *stats,
	})
	if err != nil {
		return "", fmt.Errorf("encode scan report: %w", err)
	}

	key := ReportKey(stats)
	if err := a.store.Upload(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("archive scan report: %w", err)
	}
	a.logger.Info("Scan report archived",
		zap.String("run_id", stats.RunID.String()),
		zap.String("key", key),
	)
	return key, nil
}
