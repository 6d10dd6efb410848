package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	User        string
	ChainFilter string // Only export rows for this chain id
	OutputDir   string
}

// ReportExporter writes per-reserve revenue breakdowns to disk
type ReportExporter struct {
	logger *zap.Logger
}

// NewReportExporter creates a new report exporter
func NewReportExporter(logger *zap.Logger) *ReportExporter {
	return &ReportExporter{
		logger: logger,
	}
}

// ExportResult writes the result breakdown based on the provided options and
// returns the output file path
func (re *ReportExporter) ExportResult(res *revenue.Result, options ExportOptions) (string, error) {
	rows := re.filterRows(res.Breakdown, options)

	filename := re.generateFilename(options, res.Window)
	outputPath := filepath.Join(options.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = re.exportToCSV(rows, outputPath)
	case FormatJSON:
		err = re.exportToJSON(res, rows, options, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	re.logger.Info("Revenue report exported",
		zap.String("file", outputPath),
		zap.Int("reserves", len(rows)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterRows applies filters to the breakdown
func (re *ReportExporter) filterRows(rows []revenue.ReserveRevenue, options ExportOptions) []revenue.ReserveRevenue {
	if options.ChainFilter == "" {
		return rows
	}
	chain := revenue.NormalizeTokenID(options.ChainFilter)
	var filtered []revenue.ReserveRevenue
	for _, row := range rows {
		if row.ChainID == chain {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// generateFilename creates a filename based on export options
func (re *ReportExporter) generateFilename(options ExportOptions, w revenue.Window) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "revenue_all"
	if options.ChainFilter != "" {
		prefix = fmt.Sprintf("revenue_%s", revenue.NormalizeTokenID(options.ChainFilter))
	}
	if len(options.User) >= 8 {
		prefix += "_" + revenue.NormalizeTokenID(options.User)[:8]
	}

	return fmt.Sprintf("%s_%d_%d_%s.%s", prefix, w.Start, w.End, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{"chain_id", "reserve_token", "decimals", "raw_revenue", "tokens", "price_usd", "revenue_usd"}
}

func csvRow(row revenue.ReserveRevenue) []string {
	return []string{
		row.ChainID,
		row.ReserveToken,
		strconv.Itoa(int(row.Decimals)),
		row.RawRevenue,
		row.Tokens.String(),
		row.PriceUSD.String(),
		row.USD.String(),
	}
}

// exportToCSV writes the breakdown rows in CSV format
func (re *ReportExporter) exportToCSV(rows []revenue.ReserveRevenue, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(csvRow(row)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

// exportToJSON writes the full result with metadata in JSON format
func (re *ReportExporter) exportToJSON(res *revenue.Result, rows []revenue.ReserveRevenue, options ExportOptions, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime   time.Time                `json:"export_time"`
		User         string                   `json:"user,omitempty"`
		WindowStart  int64                    `json:"window_start"`
		WindowEnd    int64                    `json:"window_end"`
		ReserveCount int                      `json:"reserve_count"`
		TotalUSD     decimal.Decimal          `json:"total_usd"`
		Breakdown    []revenue.ReserveRevenue `json:"breakdown"`
	}{
		ExportTime:   time.Now(),
		User:         options.User,
		WindowStart:  res.Window.Start,
		WindowEnd:    res.Window.End,
		ReserveCount: len(rows),
		TotalUSD:     sumRows(rows),
		Breakdown:    rows,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// sumRows totals the exported rows; with a chain filter active this is the
// filtered subtotal, not necessarily the query total.
func sumRows(rows []revenue.ReserveRevenue) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.USD)
	}
	return total
}
