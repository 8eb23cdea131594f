package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/0Reliance/Maeple-sub002/internal/config"
	"github.com/0Reliance/Maeple-sub002/internal/models"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "maeple-bio",
		Short: "Maeple biofeedback analysis pipeline",
		Long: `maeple-bio runs facial expression captures through the Maeple analysis
pipeline: resilient service calls, response normalization, quality
assessment, and self-report comparison, with an offline fallback when the
service is unavailable.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", defaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newCaptureCmd(),
		newAnalyzeCmd(),
		newAssessCmd(),
		newCompareCmd(),
		newHistoryCmd(),
		newEventsCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "maeple", "config.yaml")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newLogger(cmd *cobra.Command) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func readCapture(path string) ([]byte, string, error) {
	imageBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read capture: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return imageBytes, mimeType, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("maeple-bio version %s\n", version)
			}
		},
	}
}

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture <image-file>",
		Short: "Run a full capture session",
		Long: `Run one capture through the full session pipeline and print the
normalized analysis record with its quality assessment. The result is
journaled, and the service is health-checked up front so degraded mode is
visible before the session starts.

Example:
  maeple-bio capture selfie.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			imageBytes, mimeType, err := readCapture(args[0])
			if err != nil {
				return err
			}

			logger := newLogger(cmd)
			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.Ping(cmd.Context()); err != nil {
				logger.Warn("analysis service unreachable, capture may degrade to offline mode", "err", err)
			}

			sess := a.pipeline.StartCapture()
			if err := sess.BeginCapture(); err != nil {
				return err
			}
			record, err := sess.Submit(cmd.Context(), imageBytes, mimeType)
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}

			outcome := sess.Outcome()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"record":     record,
					"assessment": outcome.Assessment,
				})
			}

			printRecord(record)
			if outcome.Assessment != nil {
				printAssessment(*outcome.Assessment)
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image-file>",
		Short: "Analyze a capture without session bookkeeping",
		Long: `Send one capture to the analysis service and print the normalized
record. Skips the session state machine, quality assessment, and journal;
useful for inspecting what the service returns for a given image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			imageBytes, mimeType, err := readCapture(args[0])
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			raw, err := a.adapter.AnalyzeImage(cmd.Context(), imageBytes, mimeType)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			record := a.normalizer.Normalize(raw)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(record)
			}
			printRecord(&record)
			return nil
		},
	}
}

func newAssessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <record-file>",
		Short: "Grade the reliability of a saved analysis record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			record, err := readRecordFile(args[0])
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			assessment := a.pipeline.GetQuality(record)
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(assessment)
			}
			printAssessment(assessment)
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <record-file>",
		Short: "Compare self-reported scores against an analysis record",
		Long: `Compare a self-report against the objective analysis, surfacing
alignment, discrepancy, and possible masking.

Example:
  maeple-bio compare record.json --scores mood=0.8,energy=0.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			record, err := readRecordFile(args[0])
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("scores")
			scores, err := parseScores(raw)
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.pipeline.CompareToSelfReport(models.SelfReport{DimensionScores: scores}, record)
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			fmt.Printf("Alignment: %s (discrepancy %.3f)\n", result.Alignment, result.DiscrepancyScore)
			if result.Masking.Detected {
				fmt.Printf("Masking signal detected (confidence %.2f)\n", result.Masking.Confidence)
				for _, ind := range result.Masking.Indicators {
					fmt.Printf("  - %s\n", ind)
				}
			}
			fmt.Println("Recommendations:")
			for _, r := range result.Recommendations {
				fmt.Printf("  - %s\n", r)
			}
			return nil
		},
	}
	cmd.Flags().String("scores", "", "Self-reported scores, e.g. mood=0.8,energy=0.4")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListAnalyses(cmd.Context(), limit)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No analyses recorded.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s  %-8s confidence %.2f  quality %d (%s)\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.ID, e.Source, e.Confidence, e.QualityScore, e.QualityLevel)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum entries to show (0 for all)")
	return cmd
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List circuit breaker transitions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := buildApp(cfg, newLogger(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			changes, err := a.store.ListStateChanges(cmd.Context(), limit)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(changes)
			}
			if len(changes) == 0 {
				fmt.Println("No breaker events recorded.")
				return nil
			}
			for _, c := range changes {
				fmt.Printf("%s  %-8s %s -> %s\n", c.At.Format("2006-01-02 15:04:05"), c.Endpoint, c.From, c.To)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum events to show (0 for all)")
	return cmd
}

func printRecord(record *models.AnalysisRecord) {
	fmt.Printf("Analysis %s (source: %s, confidence: %.2f)\n", record.ID, record.Source, record.Confidence)
	for _, f := range record.DetectedFeatures {
		fmt.Printf("  %s  %-24s intensity %s  confidence %.2f\n", f.Code, f.DisplayName, f.Intensity, f.Confidence)
	}
	for _, o := range record.Observations {
		fmt.Printf("  [%s/%s] %s\n", o.Category, o.Severity, o.Value)
	}
}

func printAssessment(assessment models.QualityAssessment) {
	fmt.Printf("Quality: %d/100 (%s)\n", assessment.Score, assessment.Level)
	for _, s := range assessment.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
}

// readRecordFile loads an AnalysisRecord from a JSON file.
func readRecordFile(path string) (*models.AnalysisRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var record models.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &record, nil
}

// parseScores parses "mood=0.8,energy=0.4" into dimension scores.
func parseScores(raw string) (map[string]float64, error) {
	scores := map[string]float64{}
	if strings.TrimSpace(raw) == "" {
		return scores, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid score %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score value %q: %w", value, err)
		}
		scores[key] = v
	}
	return scores, nil
}
