package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options параметры одного запуска
type options struct {
	Input   string
	Now     time.Time
	Since   time.Time
	Config  longterm.Config
	Verbose bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Finds long-term stopped vehicles in a batch of detections",
		Long: `analyze reads a JSON array of vehicle detections, groups them into tracks,
finds vehicles that have not moved for a long time and prints the report as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readOptions(v)
			if err != nil {
				return err
			}
			return run(opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	defaults := longterm.DefaultConfig()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.Flags().StringP("input", "i", "-", "detections file, '-' for stdin")
	cmd.Flags().String("now", "", "reference time in RFC3339, required")
	cmd.Flags().String("since", "", "ignore detections before this RFC3339 time")
	cmd.Flags().Float64("stop-threshold-hours", defaults.StopThresholdHours, "minimum stop duration to flag a vehicle")
	cmd.Flags().Float64("movement-threshold-meters", defaults.MovementThresholdMeters, "displacement below which a vehicle is stationary")
	cmd.Flags().Float64("cluster-radius-meters", defaults.ClusterRadiusMeters, "neighbourhood radius for stop clusters")
	cmd.Flags().Float64("min-stop-duration-hours", defaults.MinStopDurationHours, "shortest stop interval that is kept")
	cmd.Flags().BoolP("verbose", "v", false, "log pipeline progress to stderr")

	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("ANALYZE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
	}
	return nil
}

func readOptions(v *viper.Viper) (options, error) {
	opts := options{
		Input:   v.GetString("input"),
		Verbose: v.GetBool("verbose"),
		Config: longterm.Config{
			StopThresholdHours:      v.GetFloat64("stop-threshold-hours"),
			MovementThresholdMeters: v.GetFloat64("movement-threshold-meters"),
			ClusterRadiusMeters:     v.GetFloat64("cluster-radius-meters"),
			MinStopDurationHours:    v.GetFloat64("min-stop-duration-hours"),
		},
	}

	var err error
	if opts.Now, err = parseTime(v.GetString("now")); err != nil {
		return opts, fmt.Errorf("invalid --now: %w", err)
	}
	if opts.Now.IsZero() {
		return opts, fmt.Errorf("--now is required: %w", longterm.ErrMissingReferenceTime)
	}
	if opts.Since, err = parseTime(v.GetString("since")); err != nil {
		return opts, fmt.Errorf("invalid --since: %w", err)
	}
	return opts, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func run(opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	detections, err := readDetections(opts.Input, stdin)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	detector, err := longterm.NewDetector(opts.Config, longterm.WithLogger(logger))
	if err != nil {
		return err
	}

	report, err := detector.Analyze(longterm.Input{
		Detections: detections,
		Now:        opts.Now,
		Since:      opts.Since,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readDetections(path string, stdin io.Reader) ([]models.Detection, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var detections []models.Detection
	if err := json.NewDecoder(r).Decode(&detections); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}
	return detections, nil
}
