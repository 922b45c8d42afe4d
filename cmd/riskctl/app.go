package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	appConfigKey = "app-config"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	artifactsFlag = &urfave.StringFlag{
		Name:    "artifacts",
		Usage:   "Directory holding feature_info, model and explainer artifacts",
		Value:   "./data",
		EnvVars: []string{"ARTIFACTS_DIR"},
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

type appConfig struct {
	ArtifactsDir string
	Format       string
	Logger       *monitoring.Logger
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

// Execute creates and runs the CLI application.
func Execute() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			apperrors.Log(slog.Default(), appErr)
		} else {
			slog.Error("fatal error", "error", err)
		}
		os.Exit(1)
	}
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:            "riskctl",
		Version:         fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:        time.Now(),
		HideHelpCommand: true,
		Usage:           "Score sepsis pressure-injury risk and explain the score from the command line",
		Metadata:        map[string]interface{}{},
		Flags: []urfave.Flag{
			debugFlag,
			artifactsFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			predictCmd,
			schemaCmd,
			bootstrapCmd,
		},
		Before: func(c *urfave.Context) error {
			level := slog.LevelInfo
			if c.Bool(debugFlag.Name) {
				level = slog.LevelDebug
			}
			logger := monitoring.NewLoggerWithOptions(c.App.ErrWriter, level, false)
			slog.SetDefault(logger.Logger)

			format := c.String(formatFlag.Name)
			switch format {
			case formatJSON:
			case formatYAML, "yml":
				format = formatYAML
			default:
				return apperrors.NewValidationError(fmt.Sprintf("unknown output format %q", format))
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				ArtifactsDir: c.String(artifactsFlag.Name),
				Format:       format,
				Logger:       logger,
			}
			return nil
		},
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
