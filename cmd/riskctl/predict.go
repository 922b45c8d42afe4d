package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/artifacts"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/render"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

var (
	inputFlag = &urfave.StringFlag{
		Name:  "input",
		Usage: "JSON or YAML file with feature values, either flat or under a features key",
	}

	setFlag = &urfave.StringSliceFlag{
		Name:  "set",
		Usage: "Feature value as NAME=VALUE, repeatable; applied after --input",
	}

	defaultsFlag = &urfave.BoolFlag{
		Name:  "defaults",
		Usage: "Start from the documented form defaults",
	}

	enforceRangesFlag = &urfave.BoolFlag{
		Name:  "enforce-ranges",
		Usage: "Reject values outside the documented form ranges",
	}

	chartsFlag = &urfave.BoolFlag{
		Name:  "charts",
		Usage: "Draw the force and waterfall charts to stderr",
	}
)

var predictCmd = &urfave.Command{
	Name:  "predict",
	Usage: "Score one patient and explain the score",
	Flags: []urfave.Flag{
		inputFlag,
		setFlag,
		defaultsFlag,
		enforceRangesFlag,
		chartsFlag,
	},
	Action: cmdPredict,
}

func cmdPredict(c *urfave.Context) error {
	cfg := getConfig(c)

	bundle, err := artifacts.NewStore(cfg.ArtifactsDir).Load()
	if err != nil {
		return err
	}
	if bundle.EngineErr != nil {
		cfg.Logger.Warn("Attribution engine unavailable", "error", bundle.EngineErr)
	}

	values := map[string]float64{}
	if c.Bool(defaultsFlag.Name) {
		values = bundle.Schema.Defaults()
	}
	if path := c.String(inputFlag.Name); path != "" {
		in, err := readFeatures(path)
		if err != nil {
			return err
		}
		for k, v := range in {
			values[k] = v
		}
	}
	if err := applySets(values, c.StringSlice(setFlag.Name)); err != nil {
		return err
	}

	if c.Bool(enforceRangesFlag.Name) {
		if err := bundle.Schema.ValidateRanges(values); err != nil {
			return err
		}
	}

	renderer, err := render.NewRenderer(
		render.WithTerminalPlotter(render.NewTerminalPlotter()),
		render.WithObserver(cfg.Logger),
		render.WithLogger(cfg.Logger.Logger),
	)
	if err != nil {
		return err
	}

	rc, err := analysis.NewRiskClassifier(bundle.Schema, bundle.Classifier, bundle.Engine, renderer,
		analysis.WithLogger(cfg.Logger),
	)
	if err != nil {
		return err
	}

	out, err := rc.AssessValues(c.Context, values)
	if err != nil {
		return err
	}

	if c.Bool(chartsFlag.Name) && out.Explanation != nil {
		for _, art := range []*render.Artifact{out.Explanation.Force, out.Explanation.Waterfall} {
			if art != nil && art.Text != "" {
				fmt.Fprintln(c.App.ErrWriter, art.Text)
			}
		}
	}

	return encode(c.App.Writer, cfg.Format, out)
}

// readFeatures accepts {"features": {...}} as posted to the API, or a flat map.
func readFeatures(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("failed to read %s", path), err.Error())
	}

	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	var req types.PredictRequest
	if err := unmarshal(data, &req); err == nil && len(req.Features) > 0 {
		return req.Features, nil
	}

	var flat map[string]float64
	if err := unmarshal(data, &flat); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("failed to parse %s", path), err.Error())
	}
	return flat, nil
}

func applySets(values map[string]float64, sets []string) error {
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return apperrors.NewValidationError(fmt.Sprintf("--set %q is not NAME=VALUE", s))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("--set %s: %q is not a number", name, raw))
		}
		values[name] = v
	}
	return nil
}
