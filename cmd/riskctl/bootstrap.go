package main

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

var (
	outputShapeFlag = &urfave.StringFlag{
		Name:  "output",
		Usage: "Attribution shape the explainer emits [per_class, matrix, sequence]",
		Value: string(attribution.OutputPerClass),
	}

	forceFlag = &urfave.BoolFlag{
		Name:  "force",
		Usage: "Overwrite existing artifacts",
	}
)

var bootstrapCmd = &urfave.Command{
	Name:  "bootstrap",
	Usage: "Write the demo model, explainer and feature info to the artifacts directory",
	Flags: []urfave.Flag{
		outputShapeFlag,
		forceFlag,
	},
	Action: cmdBootstrap,
}

func cmdBootstrap(c *urfave.Context) error {
	cfg := getConfig(c)
	store := artifacts.NewStore(cfg.ArtifactsDir)

	if store.HasModel() && !c.Bool(forceFlag.Name) {
		return apperrors.NewValidationError(fmt.Sprintf("%s already holds a model, use --force to overwrite", store.Dir()))
	}

	output := attribution.Output(c.String(outputShapeFlag.Name))
	switch output {
	case attribution.OutputPerClass, attribution.OutputMatrix, attribution.OutputSequence:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown attribution output %q", output))
	}

	if err := store.Bootstrap(schema.Default(), output); err != nil {
		return err
	}

	cfg.Logger.SystemLogger("bootstrap", "wrote demo artifacts to "+store.Dir())
	return encode(c.App.Writer, cfg.Format, map[string]string{
		"artifacts": store.Dir(),
		"output":    string(output),
	})
}
