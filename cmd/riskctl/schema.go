package main

import (
	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/types"
)

var builtinFlag = &urfave.BoolFlag{
	Name:  "builtin",
	Usage: "Print the built-in sepsis schema instead of the one in the artifacts directory",
}

var schemaCmd = &urfave.Command{
	Name:  "schema",
	Usage: "Print the ordered features with labels, units, form ranges and defaults",
	Flags: []urfave.Flag{
		builtinFlag,
	},
	Action: cmdSchema,
}

func cmdSchema(c *urfave.Context) error {
	cfg := getConfig(c)

	sch := schema.Default()
	if !c.Bool(builtinFlag.Name) {
		loaded, err := artifacts.NewStore(cfg.ArtifactsDir).LoadSchema()
		if err != nil {
			return err
		}
		sch = loaded
	}

	return encode(c.App.Writer, cfg.Format, types.SchemaResponse{
		Features: sch.Specs(),
		Target:   sch.Target(),
		Defaults: sch.Defaults(),
	})
}
