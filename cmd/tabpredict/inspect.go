package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tabpredict/internal/predict"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "inspect",
		Usage: "Describe a classifier artifact",
		Flags: append(commonModelFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the description as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, cfg)
			if modelPath == "" {
				return commandError(fmt.Errorf("%w: --model or %s is required", errUsage, envModelPath))
			}
			desc, err := predict.NewService(predict.ArtifactLoader(modelPath), nil).Describe(ctx)
			if err != nil {
				return commandError(err)
			}
			if asJSON {
				out, err := json.MarshalIndent(desc, "", "  ")
				if err != nil {
					return commandError(err)
				}
				fmt.Println(string(out))
				return nil
			}
			printDescription(os.Stdout, modelPath, desc)
			return nil
		},
	}
}

func printDescription(w io.Writer, path string, d *predict.Description) {
	fmt.Fprintf(w, "model:         %s\n", path)
	fmt.Fprintf(w, "kind:          %s\n", d.Kind)
	fmt.Fprintf(w, "features:      %d\n", d.NumFeatures)
	if len(d.Schema) > 0 {
		fmt.Fprintf(w, "schema:        %s\n", strings.Join(d.Schema, ", "))
	} else {
		fmt.Fprintf(w, "schema:        (none, input columns are passed through)\n")
	}
	classes := make([]string, len(d.Classes))
	for i, c := range d.Classes {
		classes[i] = fmt.Sprint(c)
	}
	fmt.Fprintf(w, "classes:       %s\n", strings.Join(classes, ", "))
	fmt.Fprintf(w, "probabilities: %t\n", d.Capabilities.HasProbabilities)
}
