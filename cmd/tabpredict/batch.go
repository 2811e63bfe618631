package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tabpredict/internal/batch"
	"github.com/samcharles93/tabpredict/internal/predict"
)

func batchCmd() *cli.Command {
	var (
		input         string
		output        string
		column        string
		encoding      string
		probabilities bool
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "Predict every row of a CSV file and write it back with a prediction column",
		ArgsUsage: "[input.csv [output.csv]]",
		Flags: append(append(commonModelFlags(), auditFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input CSV with a header row",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output CSV path",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "column",
				Usage:       "name of the appended prediction column",
				Value:       batch.DefaultColumn,
				Destination: &column,
			},
			&cli.StringFlag{
				Name:        "encoding",
				Usage:       "input text encoding (utf-8, latin1, windows-1252, gbk, ...)",
				Value:       "utf-8",
				Destination: &encoding,
			},
			&cli.BoolFlag{
				Name:        "probabilities",
				Usage:       "append proba_<class> columns when the model supports them",
				Destination: &probabilities,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyBatchConfig(cmd, cfg, &column, &encoding, &probabilities)
			if input == "" {
				input = cmd.Args().Get(0)
			}
			if output == "" {
				output = cmd.Args().Get(1)
			}
			if input == "" || output == "" {
				return commandError(fmt.Errorf("%w: input and output paths are required", errUsage))
			}
			if modelPath == "" {
				return commandError(fmt.Errorf("%w: --model or %s is required", errUsage, envModelPath))
			}

			recorder, closeAudit, err := openRecorder(auditDB)
			if err != nil {
				return commandError(err)
			}
			defer closeAudit()

			runner := batch.NewRunner(predict.NewService(predict.ArtifactLoader(modelPath), recorder))
			sum, err := runner.Run(ctx, batch.Options{
				InputPath:     input,
				OutputPath:    output,
				Column:        column,
				Encoding:      encoding,
				Probabilities: probabilities,
			})
			if err != nil {
				return commandError(err)
			}

			if len(sum.MissingColumns) > 0 {
				fmt.Printf("missing columns filled with 0: %s\n", strings.Join(sum.MissingColumns, ", "))
			}
			fmt.Printf("wrote %d rows to %s\n", sum.Rows, sum.Output)
			return nil
		},
	}
}
