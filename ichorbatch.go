package main

import (
	"context"
	"log/slog"
	"net/mail"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/MedicalGeneticsGraz/ichorbatch/docs"
	"github.com/MedicalGeneticsGraz/ichorbatch/run"
	"github.com/MedicalGeneticsGraz/ichorbatch/sample"
)

func main() {
	Cmd := &cli.Command{
		Name:    "ichorbatch",
		Version: "0.1.3",
		Authors: []any{
			&mail.Address{
				Name:    "Institute of Human Genetics",
				Address: "humangenetik@medunigraz.at",
			},
		},
		Copyright: "Copyright (c) " + time.Now().Format("2006") + " Medical University of Graz, Institute of Human Genetics",
		Usage:     "batch submission of the TSO500 ichorCNA copy-number pipeline",
		UsageText: "ichorbatch [global options] command [command options] [arguments...]",
		Commands: []*cli.Command{
			&run.RunCmd,
			&sample.SampleCmd,
			&docs.BuildCmd,
		},
		EnableShellCompletion: true,
		HideHelp:              false,
		HideVersion:           false,
		ShellComplete: func(ctx context.Context, cmd *cli.Command) {
			cli.DefaultAppComplete(ctx, cmd)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cli.ShowAppHelp(cmd)
			return nil
		},
	}

	if err := Cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
