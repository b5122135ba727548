package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"warpdrive-trainer/internal/device"
)

func deviceCmd() *cli.Command {
	var name string
	return &cli.Command{
		Name:  "device",
		Usage: "Show the compute device a run would use",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "device",
				Usage:       "compute device (auto, cpu, cuda)",
				Value:       string(device.Auto),
				Destination: &name,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := device.Parse(name)
			if err != nil {
				return err
			}
			resolved, err := device.Resolve(kind)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(device.Describe(resolved), "", "  ")
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			_, err = fmt.Fprintln(w, string(data))
			return err
		},
	}
}
