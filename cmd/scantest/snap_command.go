package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scantest/internal/snapshot"
)

func newSnapCommand(ctx *commandContext) *cobra.Command {
	var deviceFlag string

	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Take a photo with a camera and save it as JPEG",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			devices, err := registry.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			device, err := registry.Resolve(cmd.Context(), chooseDevice(deviceFlag, cfg, devices))
			if err != nil {
				return err
			}

			path, err := snapshot.New(cfg, logger).Capture(cmd.Context(), device)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deviceFlag, "device", "d", "", "Camera id or path (default: configured or back/rear camera)")
	return cmd
}
