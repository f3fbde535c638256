package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"scantest/internal/capture"
)

type deviceView struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Path     string `json:"path"`
	Driver   string `json:"driver,omitempty"`
	BusInfo  string `json:"bus_info,omitempty"`
	Selected bool   `json:"selected"`
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached cameras and the default selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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
			selected := chooseDevice("", cfg, devices)

			views := make([]deviceView, 0, len(devices))
			for _, dev := range devices {
				views = append(views, deviceView{
					ID:       dev.ID,
					Label:    dev.Label,
					Path:     dev.Path,
					Driver:   dev.Driver,
					BusInfo:  dev.BusInfo,
					Selected: dev.ID == selected,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDeviceTable(devices, selected))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print devices as JSON")
	return cmd
}

func renderDeviceTable(devices []capture.CaptureDevice, selected string) string {
	rows := make([][]string, 0, len(devices))
	for _, dev := range devices {
		rows = append(rows, []string{
			dev.ID,
			dev.Label,
			dev.Path,
			dev.Driver,
			yesNo(dev.ID == selected),
		})
	}
	return renderTable([]column{
		{header: "ID"},
		{header: "Label", maxWidth: 40},
		{header: "Path"},
		{header: "Driver"},
		{header: "Default", align: text.AlignRight},
	}, rows)
}
