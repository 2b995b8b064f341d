// Package cmd holds the auxiliary CLI subcommands.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/videoswitch/internal/devices"
	"github.com/smazurov/videoswitch/internal/events"
)

// DevicesCmd lists the capture devices visible to the switcher without
// starting the server.
var DevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	Long:  `Enumerate capture devices across all providers (V4L2 nodes and virtual cameras) and print them as a table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devDir, _ := cmd.Flags().GetString("dev-dir")
		virtuals, _ := cmd.Flags().GetStringSlice("virtual")

		manager := devices.NewManager(events.New(), devDir,
			devices.NewV4L2Provider(devices.V4L2Config{DevDir: devDir}),
			devices.NewSyntheticProvider(virtuals, 0, 0, 0),
		)

		list, stats, err := manager.Discover(true)
		if err != nil {
			return fmt.Errorf("device discovery: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tPATH")
		for _, d := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Provider, d.Path)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d device(s)\n", stats.Total)
		return nil
	},
}

func init() {
	DevicesCmd.Flags().String("dev-dir", "/dev", "Directory scanned for V4L2 device nodes")
	DevicesCmd.Flags().StringSlice("virtual", nil, "Virtual camera names to include")
}
