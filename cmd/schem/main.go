package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "schem [command] (flags)",
	Short:         "inspect, verify and exercise voxel schematic files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log.SetFlags(0)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/schematic.yaml", "config file (empty for defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log codec events to stderr")

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		inspectCmd,
		verifyCmd,
		listCmd,
		demoCmd,
		journalCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		log.Printf("schem: %v", err)
		os.Exit(1)
	}
}
