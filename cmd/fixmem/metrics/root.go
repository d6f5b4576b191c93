package metrics

import (
	"github.com/openziti/fixmem/cmd/fixmem/fixmem"
	"github.com/spf13/cobra"
)

func init() {
	fixmem.RootCmd.AddCommand(metricsCmd)
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Control metrics instruments",
}
