package pool

import (
	"github.com/openziti/fixmem/cmd/fixmem/fixmem"
	"github.com/spf13/cobra"
)

func init() {
	fixmem.RootCmd.AddCommand(poolCmd)
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Exercise the block pool",
}
