package queue

import (
	"github.com/openziti/fixmem/cmd/fixmem/fixmem"
	"github.com/spf13/cobra"
)

func init() {
	fixmem.RootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Exercise the bounded record queue",
}
