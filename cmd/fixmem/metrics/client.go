package metrics

import (
	"github.com/openziti/fixmem/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"strings"
)

func init() {
	metricsCmd.AddCommand(clientCmd)
}

var clientCmd = &cobra.Command{
	Use:   "client <path> <command>",
	Short: "Send a command (start, stop, write, clean) to a metrics instrument controller",
	Args:  cobra.MinimumNArgs(2),
	Run:   client,
}

func client(_ *cobra.Command, args []string) {
	reply, err := util.SendCtrlCommand(args[0], strings.Join(args[1:], " "))
	if err != nil {
		logrus.Fatalf("error sending command (%v)", err)
	}
	if reply == "ok" {
		logrus.Infof("received 'ok'")
	} else {
		logrus.Errorf("invalid response '%s'", reply)
	}
}
