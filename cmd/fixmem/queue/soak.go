package queue

import (
	"github.com/openziti/fixmem/cmd/fixmem/fixmem"
	"github.com/openziti/fixmem/exercise"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"time"
)

func init() {
	soakCmd.Flags().IntVarP(&iterations, "iterations", "i", 1000000, "Number of put/retire operations")
	soakCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Random seed (0 selects one from the clock)")
	soakCmd.Flags().IntVar(&records, "records", 256, "Number of distinct records in the data set")
	soakCmd.Flags().IntVar(&minSz, "min", 1, "Minimum record body size")
	soakCmd.Flags().IntVar(&maxSz, "max", 4096, "Maximum record body size")
	queueCmd.AddCommand(soakCmd)
}

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Run a randomized put/retire soak against a profile-sized queue",
	Args:  cobra.NoArgs,
	Run:   soak,
}
var iterations int
var seed int64
var records int
var minSz int
var maxSz int

func soak(_ *cobra.Command, _ []string) {
	p, err := fixmem.Profile()
	if err != nil {
		logrus.Fatalf("error loading profile (%v)", err)
	}
	q, err := p.NewBoundedQueue("queue")
	if err != nil {
		logrus.Fatalf("error creating queue (%v)", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ds, err := exercise.NewDataSet(records, minSz, maxSz, seed)
	if err != nil {
		logrus.Fatalf("error creating data set (%v)", err)
	}
	logrus.Infof("soaking [%d] byte queue with [%d] records, seed [%d]", q.Capacity(), ds.Len(), seed)

	rate := exercise.NewReporter("queue")
	go rate.Run()
	_, err = exercise.QueueSoak(q, ds, iterations, seed, rate)
	rate.Close()
	if err != nil {
		logrus.Fatalf("soak failed (%v)", err)
	}
	q.Close()
	fixmem.WriteMetrics(p)
}
