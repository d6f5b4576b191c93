package pool

import (
	"github.com/openziti/fixmem/cmd/fixmem/fixmem"
	"github.com/openziti/fixmem/exercise"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"time"
)

func init() {
	soakCmd.Flags().IntVarP(&iterations, "iterations", "i", 1000000, "Number of alloc/free operations")
	soakCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Random seed (0 selects one from the clock)")
	poolCmd.AddCommand(soakCmd)
}

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Run a randomized alloc/free soak against a profile-sized pool",
	Args:  cobra.NoArgs,
	Run:   soak,
}
var iterations int
var seed int64

func soak(_ *cobra.Command, _ []string) {
	p, err := fixmem.Profile()
	if err != nil {
		logrus.Fatalf("error loading profile (%v)", err)
	}
	pool, err := p.NewBlockPool("pool")
	if err != nil {
		logrus.Fatalf("error creating pool (%v)", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logrus.Infof("soaking [%d] blocks of [%d] bytes, seed [%d]", pool.NumBlocks(), pool.BlockSize(), seed)

	rate := exercise.NewReporter("pool")
	go rate.Run()
	_, err = exercise.PoolSoak(pool, iterations, seed, rate)
	rate.Close()
	if err != nil {
		logrus.Fatalf("soak failed (%v)", err)
	}
	pool.Close()
	fixmem.WriteMetrics(p)
}
