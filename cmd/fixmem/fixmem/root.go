package fixmem

import (
	"github.com/openziti/fixmem"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&doCpuProfile, "cpu", false, "Enable CPU profiling")
	RootCmd.PersistentFlags().BoolVar(&doMemoryProfile, "memory", false, "Enable memory profiling")
	RootCmd.PersistentFlags().BoolVar(&doMutexProfile, "mutex", false, "Enable mutex profiling")
	RootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Profile (YAML) path")
	RootCmd.PersistentFlags().BoolVarP(&profileDump, "dump", "d", false, "Dump the processed profile")
}

var RootCmd = &cobra.Command{
	Use:   strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0])),
	Short: "Fixed-buffer memory primitive exercisers",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if doCpuProfile {
			cpuProfile = profile.Start(profile.CPUProfile)
		}
		if doMemoryProfile {
			memoryProfile = profile.Start(profile.MemProfile)
		}
		if doMutexProfile {
			mutexProfile = profile.Start(profile.MutexProfile)
		}
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cpuProfile != nil {
			cpuProfile.Stop()
		}
		if memoryProfile != nil {
			memoryProfile.Stop()
		}
		if mutexProfile != nil {
			mutexProfile.Stop()
		}
	},
}
var verbose bool
var doCpuProfile bool
var cpuProfile interface{ Stop() }
var doMemoryProfile bool
var memoryProfile interface{ Stop() }
var doMutexProfile bool
var mutexProfile interface{ Stop() }
var profilePath string
var profileDump bool

// Profile returns the profile selected by --profile, or the baseline profile.
func Profile() (*fixmem.Profile, error) {
	p := fixmem.NewBaselineProfile()
	if profilePath != "" {
		var err error
		if p, err = fixmem.LoadProfile(profilePath); err != nil {
			return nil, err
		}
	}
	if profileDump {
		logrus.Info(p.Dump())
	}
	return p, nil
}

// WriteMetrics flushes the metrics instrument, when the profile selected one.
func WriteMetrics(p *fixmem.Profile) {
	i, err := p.NewInstrument()
	if err != nil {
		return
	}
	if mi, ok := i.(*fixmem.MetricsInstrument); ok {
		if err := mi.WriteAllSamples(); err != nil {
			logrus.Errorf("error writing metrics (%v)", err)
		}
	}
}
