package influx

import (
	"fmt"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/openziti/fixmem"
	"github.com/openziti/fixmem/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"path/filepath"
	"time"
)

func init() {
	influxLoadCmd.Flags().BoolVarP(&retime, "retime", "r", false, "Shift timestamps so the latest sample lands at the current time")
	influxCmd.AddCommand(influxLoadCmd)
}

var influxLoadCmd = &cobra.Command{
	Use:   "load <metricsRoot>",
	Short: "Load metrics instrument samples into InfluxDB",
	Args:  cobra.ExactArgs(1),
	Run:   influxLoad,
}
var retime bool

func influxLoad(_ *cobra.Command, args []string) {
	instances, err := discoverInstances(args[0])
	if err != nil {
		logrus.Fatalf("error discovering metrics (%v)", err)
	}
	logrus.Infof("found [%d] instrument instances", len(instances))

	offset := time.Duration(0)
	if retime {
		latest, err := findLatestTimestamp(instances)
		if err != nil {
			logrus.Fatalf("error scanning timestamps (%v)", err)
		}
		if !latest.IsZero() {
			offset = time.Since(latest)
		}
		logrus.Infof("retiming by [%s]", offset)
	}

	authToken := ""
	if influxDbUsername != "" || influxDbPassword != "" {
		authToken = fmt.Sprintf("%s:%s", influxDbUsername, influxDbPassword)
	}
	client := influxdb2.NewClient(influxDbUrl, authToken)
	defer client.Close()
	writeApi := client.WriteAPI("", influxDbDatabase)

	for _, instance := range instances {
		for _, dataset := range datasets {
			data, err := util.ReadSamples(filepath.Join(instance.path, dataset+".csv"))
			if err != nil {
				logrus.Fatalf("error reading dataset [%s] for [%s] (%v)", dataset, instance.id, err)
			}
			for ts, v := range data {
				t := time.Unix(0, ts).Add(offset)
				p := influxdb2.NewPoint(dataset, nil, map[string]interface{}{"v": v}, t).AddTag("type", fixmem.MetricsId).AddTag("instance", instance.id)
				writeApi.WritePoint(p)
			}
			logrus.Infof("wrote [%d] points for instance [%s] dataset [%s]", len(data), instance.id, dataset)
		}
	}
	writeApi.Flush()
}

type instance struct {
	id   string
	path string
}

func discoverInstances(root string) ([]*instance, error) {
	metricsMap, err := util.DiscoverMetrics(root)
	if err != nil {
		return nil, errors.Wrapf(err, "error walking [%s]", root)
	}
	var instances []*instance
	for path, metricsId := range metricsMap {
		if metricsId.Id != fixmem.MetricsId {
			continue
		}
		id := metricsId.Values["instance"]
		if id == "" {
			id = filepath.Base(path)
		}
		instances = append(instances, &instance{id: id, path: path})
	}
	return instances, nil
}

func findLatestTimestamp(instances []*instance) (time.Time, error) {
	latest := time.Time{}
	for _, instance := range instances {
		for _, dataset := range datasets {
			data, err := util.ReadSamples(filepath.Join(instance.path, dataset+".csv"))
			if err != nil {
				return time.Time{}, errors.Wrapf(err, "error reading dataset [%s]", dataset)
			}
			for ts := range data {
				if t := time.Unix(0, ts); t.After(latest) {
					latest = t
				}
			}
		}
	}
	return latest, nil
}

var datasets = []string{
	"allocs",
	"reuses",
	"frees",
	"exhausted",
	"puts",
	"put_bytes",
	"wraps",
	"rejects",
	"purges",
	"errors",
}
