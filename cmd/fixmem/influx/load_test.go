package influx

import (
	"github.com/openziti/fixmem"
	"github.com/openziti/fixmem/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiscoverInstances(t *testing.T) {
	root, err := ioutil.TempDir("", "fixmem-influx")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	mine := filepath.Join(root, "pool_1")
	require.NoError(t, os.MkdirAll(mine, os.ModePerm))
	require.NoError(t, util.WriteMetricsId(fixmem.MetricsId, mine, map[string]string{"instance": "pool"}))
	other := filepath.Join(root, "other")
	require.NoError(t, os.MkdirAll(other, os.ModePerm))
	require.NoError(t, util.WriteMetricsId("otherTool", other, nil))

	ts := time.Unix(1600000000, 0)
	for _, dataset := range datasets {
		require.NoError(t, util.WriteSamples(dataset, mine, []*util.Sample{{Ts: ts, V: 1}, {Ts: ts.Add(time.Second), V: 2}}))
	}

	instances, err := discoverInstances(root)
	require.NoError(t, err)
	require.Equal(t, 1, len(instances))
	assert.Equal(t, "pool", instances[0].id)
	assert.Equal(t, mine, instances[0].path)

	latest, err := findLatestTimestamp(instances)
	assert.NoError(t, err)
	assert.True(t, latest.Equal(ts.Add(time.Second)))
}
