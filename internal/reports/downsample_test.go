package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/brutlag/internal/downsampling"
)

func TestReport_Downsample(t *testing.T) {
	r := newTestReport(t, "sales")

	thin, err := r.Downsample(downsampling.ModeLTTB, 3)
	require.NoError(t, err)

	indices := make([]int, len(thin.Points))
	for i, p := range thin.Points {
		indices[i] = p.Index
	}
	assert.Contains(t, indices, 0)
	assert.Contains(t, indices, 5, "anomalies survive downsampling")
	assert.Contains(t, indices, 6, "anomalies survive downsampling")
	assert.Contains(t, indices, 7)
	assert.Less(t, len(thin.Points), len(r.Points))

	assert.Len(t, r.Points, 8, "the original report is untouched")
	assert.Equal(t, r.Summary, thin.Summary)
	assert.Equal(t, r.Anomalies, thin.Anomalies)
}

func TestReport_DownsampleNone(t *testing.T) {
	r := newTestReport(t, "sales")

	thin, err := r.Downsample(downsampling.ModeNone, 2)
	require.NoError(t, err)
	assert.Equal(t, r.Points, thin.Points)
}
