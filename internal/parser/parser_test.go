package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geun-Oh/accelx/internal/filter"
)

func TestDecodePayloadFiltersChannel(t *testing.T) {
	body := `{"payload":[
		{"name":"accelerometer","time":1000000000,"values":{"x":0.1,"y":0.2,"z":0.3}},
		{"name":"gyroscope","time":1000000001},
		{"name":"accelerometer","time":1.1e9,"values":{"x":-1,"y":0,"z":9.8}}
	]}`

	kept, ignored, err := DecodePayload([]byte(body), filter.Default())
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, 1, ignored)
	assert.Equal(t, int64(1_000_000_000), kept[0].Time)
	assert.Equal(t, 0.2, kept[0].Values.Y)
	assert.Equal(t, int64(1_100_000_000), kept[1].Time)
	assert.Equal(t, 9.8, kept[1].Values.Z)
}

func TestDecodePayloadEmpty(t *testing.T) {
	kept, ignored, err := DecodePayload([]byte(`{"payload":[]}`), filter.Default())
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Zero(t, ignored)
}

func TestDecodePayloadMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":        `{"payload":`,
		"missing payload": `{"data":[]}`,
		"payload type":    `{"payload":{}}`,
		"missing name":    `{"payload":[{"time":1}]}`,
		"missing time":    `{"payload":[{"name":"accelerometer","values":{"x":1,"y":1,"z":1}}]}`,
		"missing axis":    `{"payload":[{"name":"accelerometer","time":1,"values":{"x":1,"y":1}}]}`,
		"bad time":        `{"payload":[{"name":"accelerometer","time":"soon","values":{"x":1,"y":1,"z":1}}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodePayload([]byte(body), filter.Default())
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestReadDataset(t *testing.T) {
	csv := "timestamp,ax,ay,az\n0.0,0.1,0.2,0.3\n0.5, -1, 0, 9.81\n"
	got, err := ReadDataset(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.5, got[1].T)
	assert.Equal(t, 9.81, got[1].Z)
}

func TestReadDatasetReorderedColumns(t *testing.T) {
	csv := "az,note,timestamp,ay,ax\n3,hi,1,2,1.5\n"
	got, err := ReadDataset(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].T)
	assert.Equal(t, 1.5, got[0].X)
	assert.Equal(t, 3.0, got[0].Z)
}

func TestReadDatasetErrors(t *testing.T) {
	for name, body := range map[string]string{
		"empty":          "",
		"missing column": "timestamp,ax,ay\n1,2,3\n",
		"non numeric":    "timestamp,ax,ay,az\n1,x,3,4\n",
		"short row":      "timestamp,ax,ay,az\n1,2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
