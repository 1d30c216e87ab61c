package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriterWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	writer := NewCSVWriter(&buf)

	require.NoError(t, writer.Write(TickRow{Tick: 1, Population: 20, Algae: 130, Nitrogen: 9850, Oxygen: 250, MeanAge: 1}))
	require.NoError(t, writer.Write(TickRow{Tick: 2, Population: 21, Algae: 170, Nitrogen: 9656, Oxygen: 444, Births: 1, MeanAge: 1.9}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "tick,population,algae,nitrogen,oxygen,births,deaths,mean_age,eligible", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,20,130,9850,250,0,0,"))
	assert.True(t, strings.HasPrefix(lines[2], "2,21,170,9656,444,1,0,"))
}

func TestOpenCSVDisabledWithoutPath(t *testing.T) {
	writer, err := OpenCSV("")
	require.NoError(t, err)
	assert.Nil(t, writer)
	assert.NoError(t, writer.Write(TickRow{Tick: 1}))
	assert.NoError(t, writer.Close())
}

func TestOpenCSVCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "ticks.csv")
	writer, err := OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, writer.Write(TickRow{Tick: 3, Population: 1}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick,population")
	assert.Contains(t, string(data), "3,1,")
}
