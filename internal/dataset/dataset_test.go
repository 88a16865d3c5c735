package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParse_TwoSamples(t *testing.T) {
	samples := Parse("1700000000000,-0.50\n1700000003600,-0.30")
	require.Len(t, samples, 2)

	assert.Equal(t, int64(1700000000000), samples[0].Timestamp)
	assert.Equal(t, "0.5", samples[0].Magnitude.String())
	assert.Equal(t, "-0.5", samples[0].SignedValue.String())
	assert.Equal(t, int64(1700000003600), samples[1].Timestamp)
	assert.Equal(t, "0.3", samples[1].Magnitude.String())
}

func TestParse_DropsMalformedLines(t *testing.T) {
	content := "1700000000000,0.25\nabc,xyz\n1700000001000,-1.5"
	samples := Parse(content)
	require.Len(t, samples, 2)
	assert.Equal(t, int64(1700000000000), samples[0].Timestamp)
	assert.Equal(t, int64(1700000001000), samples[1].Timestamp)
}

func TestParse_LineRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"blank lines skipped", "\n   \n1,0.1\n\t\n", 1},
		{"single field dropped", "1700000000000", 0},
		{"bad timestamp dropped", "17e3,0.1", 0},
		{"bad change dropped", "1700000000000,volts", 0},
		{"extra fields ignored", "1700000000000,0.1,kWh,meter_001", 1},
		{"crlf endings", "1,0.1\r\n2,0.2\r\n", 2},
		{"whitespace around fields", " 1 , -0.4 ", 1},
		{"empty input", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Parse(tt.in), tt.want)
		})
	}
}

func TestParse_EmptyIsNotNil(t *testing.T) {
	samples := Parse("garbage only")
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}

func TestParse_MagnitudeIsAbsolute(t *testing.T) {
	samples := Parse("1,-2.75\n2,3.5")
	require.Len(t, samples, 2)
	assert.True(t, samples[0].Magnitude.IsPositive())
	assert.Equal(t, "2.75", samples[0].Magnitude.String())
	assert.Equal(t, "3.5", samples[1].Magnitude.String())
	assert.Equal(t, "3.5", samples[1].SignedValue.String())
}

func TestParse_DropsOutOfRangeExponents(t *testing.T) {
	content := "1700000000000,-0.50\n" +
		"1700000000001,1e120000000\n" +
		"1700000000002,1e-120000000\n" +
		"1700000000003,-2.5E20\n" +
		"1700000000004,1.5e3\n" +
		"1700000000005,0.000000000000000001"
	samples := Parse(content)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(1700000000000), samples[0].Timestamp)
	assert.Equal(t, int64(1700000000004), samples[1].Timestamp)
	assert.Equal(t, "1500", samples[1].Magnitude.String())
	assert.Equal(t, int64(1700000000005), samples[2].Timestamp)
}

func TestRead_SourceFailureIsUnreadable(t *testing.T) {
	_, err := Read(failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, []byte("1700000000000,-0.50\n1700000003600,-0.30\n"), 0600))

	samples, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrUnreadable)
}
