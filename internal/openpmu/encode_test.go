package openpmu

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampleq"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampletime"
)

func decodePayload(t *testing.T, doc, tag string) []int16 {
	t.Helper()
	start := strings.Index(doc, "<"+tag+">") + len(tag) + 2
	end := strings.Index(doc, "</"+tag+">")
	require.Greater(t, end, start)
	raw, err := base64.StdEncoding.DecodeString(doc[start:end])
	require.NoError(t, err)
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(raw[i*2])<<8 | int16(raw[i*2+1])
	}
	return out
}

func TestEncode_FieldOrderAndHeader(t *testing.T) {
	buf := sampleq.NewBuffer(4000, sampletime.FromSecondsAndSamples(1_700_000_000, 0, 4000), 40)
	doc := Encode(buf, DefaultChannels(""))

	assert.True(t, strings.HasPrefix(doc, "<OpenPMU>\n"))
	assert.Contains(t, doc, "<Format>Samples</Format>\n")
	assert.Contains(t, doc, "<Fs>4000</Fs>\n")
	assert.Contains(t, doc, "<n>40</n>\n")
	assert.Contains(t, doc, "<bits>16</bits>\n")
	assert.Contains(t, doc, "<Channels>6</Channels>\n")
	assert.True(t, strings.HasSuffix(doc, "</OpenPMU>\n"))

	// Field order: Format before Date before Time before Frame before Fs.
	assert.Less(t, strings.Index(doc, "<Format>"), strings.Index(doc, "<Date>"))
	assert.Less(t, strings.Index(doc, "<Date>"), strings.Index(doc, "<Time>"))
	assert.Less(t, strings.Index(doc, "<Time>"), strings.Index(doc, "<Frame>"))
	assert.Less(t, strings.Index(doc, "<Frame>"), strings.Index(doc, "<Fs>"))
}

func TestEncode_ZeroMaxProducesAllZeroPayload(t *testing.T) {
	buf := sampleq.NewBuffer(4000, sampletime.FromSecondsAndSamples(0, 0, 4000), 4)
	doc := Encode(buf, DefaultChannels(""))
	samples := decodePayload(t, doc, "Payload")
	for _, s := range samples {
		assert.Equal(t, int16(0), s)
	}
}

func TestEncode_PayloadScaledByChannelMax(t *testing.T) {
	buf := sampleq.NewBuffer(4000, sampletime.FromSecondsAndSamples(0, 0, 4000), 4)
	buf.Channels[4].Buffer = []float32{10, -20, 20, 5} // voltage A, Max tracked separately below
	buf.Channels[4].Max = 20

	doc := Encode(buf, []ChannelSpec{{Name: "Va", Type: "V", Phase: "a", Source: 4}})
	samples := decodePayload(t, doc, "Payload")
	require.Len(t, samples, 4)
	assert.Equal(t, int16(16383), samples[0]) // 10/20*32767 = 16383.5, truncated toward zero
	assert.Equal(t, int16(-20.0/20.0*32767), samples[1])
}
