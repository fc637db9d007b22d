// Package openpmu renders a finished sample window as an OpenPMU
// XML+Base64 datagram: a fixed field order, deterministic formatting,
// and no locale dependence.
package openpmu

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampleq"
)

// ChannelSpec describes one of the six channels the encoder emits, and
// which of the buffer's eight internal channels it draws from.
type ChannelSpec struct {
	Name, Type, Phase string
	Source            int
}

// DefaultChannels is the channel mapping used when a deployment does not
// configure its own (site-labelled) channel list: voltages A, B, C then
// currents A, B, C, each sourced from the Buffer.Channels slot of the
// same name.
func DefaultChannels(siteLabel string) []ChannelSpec {
	return []ChannelSpec{
		{siteLabel + "Va", "V", "a", 4},
		{siteLabel + "Vb", "V", "b", 5},
		{siteLabel + "Vc", "V", "c", 6},
		{siteLabel + "Ia", "I", "a", 0},
		{siteLabel + "Ib", "I", "b", 1},
		{siteLabel + "Ic", "I", "c", 2},
	}
}

// Encode renders buf as an OpenPMU XML document using the given channel
// mapping (see DefaultChannels). channels must have exactly 6 entries,
// matching the fixed `<Channels>6</Channels>` field.
func Encode(buf *sampleq.Buffer, channels []ChannelSpec) string {
	frame := buf.StartTime.SubsecSamples(buf.SampleRate) / buf.Length
	dt := buf.StartTime.ToDateTime(buf.SampleRate)

	var b strings.Builder
	b.WriteString("<OpenPMU>\n")
	b.WriteString("\t<Format>Samples</Format>\n")
	fmt.Fprintf(&b, "\t<Date>%04d-%02d-%02d</Date>\n", dt.Year, dt.Month, dt.Day)
	fmt.Fprintf(&b, "\t<Time>%02d:%02d:%02d.%06d</Time>\n", dt.Hour, dt.Minute, dt.Second, dt.Microsecond)
	fmt.Fprintf(&b, "\t<Frame>%d</Frame>\n", frame)
	fmt.Fprintf(&b, "\t<Fs>%d</Fs>\n", buf.SampleRate)
	fmt.Fprintf(&b, "\t<n>%d</n>\n", buf.Length)
	b.WriteString("\t<bits>16</bits>\n")
	b.WriteString("\t<Channels>6</Channels>\n")

	for i, spec := range channels {
		writeChannel(&b, i, spec, &buf.Channels[spec.Source])
	}

	b.WriteString("</OpenPMU>\n")
	return b.String()
}

func writeChannel(b *strings.Builder, index int, spec ChannelSpec, ch *sampleq.Channel) {
	fmt.Fprintf(b, "\t<Channel_%d>\n", index)
	fmt.Fprintf(b, "\t\t<Name>%s</Name>\n", spec.Name)
	fmt.Fprintf(b, "\t\t<Type>%s</Type>\n", spec.Type)
	fmt.Fprintf(b, "\t\t<Phase>%s</Phase>\n", spec.Phase)
	fmt.Fprintf(b, "\t\t<Range>%s</Range>\n", formatFloat(ch.Max))

	payload := make([]byte, len(ch.Buffer)*2)
	if ch.Max != 0 {
		for i, v := range ch.Buffer {
			converted := int16(v / ch.Max * 32767.0)
			payload[i*2] = byte(converted >> 8)
			payload[i*2+1] = byte(converted)
		}
	}

	fmt.Fprintf(b, "\t\t<Payload>%s</Payload>\n", base64.StdEncoding.EncodeToString(payload))
	fmt.Fprintf(b, "\t</Channel_%d>\n", index)
}

// formatFloat mirrors Rust's default f32 Display formatting closely
// enough for this deterministic, locale-free text field: the shortest
// decimal representation that round-trips.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
