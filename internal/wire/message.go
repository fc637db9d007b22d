// Package wire decodes IEC 61850-9-2 Sampled Values Ethernet payloads
// into SvMessage values: the APPID/length framing header, the savPdu
// application tag, and the sequence of ASDUs it carries.
package wire

import (
	"encoding/binary"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/ber"
)

// Sample holds the eight channel readings carried by one ASDU: phase
// currents A/B/C/N and phase voltages A/B/C/N, in amperes and volts.
type Sample struct {
	CurrentA, CurrentB, CurrentC, CurrentN float32
	VoltageA, VoltageB, VoltageC, VoltageN float32
}

const (
	currentScale = 0.001
	voltageScale = 0.01
)

func readSample(r *ber.Reader, enc ber.Encoding) (Sample, error) {
	content, err := ber.ReadOctetString(r, enc)
	if err != nil {
		return Sample{}, err
	}
	if len(content) != 64 {
		return Sample{}, &ber.DecodeError{Kind: ber.KindInvalidIntegerEncoding}
	}

	raw := func(slot int) float64 {
		v := int32(binary.BigEndian.Uint32(content[slot*8 : slot*8+4]))
		return float64(v)
	}

	return Sample{
		CurrentA: float32(raw(0) * currentScale),
		CurrentB: float32(raw(1) * currentScale),
		CurrentC: float32(raw(2) * currentScale),
		CurrentN: float32(raw(3) * currentScale),
		VoltageA: float32(raw(4) * voltageScale),
		VoltageB: float32(raw(5) * voltageScale),
		VoltageC: float32(raw(6) * voltageScale),
		VoltageN: float32(raw(7) * voltageScale),
	}, nil
}

// Asdu is one Application Service Data Unit decoded from a savPdu.
type Asdu struct {
	Svid     string
	Datset   string
	HasDatset bool
	SmpCnt   uint16
	ConfRev  uint32
	RefrTm   uint64
	HasRefrTm bool
	SmpSynch uint8
	SmpRate  uint16
	HasSmpRate bool
	Sample   Sample
	SmpMod   uint16
	HasSmpMod bool
}

// SvMessage is a complete decoded SV Ethernet payload.
type SvMessage struct {
	Appid uint16
	Asdus []Asdu
}

func contextTag(n uint32) ber.Tag {
	return ber.Tag{Class: ber.ClassContextSpecific, Number: n}
}

func readIEC61850Uint8(r *ber.Reader, enc ber.Encoding) (uint8, error) {
	b, err := ber.ReadOctetString(r, enc)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, &ber.DecodeError{Kind: ber.KindInvalidIntegerEncoding}
	}
	return b[0], nil
}

func readIEC61850Uint16(r *ber.Reader, enc ber.Encoding) (uint16, error) {
	b, err := ber.ReadOctetString(r, enc)
	if err != nil {
		return 0, err
	}
	if len(b) != 2 {
		return 0, &ber.DecodeError{Kind: ber.KindInvalidIntegerEncoding}
	}
	return binary.BigEndian.Uint16(b), nil
}

func readIEC61850Uint32(r *ber.Reader, enc ber.Encoding) (uint32, error) {
	b, err := ber.ReadOctetString(r, enc)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, &ber.DecodeError{Kind: ber.KindInvalidIntegerEncoding}
	}
	return binary.BigEndian.Uint32(b), nil
}

func readIEC61850UtcTime(r *ber.Reader, enc ber.Encoding) (uint64, error) {
	b, err := ber.ReadOctetString(r, enc)
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, &ber.DecodeError{Kind: ber.KindInvalidIntegerEncoding}
	}
	return binary.BigEndian.Uint64(b), nil
}

// readAsdu decodes one ASDU. Context-specific tags 0..8 must appear in
// strict ascending order; tag 9 (gmIdentity) is intentionally left
// unparsed (see DESIGN.md) and any trailing bytes within the ASDU's
// bounded sub-reader are simply never read.
func readAsdu(r *ber.Reader) (Asdu, error) {
	var a Asdu

	enc, err := ber.ReadRequiredIdentifier(r, contextTag(0))
	if err != nil {
		return Asdu{}, err
	}
	if a.Svid, err = ber.ReadVisibleString(r, enc); err != nil {
		return Asdu{}, err
	}

	if e, present, err := ber.ReadOptionalIdentifier(r, contextTag(1)); err != nil {
		return Asdu{}, err
	} else if present {
		if a.Datset, err = ber.ReadVisibleString(r, e); err != nil {
			return Asdu{}, err
		}
		a.HasDatset = true
	}

	if enc, err = ber.ReadRequiredIdentifier(r, contextTag(2)); err != nil {
		return Asdu{}, err
	}
	if a.SmpCnt, err = readIEC61850Uint16(r, enc); err != nil {
		return Asdu{}, err
	}

	if enc, err = ber.ReadRequiredIdentifier(r, contextTag(3)); err != nil {
		return Asdu{}, err
	}
	if a.ConfRev, err = readIEC61850Uint32(r, enc); err != nil {
		return Asdu{}, err
	}

	if e, present, err := ber.ReadOptionalIdentifier(r, contextTag(4)); err != nil {
		return Asdu{}, err
	} else if present {
		if a.RefrTm, err = readIEC61850UtcTime(r, e); err != nil {
			return Asdu{}, err
		}
		a.HasRefrTm = true
	}

	if enc, err = ber.ReadRequiredIdentifier(r, contextTag(5)); err != nil {
		return Asdu{}, err
	}
	if a.SmpSynch, err = readIEC61850Uint8(r, enc); err != nil {
		return Asdu{}, err
	}

	if e, present, err := ber.ReadOptionalIdentifier(r, contextTag(6)); err != nil {
		return Asdu{}, err
	} else if present {
		if a.SmpRate, err = readIEC61850Uint16(r, e); err != nil {
			return Asdu{}, err
		}
		a.HasSmpRate = true
	}

	if enc, err = ber.ReadRequiredIdentifier(r, contextTag(7)); err != nil {
		return Asdu{}, err
	}
	if a.Sample, err = readSample(r, enc); err != nil {
		return Asdu{}, err
	}

	if e, present, err := ber.ReadOptionalIdentifier(r, contextTag(8)); err != nil {
		return Asdu{}, err
	} else if present {
		if a.SmpMod, err = readIEC61850Uint16(r, e); err != nil {
			return Asdu{}, err
		}
		a.HasSmpMod = true
	}

	return a, nil
}

func readSavPdu(r *ber.Reader) ([]Asdu, error) {
	enc, err := ber.ReadRequiredIdentifier(r, contextTag(0))
	if err != nil {
		return nil, err
	}
	noAsdu, err := ber.ReadIntegerAsU16(r, enc)
	if err != nil {
		return nil, err
	}
	if noAsdu == 0 {
		return nil, &ber.DecodeError{Kind: ber.KindTagOutOfRange}
	}

	if _, present, err := ber.ReadOptionalIdentifier(r, contextTag(1)); err != nil {
		return nil, err
	} else if present {
		length, err := ber.ReadLength(r)
		if err != nil {
			return nil, err
		}
		if err := r.Skip(length); err != nil {
			return nil, err
		}
	}

	if _, err := ber.ReadRequiredIdentifier(r, contextTag(2)); err != nil {
		return nil, err
	}
	length, err := ber.ReadLength(r)
	if err != nil {
		return nil, err
	}
	inner, err := r.TakeSubReader(length)
	if err != nil {
		return nil, err
	}

	asdus := make([]Asdu, 0, noAsdu)
	for i := uint16(0); i < noAsdu; i++ {
		if _, err := ber.ReadRequiredIdentifier(&inner, ber.Tag{Class: ber.ClassUniversal, Number: 16}); err != nil {
			return nil, err
		}
		asduLen, err := ber.ReadLength(&inner)
		if err != nil {
			return nil, err
		}
		sub, err := inner.TakeSubReader(asduLen)
		if err != nil {
			return nil, err
		}
		a, err := readAsdu(&sub)
		if err != nil {
			return nil, err
		}
		asdus = append(asdus, a)
	}

	return asdus, nil
}

// Parse decodes a complete SV Ethernet payload (after the capture layer
// has already stripped the Ethernet and VLAN headers). Parse is total:
// every malformed input returns a non-nil error, never a panic.
func Parse(payload []byte) (SvMessage, error) {
	r := ber.NewReader(payload)

	appid, err := r.ReadU16BE()
	if err != nil {
		return SvMessage{}, err
	}
	length, err := r.ReadU16BE()
	if err != nil {
		return SvMessage{}, err
	}
	if _, err := r.ReadU16BE(); err != nil { // reserved 1
		return SvMessage{}, err
	}
	if _, err := r.ReadU16BE(); err != nil { // reserved 2
		return SvMessage{}, err
	}

	if length < 8 {
		return SvMessage{}, &ber.DecodeError{Kind: ber.KindLengthOutOfRange}
	}
	if err := r.Limit(int(length) - 8); err != nil {
		return SvMessage{}, err
	}

	if _, err := ber.ReadRequiredIdentifier(&r, ber.Tag{Class: ber.ClassApplication, Number: 0}); err != nil {
		return SvMessage{}, err
	}
	pduLen, err := ber.ReadLength(&r)
	if err != nil {
		return SvMessage{}, err
	}
	if err := r.Limit(pduLen); err != nil {
		return SvMessage{}, err
	}

	asdus, err := readSavPdu(&r)
	if err != nil {
		return SvMessage{}, err
	}

	return SvMessage{Appid: appid, Asdus: asdus}, nil
}
