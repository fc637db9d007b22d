// Package sampletime implements sample-rate-quantised monotonic
// timestamps: an unsigned integer count of sample periods since the
// Unix epoch, exact under integer arithmetic and free of the float
// drift a duration-based clock would introduce.
package sampletime

// Time is a timestamp expressed as a whole number of sample periods
// since the Unix epoch (1970-01-01 00:00:00 UTC), only meaningful
// alongside a known sample rate. The zero value is the epoch itself.
//
// Unix time excludes leap seconds, so a timestamp such as
// 2016-12-31 23:59:60 cannot be represented; this type makes the same
// assumption and does not attempt to compensate for a system clock that
// does include them.
type Time uint64

// FromSecondsAndSamples builds a Time from a whole number of seconds
// since the epoch plus a sub-second sample count, at the given rate.
func FromSecondsAndSamples(seconds uint64, samples uint32, rate uint32) Time {
	return Time(seconds*uint64(rate) + uint64(samples))
}

// Seconds returns the whole number of seconds since the epoch.
func (t Time) Seconds(rate uint32) uint64 {
	return uint64(t) / uint64(rate)
}

// SubsecSamples returns the sub-second portion of t, in sample periods.
func (t Time) SubsecSamples(rate uint32) uint32 {
	return uint32(uint64(t) % uint64(rate))
}

// AddSamples returns t advanced by n sample periods.
func (t Time) AddSamples(n uint32) Time {
	return t + Time(n)
}

// SecondsFloat returns t as seconds since the epoch, including the
// fractional part, as a float64. Used only where a wall-clock deadline
// must be compared against time.Now() (the dispatch scheduler); the
// queue and buffer invariants never depend on this representation.
func (t Time) SecondsFloat(rate uint32) float64 {
	return float64(t) / float64(rate)
}

// DateTime is a calendar rendering of a Time: proleptic Gregorian date
// plus time-of-day, used only by the OpenPMU encoder.
type DateTime struct {
	Year, Month, Day          uint32
	Hour, Minute, Second      uint32
	Microsecond               uint32
}

// ToDateTime converts t into a Gregorian calendar date and time, at the
// given sample rate. The algorithm (day-number arithmetic from the
// proleptic Gregorian calendar) follows Reingold & Dershowitz,
// "Calendrical Calculations".
func (t Time) ToDateTime(rate uint32) DateTime {
	secsPerDay := uint64(86400) * uint64(rate)
	date := uint64(t)/secsPerDay + fixedFromGregorian(1970, 1, 1)

	d0 := date - 1
	n400 := d0 / 146097
	d1 := d0 % 146097
	n100 := d1 / 36524
	d2 := d1 % 36524
	n4 := d2 / 1461
	d3 := d2 % 1461
	n1 := d3 / 365

	year := 400*n400 + 100*n100 + 4*n4 + n1
	if !(n100 == 4 || n4 == 4) {
		year++
	}

	priorDays := date - fixedFromGregorian(year, 1, 1)
	var correction uint64
	if date < fixedFromGregorian(year, 3, 1) {
		correction = 0
	} else if isGregorianLeapYear(year) {
		correction = 1
	} else {
		correction = 2
	}

	month := (12*(priorDays+correction) + 373) / 367
	day := date - fixedFromGregorian(year, month, 1) + 1

	timeOfDay := uint32(uint64(t) % secsPerDay / uint64(rate))
	hours := timeOfDay / 3600
	minutes := timeOfDay % 3600 / 60
	seconds := timeOfDay % 60

	microseconds := uint32(float64(uint64(t)%uint64(rate)) / float64(rate) * 1_000_000.0)

	return DateTime{
		Year: uint32(year), Month: uint32(month), Day: uint32(day),
		Hour: hours, Minute: minutes, Second: seconds,
		Microsecond: microseconds,
	}
}

func isGregorianLeapYear(year uint64) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// fixedFromGregorian converts a Gregorian calendar date to its fixed day
// number in the proleptic Gregorian calendar, where 0001-01-01 is day 1.
func fixedFromGregorian(year, month, day uint64) uint64 {
	n := 365*(year-1) +
		(year-1)/4 -
		(year-1)/100 +
		(year-1)/400 +
		(367*month-362)/12 +
		day
	if month > 2 {
		if isGregorianLeapYear(year) {
			n--
		} else {
			n -= 2
		}
	}
	return n
}
