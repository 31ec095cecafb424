package nmea

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"
)

// Field names a semantic value carried by a sentence.
type Field string

const (
	FieldTime             Field = "time"
	FieldDate             Field = "date"
	FieldLatitude         Field = "latitude"
	FieldLongitude        Field = "longitude"
	FieldFixQuality       Field = "fix_quality"
	FieldSatellites       Field = "satellites"
	FieldHDOP             Field = "hdop"
	FieldVDOP             Field = "vdop"
	FieldPDOP             Field = "pdop"
	FieldAltitudeM        Field = "altitude_m"
	FieldGeoidSepM        Field = "geoid_sep_m"
	FieldDGPSAgeS         Field = "dgps_age_s"
	FieldDGPSStation      Field = "dgps_station"
	FieldStatus           Field = "status"
	FieldMode             Field = "mode"
	FieldSpeedKnots       Field = "speed_knots"
	FieldSpeedKmh         Field = "speed_kmh"
	FieldCourseDeg        Field = "course_deg"
	FieldCourseMagDeg     Field = "course_mag_deg"
	FieldMagVarDeg        Field = "mag_var_deg"
	FieldSelectionMode    Field = "selection_mode"
	FieldFixMode          Field = "fix_mode"
	FieldSatellitesUsed   Field = "satellites_used"
	FieldTotalMessages    Field = "total_messages"
	FieldMessageNumber    Field = "message_number"
	FieldSatellitesInView Field = "satellites_in_view"
	FieldDay              Field = "day"
	FieldMonth            Field = "month"
	FieldYear             Field = "year"
	FieldTZHours          Field = "tz_hours"
	FieldTZMinutes        Field = "tz_minutes"
)

type Kind int

const (
	KindNumber Kind = iota
	KindEnum
	KindText
)

// Value is a decoded field. Numbers use Num; enums and text use Text, with
// enums holding the raw wire code (for example "A" or "1").
type Value struct {
	Kind Kind    `json:"kind"`
	Num  float64 `json:"num,omitempty"`
	Text string  `json:"text,omitempty"`
}

func Number(v float64) Value { return Value{Kind: KindNumber, Num: v} }
func Enum(code string) Value { return Value{Kind: KindEnum, Text: code} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }

// Record is the decoded form of one sentence. A field that was empty on the
// wire, or could not be parsed, is not in Fields.
type Record struct {
	Talker   string          `json:"talker"`
	Type     string          `json:"type"`
	Checksum ChecksumState   `json:"checksum"`
	Fields   map[Field]Value `json:"fields,omitempty"`
}

func (r Record) Has(f Field) bool {
	_, ok := r.Fields[f]
	return ok
}

func (r Record) Float(f Field) (float64, bool) {
	v, ok := r.Fields[f]
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

func (r Record) Text(f Field) (string, bool) {
	v, ok := r.Fields[f]
	if !ok || v.Kind == KindNumber {
		return "", false
	}
	return v.Text, true
}

func (r Record) Latitude() (float64, bool)  { return r.Float(FieldLatitude) }
func (r Record) Longitude() (float64, bool) { return r.Float(FieldLongitude) }

// Position returns the record's coordinates when both are present.
func (r Record) Position() (s2.LatLng, bool) {
	lat, latOK := r.Latitude()
	lon, lonOK := r.Longitude()
	if !latOK || !lonOK {
		return s2.LatLng{}, false
	}
	return s2.LatLngFromDegrees(lat, lon), true
}

// TimeOfDay parses the hhmmss[.sss] UTC time field.
func (r Record) TimeOfDay() (time.Duration, bool) {
	s, ok := r.Text(FieldTime)
	if !ok {
		return 0, false
	}
	return parseTimeOfDay(s)
}

func parseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, false
	}
	hh, err1 := strconv.Atoi(s[0:2])
	mm, err2 := strconv.Atoi(s[2:4])
	ss, err3 := strconv.ParseFloat(s[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	if hh > 23 || mm > 59 || ss < 0 || ss >= 61 {
		return 0, false
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	d += time.Duration(ss * float64(time.Second))
	return d, true
}
