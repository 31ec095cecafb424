package nmea

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// ErrTruncated matches every *TruncatedError.
var ErrTruncated = errors.New("nmea: truncated sentence")

// TruncatedError reports a recognized sentence type that carries fewer
// fields than its layout needs.
type TruncatedError struct {
	Type string
	Got  int
	Want int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("nmea: truncated %s sentence: %d fields, want at least %d", e.Type, e.Got, e.Want)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

type decodeFunc func(f []string, out map[Field]Value)

type layout struct {
	// minFields counts the address field too.
	minFields int
	decode    decodeFunc
}

var layouts = map[string]layout{
	"GGA": {minFields: 11, decode: decodeGGA},
	"RMC": {minFields: 10, decode: decodeRMC},
	"GLL": {minFields: 7, decode: decodeGLL},
	"VTG": {minFields: 9, decode: decodeVTG},
	"GSA": {minFields: 18, decode: decodeGSA},
	"GSV": {minFields: 4, decode: decodeGSV},
	"ZDA": {minFields: 5, decode: decodeZDA},
}

// Recognized reports whether Decode maps fields for the sentence type.
func Recognized(sentenceType string) bool {
	_, ok := layouts[sentenceType]
	return ok
}

// Decode parses a validated sentence. Unknown sentence types decode to a
// Record without fields and a nil error; only a recognized type with too
// few fields is an error.
func Decode(s Sentence) (Record, error) {
	payload, _, _ := splitChecksum(s)
	parts := strings.Split(payload, ",")

	talker, typ := SplitAddress(parts[0])
	rec := Record{Talker: talker, Type: typ, Checksum: verifyChecksum(s)}

	l, ok := layouts[typ]
	if !ok || talker == "P" {
		return rec, nil
	}
	if len(parts) < l.minFields {
		return rec, &TruncatedError{Type: typ, Got: len(parts), Want: l.minFields}
	}
	fields := make(map[Field]Value)
	l.decode(parts, fields)
	if len(fields) > 0 {
		rec.Fields = fields
	}
	return rec, nil
}

// Address returns the talker and type of the sentence's address field.
func (s Sentence) Address() (talker, typ string) {
	payload, _, _ := splitChecksum(s)
	if i := strings.IndexByte(payload, ','); i != -1 {
		payload = payload[:i]
	}
	return SplitAddress(payload)
}

// SplitAddress separates "GPGGA" into talker "GP" and type "GGA".
// Proprietary sentences ("PUBX", "PMTK001") use talker "P".
func SplitAddress(addr string) (talker, typ string) {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	if strings.HasPrefix(addr, "P") {
		return "P", addr[1:]
	}
	if len(addr) < 3 {
		return "", addr
	}
	return addr[:2], addr[2:]
}

// GGA: Global Positioning System Fix Data
//
//	1: time  2,3: latitude  4,5: longitude  6: fix quality
//	7: satellites  8: HDOP  9,10: altitude (M)  11,12: geoid separation (M)
//	13: DGPS age  14: DGPS station
func decodeGGA(f []string, out map[Field]Value) {
	putText(out, FieldTime, f[1])
	putLatLon(out, f[2], f[3], f[4], f[5])
	putEnum(out, FieldFixQuality, f[6])
	putNumber(out, FieldSatellites, f[7])
	putNumber(out, FieldHDOP, f[8])
	putNumber(out, FieldAltitudeM, f[9])
	if len(f) > 11 {
		putNumber(out, FieldGeoidSepM, f[11])
	}
	if len(f) > 13 {
		putNumber(out, FieldDGPSAgeS, f[13])
	}
	if len(f) > 14 {
		putText(out, FieldDGPSStation, f[14])
	}
}

// RMC: Recommended Minimum Specific GNSS Data
//
//	1: time  2: status (A/V)  3,4: latitude  5,6: longitude
//	7: speed (knots)  8: course  9: date (ddmmyy)  10,11: magnetic variation
//	12: mode indicator (NMEA 2.3+)
func decodeRMC(f []string, out map[Field]Value) {
	putText(out, FieldTime, f[1])
	putEnum(out, FieldStatus, f[2])
	putLatLon(out, f[3], f[4], f[5], f[6])
	putNumber(out, FieldSpeedKnots, f[7])
	putNumber(out, FieldCourseDeg, f[8])
	putText(out, FieldDate, f[9])
	if len(f) > 11 {
		if v, ok := parseFloat(f[10]); ok {
			switch strings.ToUpper(strings.TrimSpace(f[11])) {
			case "E":
				out[FieldMagVarDeg] = Number(v)
			case "W":
				out[FieldMagVarDeg] = Number(-v)
			}
		}
	}
	if len(f) > 12 {
		putEnum(out, FieldMode, f[12])
	}
}

// GLL: Geographic Position
//
//	1,2: latitude  3,4: longitude  5: time  6: status  7: mode
func decodeGLL(f []string, out map[Field]Value) {
	putLatLon(out, f[1], f[2], f[3], f[4])
	putText(out, FieldTime, f[5])
	putEnum(out, FieldStatus, f[6])
	if len(f) > 7 {
		putEnum(out, FieldMode, f[7])
	}
}

// VTG: Track Made Good and Ground Speed
//
//	1,2: course true (T)  3,4: course magnetic (M)
//	5,6: speed (N)  7,8: speed (K)  9: mode
func decodeVTG(f []string, out map[Field]Value) {
	putNumber(out, FieldCourseDeg, f[1])
	putNumber(out, FieldCourseMagDeg, f[3])
	putNumber(out, FieldSpeedKnots, f[5])
	putNumber(out, FieldSpeedKmh, f[7])
	if len(f) > 9 {
		putEnum(out, FieldMode, f[9])
	}
}

// GSA: DOP and Active Satellites
//
//	1: selection mode (M/A)  2: fix mode (1/2/3)  3..14: PRNs
//	15: PDOP  16: HDOP  17: VDOP
func decodeGSA(f []string, out map[Field]Value) {
	putEnum(out, FieldSelectionMode, f[1])
	putEnum(out, FieldFixMode, f[2])
	prns := make([]string, 0, 12)
	for _, p := range f[3:15] {
		if p = strings.TrimSpace(p); p != "" {
			prns = append(prns, p)
		}
	}
	if len(prns) > 0 {
		out[FieldSatellitesUsed] = Text(strings.Join(prns, " "))
	}
	putNumber(out, FieldPDOP, f[15])
	putNumber(out, FieldHDOP, f[16])
	putNumber(out, FieldVDOP, f[17])
}

// GSV: Satellites in View (only the header is decoded)
//
//	1: total messages  2: message number  3: satellites in view
func decodeGSV(f []string, out map[Field]Value) {
	putNumber(out, FieldTotalMessages, f[1])
	putNumber(out, FieldMessageNumber, f[2])
	putNumber(out, FieldSatellitesInView, f[3])
}

// ZDA: Time and Date
//
//	1: time  2: day  3: month  4: year  5: local zone hours  6: minutes
func decodeZDA(f []string, out map[Field]Value) {
	putText(out, FieldTime, f[1])
	putNumber(out, FieldDay, f[2])
	putNumber(out, FieldMonth, f[3])
	putNumber(out, FieldYear, f[4])
	if len(f) > 5 {
		putNumber(out, FieldTZHours, f[5])
	}
	if len(f) > 6 {
		putNumber(out, FieldTZMinutes, f[6])
	}
}

func putNumber(out map[Field]Value, name Field, raw string) {
	if v, ok := parseFloat(raw); ok {
		out[name] = Number(v)
	}
}

func putEnum(out map[Field]Value, name Field, raw string) {
	if raw = strings.ToUpper(strings.TrimSpace(raw)); raw != "" {
		out[name] = Enum(raw)
	}
}

func putText(out map[Field]Value, name Field, raw string) {
	if raw = strings.TrimSpace(raw); raw != "" {
		out[name] = Text(raw)
	}
}

// putLatLon stores each coordinate independently; a malformed one is left
// out rather than replaced by a placeholder.
func putLatLon(out map[Field]Value, lat, latHemi, lon, lonHemi string) {
	if v, ok := parseLatLon(lat, latHemi, "N", "S"); ok && s2.LatLngFromDegrees(v, 0).IsValid() {
		out[FieldLatitude] = Number(v)
	}
	if v, ok := parseLatLon(lon, lonHemi, "E", "W"); ok && s2.LatLngFromDegrees(0, v).IsValid() {
		out[FieldLongitude] = Number(v)
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseLatLon parses ddmm.mmmm (latitude) or dddmm.mmmm (longitude) plus a
// hemisphere letter. The last two integer digits are the whole minutes.
func parseLatLon(v, hemi, pos, neg string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.TrimSpace(strings.ToUpper(hemi))
	if v == "" || (hemi != pos && hemi != neg) {
		return 0, false
	}

	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 || !allDigits(intPart) || (dot != -1 && !allDigits(v[dot+1:])) {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil || deg < 0 {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	if hemi == neg {
		dec = -dec
	}
	return dec, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
