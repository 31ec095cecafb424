package nmea

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const ggaMunich = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

func mustDecode(t *testing.T, s Sentence) Record {
	t.Helper()
	rec, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode(%q): %v", s, err)
	}
	return rec
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func TestDecode_GGAPosition(t *testing.T) {
	rec := mustDecode(t, ggaMunich)
	if rec.Talker != "GP" || rec.Type != "GGA" {
		t.Fatalf("talker=%q type=%q want GP GGA", rec.Talker, rec.Type)
	}
	if rec.Checksum != ChecksumValid {
		t.Fatalf("checksum=%v want valid", rec.Checksum)
	}
	lat, ok := rec.Latitude()
	if !ok || !approx(lat, 48.1173) {
		t.Fatalf("lat=%v ok=%v want 48.1173", lat, ok)
	}
	lon, ok := rec.Longitude()
	if !ok || !approx(lon, 11.5167) {
		t.Fatalf("lon=%v ok=%v want 11.5167", lon, ok)
	}
	if q, _ := rec.Text(FieldFixQuality); q != "1" {
		t.Fatalf("fix_quality=%q want 1", q)
	}
	if n, _ := rec.Float(FieldSatellites); n != 8 {
		t.Fatalf("satellites=%v want 8", n)
	}
	if h, _ := rec.Float(FieldHDOP); !approx(h, 0.9) {
		t.Fatalf("hdop=%v want 0.9", h)
	}
	if a, _ := rec.Float(FieldAltitudeM); !approx(a, 545.4) {
		t.Fatalf("altitude=%v want 545.4", a)
	}
	if g, _ := rec.Float(FieldGeoidSepM); !approx(g, 46.9) {
		t.Fatalf("geoid=%v want 46.9", g)
	}
	if rec.Has(FieldDGPSAgeS) || rec.Has(FieldDGPSStation) {
		t.Fatalf("empty dgps fields must be absent: %+v", rec.Fields)
	}
	tod, ok := rec.TimeOfDay()
	if !ok || tod != 12*time.Hour+35*time.Minute+19*time.Second {
		t.Fatalf("time=%v ok=%v", tod, ok)
	}
	pos, ok := rec.Position()
	if !ok || !approx(pos.Lat.Degrees(), 48.1173) || !approx(pos.Lng.Degrees(), 11.5167) {
		t.Fatalf("position=%v ok=%v", pos, ok)
	}
}

func TestDecode_HemispheresNegate(t *testing.T) {
	north := mustDecode(t, "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	south := mustDecode(t, "$GPGGA,123519,4807.038,S,01131.000,W,1,08,0.9,545.4,M,46.9,M,,")

	nLat, _ := north.Latitude()
	nLon, _ := north.Longitude()
	sLat, ok1 := south.Latitude()
	sLon, ok2 := south.Longitude()
	if !ok1 || !ok2 {
		t.Fatalf("expected coordinates, got %+v", south.Fields)
	}
	if sLat != -nLat || sLon != -nLon {
		t.Fatalf("south=(%v,%v) want (%v,%v)", sLat, sLon, -nLat, -nLon)
	}
	if north.Checksum != ChecksumAbsent {
		t.Fatalf("checksum=%v want absent", north.Checksum)
	}
}

func TestDecode_EmptyCoordinateIsAbsent(t *testing.T) {
	rec := mustDecode(t, "$GPGGA,123519,,N,,E,0,00,,,M,,M,,")
	if rec.Has(FieldLatitude) || rec.Has(FieldLongitude) {
		t.Fatalf("coordinates must be absent, got %+v", rec.Fields)
	}
	if _, ok := rec.Position(); ok {
		t.Fatalf("position must be absent")
	}
	if rec.Has(FieldHDOP) || rec.Has(FieldAltitudeM) {
		t.Fatalf("empty numeric fields must be absent, got %+v", rec.Fields)
	}
	if q, ok := rec.Text(FieldFixQuality); !ok || q != "0" {
		t.Fatalf("fix_quality=%q ok=%v want 0", q, ok)
	}
}

func TestDecode_MalformedCoordinatesAreAbsent(t *testing.T) {
	cases := []string{
		"$GPGLL,4807.038,X,01131.000,E,123519,A",
		"$GPGLL,4807.038,E,01131.000,N,123519,A",
		"$GPGLL,48a7.038,N,011b1.000,E,123519,A",
		"$GPGLL,4875.000,N,01175.000,E,123519,A",
		"$GPGLL,9107.038,N,18131.000,E,123519,A",
		"$GPGLL,48,N,01,E,123519,A",
	}
	for _, s := range cases {
		rec := mustDecode(t, Sentence(s))
		if rec.Has(FieldLatitude) || rec.Has(FieldLongitude) {
			t.Fatalf("%s: coordinates must be absent, got %+v", s, rec.Fields)
		}
		if st, _ := rec.Text(FieldStatus); st != "A" {
			t.Fatalf("%s: status=%q want A", s, st)
		}
	}
}

func TestDecode_RMC(t *testing.T) {
	rec := mustDecode(t, nmeaLine("GNRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W,A"))
	if rec.Talker != "GN" || rec.Type != "RMC" {
		t.Fatalf("talker=%q type=%q", rec.Talker, rec.Type)
	}
	want := map[Field]Value{
		FieldTime:       Text("123519"),
		FieldStatus:     Enum("A"),
		FieldLatitude:   Number(48 + 7.038/60),
		FieldLongitude:  Number(11 + 31.0/60),
		FieldSpeedKnots: Number(22.4),
		FieldCourseDeg:  Number(84.4),
		FieldDate:       Text("230394"),
		FieldMagVarDeg:  Number(-3.1),
		FieldMode:       Enum("A"),
	}
	if diff := cmp.Diff(want, rec.Fields, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_VTG(t *testing.T) {
	rec := mustDecode(t, "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K,D*48")
	want := map[Field]Value{
		FieldCourseDeg:    Number(54.7),
		FieldCourseMagDeg: Number(34.4),
		FieldSpeedKnots:   Number(5.5),
		FieldSpeedKmh:     Number(10.2),
		FieldMode:         Enum("D"),
	}
	if diff := cmp.Diff(want, rec.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_GSA(t *testing.T) {
	rec := mustDecode(t, "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39")
	if m, _ := rec.Text(FieldFixMode); m != "3" {
		t.Fatalf("fix_mode=%q want 3", m)
	}
	if used, _ := rec.Text(FieldSatellitesUsed); used != "04 05 09 12 24" {
		t.Fatalf("satellites_used=%q", used)
	}
	if v, _ := rec.Float(FieldVDOP); !approx(v, 2.1) {
		t.Fatalf("vdop=%v want 2.1", v)
	}
}

func TestDecode_GSVAndZDA(t *testing.T) {
	gsv := mustDecode(t, "$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00*74")
	if n, _ := gsv.Float(FieldSatellitesInView); n != 11 {
		t.Fatalf("satellites_in_view=%v want 11", n)
	}
	zda := mustDecode(t, "$GPZDA,201530.00,04,07,2002,00,00*60")
	if y, _ := zda.Float(FieldYear); y != 2002 {
		t.Fatalf("year=%v want 2002", y)
	}
	if tod, ok := zda.TimeOfDay(); !ok || tod != 20*time.Hour+15*time.Minute+30*time.Second {
		t.Fatalf("time=%v ok=%v", tod, ok)
	}
}

func TestDecode_NonFiniteNumbersAreAbsent(t *testing.T) {
	rec := mustDecode(t, "$GPGGA,123519,4807.038,N,01131.000,E,1,08,NaN,Inf,M,Infinity,M,,")
	for _, f := range []Field{FieldHDOP, FieldAltitudeM, FieldGeoidSepM} {
		if rec.Has(f) {
			v, _ := rec.Float(f)
			t.Fatalf("%v=%v want absent", f, v)
		}
	}
	if _, ok := rec.Latitude(); !ok {
		t.Fatalf("latitude should still decode")
	}
}

func TestDecode_LatLonRejectsNonDigits(t *testing.T) {
	for _, lat := range []string{"+4807.038", "-4807.038", "48 7.038", "4807.0e1", "4807.+38"} {
		rec := mustDecode(t, Sentence("$GPGLL,"+lat+",N,01131.000,E,225444,A"))
		if rec.Has(FieldLatitude) {
			v, _ := rec.Latitude()
			t.Fatalf("lat %q decoded to %v want absent", lat, v)
		}
		if _, ok := rec.Longitude(); !ok {
			t.Fatalf("lat %q: longitude should still decode", lat)
		}
	}
}

func TestSentenceAddress(t *testing.T) {
	cases := map[Sentence][2]string{
		"$GPGGA,1":     {"GP", "GGA"},
		"$GNRMC*00":    {"GN", "RMC"},
		"$PUBX,00,1":   {"P", "UBX"},
		"$GP":          {"", "GP"},
		"$":            {"", ""},
		"$BDGSV,1,1,0": {"BD", "GSV"},
	}
	for in, want := range cases {
		talker, typ := in.Address()
		if talker != want[0] || typ != want[1] {
			t.Fatalf("Address(%q)=%q,%q want %q,%q", in, talker, typ, want[0], want[1])
		}
		rec, _ := Decode(in)
		if rec.Talker != talker || rec.Type != typ {
			t.Fatalf("Decode(%q) talker=%q type=%q disagrees with Address", in, rec.Talker, rec.Type)
		}
	}
}

func TestDecode_UnknownTypeHasNoFields(t *testing.T) {
	for _, s := range []Sentence{
		"$GPTXT,01,01,02,ANTSTATUS=OK*3B",
		"$PUBX,00,081350.00,4717.113210,N,00833.915187,E",
		"$GNGNS,1,2",
		"$X",
	} {
		rec, err := Decode(s)
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", s, err)
		}
		if len(rec.Fields) != 0 {
			t.Fatalf("%s: fields=%+v want none", s, rec.Fields)
		}
	}
	rec := mustDecode(t, "$PUBX,00,081350.00")
	if rec.Talker != "P" || rec.Type != "UBX" {
		t.Fatalf("talker=%q type=%q want P UBX", rec.Talker, rec.Type)
	}
}

func TestDecode_TruncatedRecognizedType(t *testing.T) {
	_, err := Decode("$GPGGA,123519,4807.038,N")
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err=%v want ErrTruncated", err)
	}
	var te *TruncatedError
	if !errors.As(err, &te) || te.Type != "GGA" || te.Got != 4 || te.Want != 11 {
		t.Fatalf("err=%#v", err)
	}
	if !strings.Contains(err.Error(), "GGA") {
		t.Fatalf("error should name the type: %v", err)
	}

	// The checksum suffix is not a field.
	if _, err := Decode("$GPRMC,1,A,2,N,3,E,4,5*00"); !errors.Is(err, ErrTruncated) {
		t.Fatalf("err=%v want ErrTruncated", err)
	}
}

func TestDecode_IsPure(t *testing.T) {
	a, errA := Decode(ggaMunich)
	b, errB := Decode(ggaMunich)
	if errA != nil || errB != nil {
		t.Fatalf("errs: %v %v", errA, errB)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("decode not repeatable (-first +second):\n%s", diff)
	}
}

func TestDecode_ValidatedFramedSentence(t *testing.T) {
	var f Framer
	var got []Record
	f.FeedChunk([]byte("garbage\r\n"+ggaMunich+"\r\n"), func(s Sentence) {
		v, err := Validator{}.Validate(s)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		got = append(got, mustDecode(t, v))
	})
	if len(got) != 1 || got[0].Type != "GGA" {
		t.Fatalf("got %+v", got)
	}
}
