package metadata

import (
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// exifData is the subset of a decoded EXIF segment the extractor needs,
// already converted to catalog-ready shapes.
type exifData struct {
	Timestamp   *time.Time
	CameraMake  string
	CameraModel string
	GPSLat      *float64
	GPSLon      *float64
}

// readEXIF decodes the EXIF segment of the file at path. It returns an
// error when the file has no decodable EXIF data -- callers treat that
// as a normal degraded case, not a failure worth logging at more than
// debug level.
func readEXIF(path string) (*exifData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, err
	}

	data := &exifData{}

	if ts, ok := exifTimestamp(x); ok {
		data.Timestamp = &ts
	}

	if make, err := x.Get(exif.Make); err == nil {
		if s, err := make.StringVal(); err == nil {
			data.CameraMake = strings.TrimSpace(s)
		}
	}
	if model, err := x.Get(exif.Model); err == nil {
		if s, err := model.StringVal(); err == nil {
			data.CameraModel = strings.TrimSpace(s)
		}
	}

	if lat, lon, err := x.LatLong(); err == nil {
		data.GPSLat = &lat
		data.GPSLon = &lon
	}

	return data, nil
}

// exifTimestamp parses DateTimeOriginal, falling back to DateTime, using
// the strict EXIF layout (§4.2). An unparseable or absent value reports
// ok=false so the caller leaves the field null rather than guessing.
func exifTimestamp(x *exif.Exif) (time.Time, bool) {
	for _, tag := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		field, err := x.Get(tag)
		if err != nil {
			continue
		}
		s, err := field.StringVal()
		if err != nil {
			continue
		}
		t, err := time.Parse("2006:01:02 15:04:05", s)
		if err != nil {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
