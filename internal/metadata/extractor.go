// Package metadata extracts the per-image fingerprint record: content
// hash, dimensions/format, EXIF timestamp/camera/GPS, and the four
// perceptual hashes (§4.2). Once the file can be stat'ed, every
// extraction failure is localized to its field: the extractor returns a
// degraded record plus a logged warning, not an error.
package metadata

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/kerr23/omnidupe/internal/fingerprint"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

// Extractor produces an omnidupe.ImageRecord for one path.
type Extractor struct {
	hasher *fingerprint.Calculator
	log    *logrus.Entry
}

// NewExtractor creates an Extractor logging under the "extractor"
// component field.
func NewExtractor(log *logrus.Logger) *Extractor {
	if log == nil {
		log = logrus.New()
	}
	return &Extractor{
		hasher: fingerprint.NewCalculator(),
		log:    log.WithField("component", "extractor"),
	}
}

// Extract builds a record for path. The error return is reserved for
// conditions that make the path unusable entirely (stat failure); the
// record is then nil, and the error surfaces to the caller so it can
// skip the path. Otherwise the record is always non-nil.
func (e *Extractor) Extract(path string) (*omnidupe.ImageRecord, error) {
	entry := e.log.WithField("path", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	record := &omnidupe.ImageRecord{
		FilePath:         path,
		FileSize:         info.Size(),
		ModificationTime: info.ModTime(),
		CreationTime:     creationTime(info),
		ProcessedAt:      time.Now(),
	}

	if hash, err := fingerprint.ContentHash(path); err != nil {
		entry.WithError(err).Warn("content hash failed")
	} else {
		record.ContentHash = hash
	}

	img, format, err := e.decode(path)
	if err != nil {
		entry.WithError(err).Warn("image decode failed")
	} else {
		bounds := img.Bounds()
		record.Width = bounds.Dx()
		record.Height = bounds.Dy()
		record.Format = strings.ToUpper(format)

		hashes := e.hasher.ComputeAll(img)
		record.PerceptualHash = hashes.PHash
		record.AverageHash = hashes.AHash
		record.DifferenceHash = hashes.DHash
		record.WaveletHash = hashes.WHash
	}
	if record.Format == "" {
		record.Format = formatFromExtension(path)
	}

	if exifInfo, err := readEXIF(path); err != nil {
		entry.Debugf("no usable EXIF: %v", err)
	} else {
		record.Timestamp = exifInfo.Timestamp
		record.CameraMake = exifInfo.CameraMake
		record.CameraModel = exifInfo.CameraModel
		record.GPSLatitude = exifInfo.GPSLat
		record.GPSLongitude = exifInfo.GPSLon
	}

	return record, nil
}

// decode opens and fully decodes the image, needed (rather than just
// image.DecodeConfig) because the perceptual hashes operate on decoded
// pixel data.
func (e *Extractor) decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return image.Decode(f)
}

func formatFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}
