package omnidupe

import "strings"

const (
	// DefaultSimilarityThreshold is T in §4.4, the default Hamming-distance
	// cutoff for perceptual similarity.
	DefaultSimilarityThreshold = 5

	// MaxSimilarityThreshold is the widest valid threshold: at 64, stage 3
	// collapses every hashed image into a single cluster.
	MaxSimilarityThreshold = 64

	// DefaultMaxWorkers bounds the walker and extractor worker pools when
	// no explicit --max-workers flag or config value is supplied.
	DefaultMaxWorkers = 4

	// HashBitWidth is the uniform output width, in bits, of all four
	// perceptual hash algorithms (§4.2).
	HashBitWidth = 64

	// CatalogFileName is the fixed basename of the persisted catalog
	// inside an output directory (§6).
	CatalogFileName = "omnidupe.db"

	// MoveConflictMaxAttempts bounds the actuator's counter-suffix loop
	// for move-mode name conflicts (§4.6 step 4).
	MoveConflictMaxAttempts = 1000

	// exifTimestampLayout is the strict EXIF DateTime(Original) format.
	exifTimestampLayout = "2006:01:02 15:04:05"

	// catalogTimestampLayout is the ISO-8601-without-timezone layout used
	// to persist timestamps as catalog strings (§3).
	catalogTimestampLayout = "2006-01-02T15:04:05"
)

// DefaultSkipDirs is the case-insensitive set of directory basenames the
// walker prunes before descent (§4.1).
var DefaultSkipDirs = []string{"@eaDir"}

// DefaultExtensions is the extension-based recognition list (§4.1),
// checked case-insensitively.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff",
	".bmp", ".webp", ".ico", ".jfif", ".pjpeg", ".pjp",
}

// mimeFallback maps extensions to a MIME type for the fallback
// recognition path used when an extension is absent from
// DefaultExtensions but still resolves to an image/* MIME type.
var mimeFallback = map[string]string{
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".jfif":  "image/jpeg",
	".pjpeg": "image/jpeg",
	".pjp":   "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".bmp":   "image/bmp",
	".webp":  "image/webp",
	".ico":   "image/vnd.microsoft.icon",
	".heic":  "image/heic",
	".heif":  "image/heif",
	".avif":  "image/avif",
}

// IsImageExtension reports whether ext (as returned by filepath.Ext) is
// a recognized image extension, either via the default list or via the
// MIME-by-extension fallback.
func IsImageExtension(ext string) bool {
	lower := strings.ToLower(ext)
	for _, known := range DefaultExtensions {
		if lower == known {
			return true
		}
	}
	_, ok := mimeFallback[lower]
	return ok
}

// IsSkippedDir reports whether name matches the skip-directory set,
// case-insensitively.
func IsSkippedDir(name string, skipSet []string) bool {
	for _, skip := range skipSet {
		if strings.EqualFold(name, skip) {
			return true
		}
	}
	return false
}
