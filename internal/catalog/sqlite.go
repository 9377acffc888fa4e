package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
	"github.com/sirupsen/logrus"
)

const timeLayout = "2006-01-02T15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL UNIQUE,
	file_size INTEGER NOT NULL DEFAULT 0,
	content_hash TEXT NOT NULL DEFAULT '',
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	format TEXT NOT NULL DEFAULT '',
	timestamp TEXT,
	camera_make TEXT NOT NULL DEFAULT '',
	camera_model TEXT NOT NULL DEFAULT '',
	gps_latitude REAL,
	gps_longitude REAL,
	perceptual_hash TEXT,
	average_hash TEXT,
	difference_hash TEXT,
	wavelet_hash TEXT,
	creation_time TEXT,
	modification_time TEXT,
	processed_at TEXT,
	marked_for_removal INTEGER NOT NULL DEFAULT 0,
	is_protected INTEGER NOT NULL DEFAULT 0,
	removal_reason TEXT
);

CREATE TABLE IF NOT EXISTS duplicate_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	similarity_score REAL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_images (
	group_id INTEGER NOT NULL,
	image_id INTEGER NOT NULL,
	is_keeper INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (group_id, image_id)
);

CREATE INDEX IF NOT EXISTS idx_images_content_hash ON images(content_hash);
CREATE INDEX IF NOT EXISTS idx_images_timestamp ON images(timestamp);
CREATE INDEX IF NOT EXISTS idx_images_perceptual_hash ON images(perceptual_hash);
CREATE INDEX IF NOT EXISTS idx_images_dimensions ON images(width, height);
CREATE INDEX IF NOT EXISTS idx_images_camera ON images(camera_make, camera_model);
`

// forwardCompatColumns lists columns added after the original schema so
// an older catalog file can be opened and migrated in place (§4.3).
var forwardCompatColumns = []string{
	"ALTER TABLE images ADD COLUMN marked_for_removal INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE images ADD COLUMN is_protected INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE images ADD COLUMN removal_reason TEXT",
}

// Store is the SQLite-backed Catalog implementation. It holds a single
// *sql.DB (itself pool-backed and safe for concurrent use by multiple
// goroutines); every public method wraps its work in one transaction
// per §4.3's "transactional unit" rule.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open creates or opens the catalog file at path, creating the schema
// and applying any forward-compatible column additions.
func Open(path string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log.WithField("component", "catalog")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	for _, stmt := range forwardCompatColumns {
		if _, err := s.db.Exec(stmt); err != nil {
			// duplicate column is the expected, idempotent no-op case.
			continue
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// StoreImageMetadata is insert-or-replace keyed on file_path. It always
// re-reads the existing row's protection/mark state inside the same
// transaction and carries it forward, so a re-detect pass can never
// erase a prior `protect` call (§4.3, §9 open question).
func (s *Store) StoreImageMetadata(rec *omnidupe.ImageRecord) (*omnidupe.ImageRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existingID int64
	var isProtected, markedForRemoval bool
	var removalReason sql.NullString
	err = tx.QueryRow(
		`SELECT id, is_protected, marked_for_removal, removal_reason FROM images WHERE file_path = ?`,
		rec.FilePath,
	).Scan(&existingID, &isProtected, &markedForRemoval, &removalReason)

	switch {
	case err == sql.ErrNoRows:
		// first encounter; nothing to carry forward.
	case err != nil:
		return nil, err
	default:
		rec.IsProtected = isProtected
		rec.MarkedForRemoval = markedForRemoval
		rec.RemovalReason = removalReason.String
	}

	res, err := tx.Exec(`
		INSERT INTO images (
			file_path, file_size, content_hash, width, height, format,
			timestamp, camera_make, camera_model, gps_latitude, gps_longitude,
			perceptual_hash, average_hash, difference_hash, wavelet_hash,
			creation_time, modification_time, processed_at,
			marked_for_removal, is_protected, removal_reason
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(file_path) DO UPDATE SET
			file_size=excluded.file_size, content_hash=excluded.content_hash,
			width=excluded.width, height=excluded.height, format=excluded.format,
			timestamp=excluded.timestamp, camera_make=excluded.camera_make,
			camera_model=excluded.camera_model, gps_latitude=excluded.gps_latitude,
			gps_longitude=excluded.gps_longitude, perceptual_hash=excluded.perceptual_hash,
			average_hash=excluded.average_hash, difference_hash=excluded.difference_hash,
			wavelet_hash=excluded.wavelet_hash, creation_time=excluded.creation_time,
			modification_time=excluded.modification_time, processed_at=excluded.processed_at,
			marked_for_removal=excluded.marked_for_removal, is_protected=excluded.is_protected,
			removal_reason=excluded.removal_reason
	`,
		rec.FilePath, rec.FileSize, rec.ContentHash, rec.Width, rec.Height, rec.Format,
		nullableTime(rec.Timestamp), rec.CameraMake, rec.CameraModel,
		nullableFloat(rec.GPSLatitude), nullableFloat(rec.GPSLongitude),
		nullableString(rec.PerceptualHash), nullableString(rec.AverageHash),
		nullableString(rec.DifferenceHash), nullableString(rec.WaveletHash),
		rec.CreationTime.Format(timeLayout), rec.ModificationTime.Format(timeLayout),
		rec.ProcessedAt.Format(timeLayout),
		rec.MarkedForRemoval, rec.IsProtected, nullableString(rec.RemovalReason),
	)
	if err != nil {
		return nil, err
	}

	if existingID != 0 {
		rec.ID = existingID
	} else if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) GetImageByPath(path string) (*omnidupe.ImageRecord, error) {
	row := s.db.QueryRow(selectColumns+` FROM images WHERE file_path = ?`, path)
	return scanImage(row)
}

func (s *Store) GetImageByID(id int64) (*omnidupe.ImageRecord, error) {
	row := s.db.QueryRow(selectColumns+` FROM images WHERE id = ?`, id)
	return scanImage(row)
}

const selectColumns = `SELECT id, file_path, file_size, content_hash, width, height, format,
	timestamp, camera_make, camera_model, gps_latitude, gps_longitude,
	perceptual_hash, average_hash, difference_hash, wavelet_hash,
	creation_time, modification_time, processed_at,
	marked_for_removal, is_protected, removal_reason`

func (s *Store) queryAll(query string, args ...interface{}) ([]*omnidupe.ImageRecord, error) {
	rows, err := s.db.Query(selectColumns+" FROM images "+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*omnidupe.ImageRecord
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ImagesByTimestamp groups rows sharing a non-null timestamp, each
// group sorted by file_path, groups ordered by first appearance of the
// timestamp in file_path order (§4.3, §5 ordering guarantees).
func (s *Store) ImagesByTimestamp() ([][]*omnidupe.ImageRecord, error) {
	rows, err := s.queryAll(`WHERE timestamp IS NOT NULL ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	return groupBy(rows, func(r *omnidupe.ImageRecord) string {
		if r.Timestamp == nil {
			return ""
		}
		return r.Timestamp.Format(timeLayout)
	}), nil
}

// ImagesByContentHash is the content-identity analogue.
func (s *Store) ImagesByContentHash() ([][]*omnidupe.ImageRecord, error) {
	rows, err := s.queryAll(`WHERE content_hash != '' ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	return groupBy(rows, func(r *omnidupe.ImageRecord) string { return r.ContentHash }), nil
}

func (s *Store) ImagesWithPerceptualHashes() ([]*omnidupe.ImageRecord, error) {
	return s.queryAll(`WHERE perceptual_hash IS NOT NULL ORDER BY file_path`)
}

func (s *Store) ImagesForRemoval() ([]*omnidupe.ImageRecord, error) {
	return s.queryAll(`WHERE marked_for_removal = 1 AND is_protected = 0 ORDER BY file_path`)
}

// groupBy buckets FilePath-sorted rows sharing the same key into groups
// of >= 2, preserving the order each key first appears in (§5).
func groupBy(rows []*omnidupe.ImageRecord, key func(*omnidupe.ImageRecord) string) [][]*omnidupe.ImageRecord {
	order := make([]string, 0)
	buckets := make(map[string][]*omnidupe.ImageRecord)
	for _, r := range rows {
		k := key(r)
		if k == "" {
			continue
		}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], r)
	}

	var groups [][]*omnidupe.ImageRecord
	for _, k := range order {
		if len(buckets[k]) >= 2 {
			groups = append(groups, buckets[k])
		}
	}
	return groups
}

func (s *Store) MarkForRemoval(id int64, reason string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var protected bool
	if err := tx.QueryRow(`SELECT is_protected FROM images WHERE id = ?`, id).Scan(&protected); err != nil {
		if err == sql.ErrNoRows {
			return omnidupe.ErrImageNotFound
		}
		return err
	}
	if protected {
		s.log.WithField("image_id", id).Info("skipping mark-for-removal on protected image")
		return tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE images SET marked_for_removal = 1, removal_reason = ? WHERE id = ?`, reason, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UnmarkForRemoval(id int64) error {
	_, err := s.db.Exec(`UPDATE images SET marked_for_removal = 0, removal_reason = NULL WHERE id = ?`, id)
	return err
}

func (s *Store) MarkProtected(path string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE images SET is_protected = 1, marked_for_removal = 0, removal_reason = NULL WHERE file_path = ?`,
		path,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	return true, tx.Commit()
}

func (s *Store) CreateGroup(kind omnidupe.GroupKind, score *float64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO duplicate_groups (kind, similarity_score, created_at) VALUES (?, ?, ?)`,
		string(kind), nullableFloat(score), time.Now().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) AddToGroup(groupID, imageID int64, isKeeper bool) error {
	_, err := s.db.Exec(
		`INSERT INTO group_images (group_id, image_id, is_keeper) VALUES (?, ?, ?)`,
		groupID, imageID, isKeeper,
	)
	return err
}

// KeeperPathForImage looks up imageID's group and returns the keeper
// member's file_path (§9.1 keeper-file verification).
func (s *Store) KeeperPathForImage(imageID int64) (string, bool, error) {
	var path string
	err := s.db.QueryRow(`
		SELECT i2.file_path
		FROM group_images gi1
		JOIN group_images gi2 ON gi2.group_id = gi1.group_id AND gi2.is_keeper = 1
		JOIN images i2 ON i2.id = gi2.image_id
		WHERE gi1.image_id = ?
	`, imageID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{GroupsByKind: make(map[omnidupe.GroupKind]int64)}

	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM images`).
		Scan(&stats.TotalImages, &stats.TotalSizeBytes); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM duplicate_groups GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.GroupsByKind[omnidupe.GroupKind(kind)] = count
	}

	if err := s.db.QueryRow(`SELECT COALESCE(SUM(file_size), 0) FROM images WHERE marked_for_removal = 1 AND is_protected = 0`).
		Scan(&stats.ReclaimableBytes); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err == nil {
			stats.CatalogSizeBytes = pageCount * pageSize
		}
	}

	return stats, nil
}

// Compact runs VACUUM to rebuild the catalog file and release its free
// pages. Image rows are never deleted, including rows whose backing
// files are gone. An operational convenience, not a correctness
// requirement (§4.3 Diagnostics).
func (s *Store) Compact() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which
// expose Scan with an identical signature.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*omnidupe.ImageRecord, error) {
	var rec omnidupe.ImageRecord
	var timestamp, perceptual, average, difference, wavelet, removalReason sql.NullString
	var gpsLat, gpsLon sql.NullFloat64
	var creationTime, modificationTime, processedAt string

	err := row.Scan(
		&rec.ID, &rec.FilePath, &rec.FileSize, &rec.ContentHash, &rec.Width, &rec.Height, &rec.Format,
		&timestamp, &rec.CameraMake, &rec.CameraModel, &gpsLat, &gpsLon,
		&perceptual, &average, &difference, &wavelet,
		&creationTime, &modificationTime, &processedAt,
		&rec.MarkedForRemoval, &rec.IsProtected, &removalReason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, omnidupe.ErrImageNotFound
		}
		return nil, err
	}

	if timestamp.Valid {
		if t, err := time.Parse(timeLayout, timestamp.String); err == nil {
			rec.Timestamp = &t
		}
	}
	if gpsLat.Valid {
		v := gpsLat.Float64
		rec.GPSLatitude = &v
	}
	if gpsLon.Valid {
		v := gpsLon.Float64
		rec.GPSLongitude = &v
	}
	rec.PerceptualHash = perceptual.String
	rec.AverageHash = average.String
	rec.DifferenceHash = difference.String
	rec.WaveletHash = wavelet.String
	rec.RemovalReason = removalReason.String

	rec.CreationTime, _ = time.Parse(timeLayout, creationTime)
	rec.ModificationTime, _ = time.Parse(timeLayout, modificationTime)
	rec.ProcessedAt, _ = time.Parse(timeLayout, processedAt)

	return &rec, nil
}
