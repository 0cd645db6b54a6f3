package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	"github.com/kestrel-vision/trackstudio/internal/monitoring"
	"github.com/kestrel-vision/trackstudio/internal/timeutil"
)

// Snapshot is the metadata row for one persisted session state.
type Snapshot struct {
	SnapshotID string   `json:"snapshot_id"`
	Label      string   `json:"label"`
	Cameras    []string `json:"cameras"`
	TrackCount int      `json:"track_count"`
	CreatedAt  int64    `json:"created_at"`
}

// trackPayload is the JSON body persisted per (track, camera) row.
type trackPayload struct {
	ConfidencePairs []confidencePairRecord `json:"confidence_pairs"`
	Attributes      map[string]any         `json:"attributes,omitempty"`
	Features        []featureRecord        `json:"features"`
}

type confidencePairRecord struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

type featureRecord struct {
	Frame       int               `json:"frame"`
	Bounds      *annotation.Rect  `json:"bounds,omitempty"`
	Shapes      []annotation.Shape `json:"shapes,omitempty"`
	Keyframe    bool              `json:"keyframe"`
	Interpolate bool              `json:"interpolate"`
}

// SnapshotStore persists and restores annotation sessions.
type SnapshotStore struct {
	db    *DB
	clock timeutil.Clock
}

// NewSnapshotStore creates a SnapshotStore backed by the given database.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the timestamp source. Tests use a MockClock for
// deterministic CreatedAt values.
func (s *SnapshotStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Save persists the full state of store under a new snapshot id.
func (s *SnapshotStore) Save(store *annotation.Store, label string) (*Snapshot, error) {
	snap := &Snapshot{
		SnapshotID: fmt.Sprintf("snap_%s", uuid.NewString()),
		Label:      label,
		Cameras:    store.Cameras(),
		CreatedAt:  s.clock.Now().UnixNano(),
	}

	camerasJSON, err := json.Marshal(snap.Cameras)
	if err != nil {
		return nil, fmt.Errorf("marshal cameras: %w", err)
	}

	type row struct {
		camera  string
		track   *annotation.Track
		payload []byte
	}
	var rows []row
	for _, camera := range snap.Cameras {
		for _, track := range store.OrderedTracks(camera) {
			payload, err := marshalTrack(track)
			if err != nil {
				return nil, fmt.Errorf("marshal track %d on %q: %w", track.ID, camera, err)
			}
			rows = append(rows, row{camera: camera, track: track, payload: payload})
		}
	}
	snap.TrackCount = len(rows)

	err = retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO snapshots (snapshot_id, label, cameras, track_count, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			snap.SnapshotID, snap.Label, string(camerasJSON), snap.TrackCount, snap.CreatedAt,
		)
		if err != nil {
			return err
		}
		for _, r := range rows {
			_, err = tx.Exec(`
				INSERT INTO snapshot_tracks (snapshot_id, camera, track_id, track_type, begin_frame, end_frame, payload)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				snap.SnapshotID, r.camera, int64(r.track.ID), r.track.Type(), r.track.Begin, r.track.End, string(r.payload),
			)
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	monitoring.Logf("saved snapshot %s (%d tracks, %d cameras)", snap.SnapshotID, snap.TrackCount, len(snap.Cameras))
	return snap, nil
}

// Get returns a single snapshot's metadata by id.
func (s *SnapshotStore) Get(snapshotID string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT snapshot_id, label, cameras, track_count, created_at
		FROM snapshots WHERE snapshot_id = ?`, snapshotID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s not found", snapshotID)
	}
	return snap, err
}

// List returns all snapshots, newest first.
func (s *SnapshotStore) List() ([]*Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT snapshot_id, label, cameras, track_count, created_at
		FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Load reconstructs a full annotation store from a snapshot. Track ids
// are restored verbatim, so ids assigned after a load never collide with
// persisted ones.
func (s *SnapshotStore) Load(snapshotID string) (*annotation.Store, error) {
	snap, err := s.Get(snapshotID)
	if err != nil {
		return nil, err
	}
	store := annotation.NewStore(snap.Cameras...)

	rows, err := s.db.Query(`
		SELECT camera, track_id, track_type, payload
		FROM snapshot_tracks
		WHERE snapshot_id = ?
		ORDER BY track_id, camera`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var camera, trackType, payload string
		var rawID int64
		if err := rows.Scan(&camera, &rawID, &trackType, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot track: %w", err)
		}
		var rec trackPayload
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal track %d payload: %w", rawID, err)
		}
		if err := restoreTrack(store, camera, annotation.TrackID(rawID), trackType, &rec); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	monitoring.Logf("loaded snapshot %s (%d tracks)", snapshotID, snap.TrackCount)
	return store, nil
}

// Delete removes a snapshot and its track rows.
func (s *SnapshotStore) Delete(snapshotID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM snapshots WHERE snapshot_id = ?`, snapshotID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("snapshot %s not found", snapshotID)
		}
		return nil
	})
}

func marshalTrack(track *annotation.Track) ([]byte, error) {
	rec := trackPayload{Attributes: track.Attributes()}
	for _, pair := range track.ConfidencePairs() {
		rec.ConfidencePairs = append(rec.ConfidencePairs, confidencePairRecord{Type: pair.Type, Score: pair.Score})
	}
	for _, frame := range track.Frames() {
		f, interpolated, ok := track.GetFeature(frame)
		if !ok || interpolated {
			continue
		}
		rec.Features = append(rec.Features, featureRecord{
			Frame:       f.Frame,
			Bounds:      f.Bounds,
			Shapes:      f.Shapes,
			Keyframe:    f.Keyframe,
			Interpolate: f.Interpolate,
		})
	}
	return json.Marshal(rec)
}

func restoreTrack(store *annotation.Store, camera string, id annotation.TrackID, trackType string, rec *trackPayload) error {
	begin := 0
	if len(rec.Features) > 0 {
		begin = rec.Features[0].Frame
	}
	track, err := store.AddTrack(begin, trackType, camera, nil, &id)
	if err != nil {
		return fmt.Errorf("restore track %d on %q: %w", id, camera, err)
	}

	if len(rec.ConfidencePairs) > 0 {
		pairs := make([]annotation.ConfidencePair, 0, len(rec.ConfidencePairs))
		for _, p := range rec.ConfidencePairs {
			pairs = append(pairs, annotation.ConfidencePair{Type: p.Type, Score: p.Score})
		}
		track.SetConfidencePairs(pairs)
	}
	for k, v := range rec.Attributes {
		track.SetAttribute(k, v)
	}
	for _, f := range rec.Features {
		track.SetFeature(annotation.Feature{
			Frame:       f.Frame,
			Bounds:      f.Bounds,
			Keyframe:    f.Keyframe,
			Interpolate: f.Interpolate,
		}, f.Shapes...)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*Snapshot, error) {
	var snap Snapshot
	var camerasJSON string
	if err := sc.Scan(&snap.SnapshotID, &snap.Label, &camerasJSON, &snap.TrackCount, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(camerasJSON), &snap.Cameras); err != nil {
		return nil, fmt.Errorf("unmarshal cameras: %w", err)
	}
	return &snap, nil
}
