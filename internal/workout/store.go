package workout

import (
	"context"
	"encoding/json"

	"pullupd/internal/storage"
	"pullupd/pkg/logx"
)

// Blob keys in the persistence layer.
const (
	blobWorkouts    = "workouts"
	blobSettings    = "settings"
	blobCompletions = "completions"
)

// Store wraps the blob store with the workout domain schema. Persistence is
// best effort: read failures yield zero values and write failures are logged
// and swallowed, so a broken data dir degrades to an in-memory session
// instead of taking the process down.
type Store struct {
	blobs storage.Store
	log   logx.Logger
}

func NewStore(blobs storage.Store, log logx.Logger) *Store {
	return &Store{blobs: blobs, log: log}
}

func (s *Store) getJSON(ctx context.Context, key string, v any) bool {
	if s.blobs == nil {
		return false
	}
	raw, ok, err := s.blobs.GetBlob(ctx, key)
	if err != nil {
		s.log.Warn("blob read failed", logx.String("key", key), logx.Err(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.log.Warn("blob decode failed", logx.String("key", key), logx.Err(err))
		return false
	}
	return true
}

func (s *Store) putJSON(ctx context.Context, key string, v any) {
	if s.blobs == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("blob encode failed", logx.String("key", key), logx.Err(err))
		return
	}
	if err := s.blobs.PutBlob(ctx, key, raw); err != nil {
		s.log.Warn("blob write failed", logx.String("key", key), logx.Err(err))
	}
}

// Workouts loads the workout list. Missing or unreadable data yields an
// empty list.
func (s *Store) Workouts(ctx context.Context) []Workout {
	var list []Workout
	s.getJSON(ctx, blobWorkouts, &list)
	return list
}

// HasWorkouts reports whether a workout blob exists at all, without
// decoding it. Used by the seed bootstrap to avoid clobbering user data.
func (s *Store) HasWorkouts(ctx context.Context) bool {
	if s.blobs == nil {
		return false
	}
	_, ok, err := s.blobs.GetBlob(ctx, blobWorkouts)
	return err == nil && ok
}

func (s *Store) SaveWorkouts(ctx context.Context, list []Workout) {
	s.putJSON(ctx, blobWorkouts, list)
}

// Settings loads the settings blob, normalized, falling back to defaults.
func (s *Store) Settings(ctx context.Context) Settings {
	cfg := DefaultSettings()
	s.getJSON(ctx, blobSettings, &cfg)
	cfg.Normalize()
	return cfg
}

func (s *Store) SaveSettings(ctx context.Context, cfg Settings) {
	s.putJSON(ctx, blobSettings, cfg)
}

// completions is dateKey -> workoutID -> done.
type completions map[string]map[string]bool

// IsCompleted reports whether the workout was marked done on the given day.
func (s *Store) IsCompleted(ctx context.Context, workoutID, dayKey string) bool {
	var c completions
	if !s.getJSON(ctx, blobCompletions, &c) {
		return false
	}
	return c[dayKey][workoutID]
}

// SetCompleted records the completion flag for a workout on the given day.
func (s *Store) SetCompleted(ctx context.Context, workoutID, dayKey string, done bool) {
	c := completions{}
	s.getJSON(ctx, blobCompletions, &c)
	day := c[dayKey]
	if day == nil {
		day = make(map[string]bool)
		c[dayKey] = day
	}
	day[workoutID] = done
	s.putJSON(ctx, blobCompletions, c)
}

// CompletedOn returns all workout ids marked done on the given day.
func (s *Store) CompletedOn(ctx context.Context, dayKey string) map[string]bool {
	var c completions
	if !s.getJSON(ctx, blobCompletions, &c) {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(c[dayKey]))
	for id, done := range c[dayKey] {
		if done {
			out[id] = true
		}
	}
	return out
}
