package workout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"pullupd/pkg/logx"
)

// seedDocument is the bootstrap file format. The top-level sets/repeats
// fields are the legacy single-category form; categories supersede them.
type seedDocument struct {
	Sets       int        `json:"sets"`
	Repeats    int        `json:"repeats"`
	Categories []Category `json:"categories"`
	Workouts   []Workout  `json:"workouts"`
}

const seedFetchTimeout = 10 * time.Second

// Seed bootstraps the workout and settings blobs from a seed file or URL.
// It runs only when no workout blob exists yet; any failure leaves the
// store empty and is logged, never fatal.
func (s *Store) Seed(ctx context.Context, path, url string, log logx.Logger) {
	if s.HasWorkouts(ctx) {
		return
	}
	raw, src, err := readSeed(ctx, path, url)
	if err != nil {
		log.Warn("seed load failed, starting empty", logx.String("source", src), logx.Err(err))
		return
	}
	if raw == nil {
		return
	}
	var doc seedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("seed parse failed, starting empty", logx.String("source", src), logx.Err(err))
		return
	}
	list, settings := doc.materialize()
	bad := 0
	valid := list[:0]
	for _, w := range list {
		if err := w.Validate(); err != nil {
			log.Warn("seed workout rejected", logx.Err(err))
			bad++
			continue
		}
		valid = append(valid, w)
	}
	s.SaveWorkouts(ctx, valid)
	s.SaveSettings(ctx, settings)
	log.Info("seed imported",
		logx.String("source", src),
		logx.Int("workouts", len(valid)),
		logx.Int("rejected", bad),
		logx.Int("categories", len(settings.Categories)))
}

func readSeed(ctx context.Context, path, url string) ([]byte, string, error) {
	switch {
	case strings.TrimSpace(path) != "":
		raw, err := os.ReadFile(path)
		return raw, path, err
	case strings.TrimSpace(url) != "":
		raw, err := fetchSeed(ctx, url)
		return raw, url, err
	default:
		return nil, "", nil
	}
}

func fetchSeed(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, seedFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed fetch: unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// materialize turns a seed document into concrete blobs, minting ids where
// the seed omits them and folding the legacy sets/repeats fields into a
// default category.
func (d seedDocument) materialize() ([]Workout, Settings) {
	settings := DefaultSettings()
	settings.Categories = d.Categories
	if len(settings.Categories) == 0 && (d.Sets > 0 || d.Repeats > 0) {
		settings.Categories = []Category{{
			ID:     uuid.NewString(),
			Name:   "Pull-ups",
			Prefix: "PULL",
			Sets:   d.Sets,
			Reps:   d.Repeats,
			Active: true,
		}}
	}
	for i := range settings.Categories {
		if settings.Categories[i].ID == "" {
			settings.Categories[i].ID = uuid.NewString()
		}
	}
	list := d.Workouts
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = uuid.NewString()
		}
		for j := range list[i].Timers {
			if list[i].Timers[j].ID == "" {
				list[i].Timers[j].ID = uuid.NewString()
			}
			if list[i].Timers[j].DurationSeconds < 1 {
				list[i].Timers[j].DurationSeconds = settings.TimerDefaultSeconds
			}
		}
	}
	return list, settings
}
