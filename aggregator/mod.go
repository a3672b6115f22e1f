package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nkcr/igfeed/instagram"
	"github.com/rs/zerolog"
	"github.com/tidwall/buntdb"
	"github.com/tidwall/gjson"
)

// Aggregator defines the primitives required for an Aggregator.
type Aggregator interface {
	// Start should start a goroutine that periodically fetches a feed on
	// Instagram and update the local database accordingly.
	Start(interval time.Duration) error

	// Stop should stop the periodical update and free resources.
	Stop()
}

// HTTPClient defines the primitive needed to perform HTTP queries
type HTTPClient interface {
	Get(url string) (resp *http.Response, err error)
}

// imageURLPaths are tried in order to find the image of an archived media.
var imageURLPaths = []string{
	"images.standard_resolution.url",
	"image_versions2.candidates.0.url",
	"carousel_media.0.images.standard_resolution.url",
	"carousel_media.0.image_versions2.candidates.0.url",
}

// NewFeedAggregator returns a new initialized feed Aggregator.
func NewFeedAggregator(db *buntdb.DB, feeds instagram.FeedAPI, source Source,
	imagesFolder string, client HTTPClient, logger zerolog.Logger) Aggregator {

	logger = logger.With().Str("role", "aggregator").
		Str("source", source.String()).Logger()

	return &FeedAggregator{
		db:           db,
		feeds:        feeds,
		source:       source,
		quit:         make(chan struct{}),
		logger:       logger,
		imagesFolder: imagesFolder,
		client:       client,
	}
}

// FeedAggregator archives the media of one feed
//
// - implements aggregator.Aggregator
type FeedAggregator struct {
	sync.Mutex
	db           *buntdb.DB
	feeds        instagram.FeedAPI
	source       Source
	logger       zerolog.Logger
	quit         chan struct{}
	stopOnce     sync.Once
	imagesFolder string
	client       HTTPClient
}

// Start implements aggregator.Aggregator. It should be called only if the
// aggregator is not already running.
func (a *FeedAggregator) Start(interval time.Duration) error {
	a.logger.Info().Msg("aggregator starting")

	ticker := time.NewTicker(interval)

	defer ticker.Stop()

	for {
		a.logger.Info().Msg("updating media")

		err := a.updateMedias()
		if err != nil {
			return fmt.Errorf("failed to update medias: %v", err)
		}

		select {
		case <-a.quit:
			return nil
		case <-ticker.C:
			continue
		}
	}
}

func (a *FeedAggregator) updateMedias() error {
	a.Lock()
	defer a.Unlock()

	res, err := a.source.Fetch(context.Background(), a.feeds)
	if err != nil {
		return fmt.Errorf("failed to get feed: %v", err)
	}

	type entry struct {
		id  string
		buf []byte
	}

	entries := []entry{}

	for _, media := range a.source.Shape().Collect(res) {
		buf, err := json.Marshal(media)
		if err != nil {
			return fmt.Errorf("failed to marshal media: %v", err)
		}

		id := gjson.GetBytes(buf, "id").String()
		if id == "" {
			a.logger.Warn().Msg("skipping media without id")
			continue
		}

		entries = append(entries, entry{id: id, buf: buf})
	}

	toAdd := []entry{}
	seen := map[string]bool{}

	err = a.db.View(func(tx *buntdb.Tx) error {
		for _, e := range entries {
			if seen[e.id] {
				continue
			}

			seen[e.id] = true

			_, err = tx.Get(e.id)
			if err != nil {
				toAdd = append(toAdd, e)
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to view the db: %v", err)
	}

	a.logger.Info().Msgf("%d media to add", len(toAdd))

	err = a.db.Update(func(tx *buntdb.Tx) error {
		for _, e := range toAdd {
			_, _, err := tx.Set(e.id, string(e.buf), &buntdb.SetOptions{})
			if err != nil {
				return fmt.Errorf("failed to set: %v", err)
			}

			a.logger.Info().Msgf("new media '%s' added", e.id)

			imageURL := findImageURL(e.buf)
			if imageURL == "" {
				a.logger.Warn().Msgf("media '%s' has no image", e.id)
				continue
			}

			imagePath := filepath.Join(a.imagesFolder, e.id+".jpg")

			err = saveImage(imageURL, imagePath, a.client)
			if err != nil {
				return fmt.Errorf("failed to save image: %v", err)
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to update the db: %v", err)
	}

	return nil
}

// findImageURL returns the URL of the media's main image, or "".
func findImageURL(media []byte) string {
	for _, path := range imageURLPaths {
		res := gjson.GetBytes(media, path)
		if res.Exists() && res.String() != "" {
			return res.String()
		}
	}

	return ""
}

func saveImage(url, path string, client HTTPClient) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to get URL '%s': %v", url, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		buf, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http request failed with status %s: %s", resp.Status, buf)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %v", path, err)
	}

	defer file.Close()

	_, err = io.Copy(file, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to copy bytes: %v", err)
	}

	return nil
}

// Stop implements aggregator.Aggregator. It never blocks and can be called
// several times, even after Start returned.
func (a *FeedAggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
	})
}
