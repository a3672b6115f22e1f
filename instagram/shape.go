package instagram

import (
	"sort"

	"github.com/nkcr/igfeed/instagram/types"
)

// Shape describes where media objects live in a feed response.
type Shape int

const (
	// ShapeItems is a flat "items" sequence.
	ShapeItems Shape = iota
	// ShapeFeedItems is a "feed_items" sequence of wrappers, media under
	// "media_or_ad".
	ShapeFeedItems
	// ShapeTray is a "tray" of reels, each with its own "items".
	ShapeTray
	// ShapeReels is both the "reels_media" sequence and the "reels" mapping,
	// each reel with its own "items".
	ShapeReels
	// ShapeRanked is "items" plus an independent "ranked_items" sequence.
	ShapeRanked
	// ShapeReel is the "items" of a single "reel" object.
	ShapeReel
	// ShapeSaved is an "items" sequence of wrappers, media under "media".
	ShapeSaved
)

var shapeNames = map[Shape]string{
	ShapeItems:     "items",
	ShapeFeedItems: "feed_items",
	ShapeTray:      "tray",
	ShapeReels:     "reels",
	ShapeRanked:    "ranked",
	ShapeReel:      "reel",
	ShapeSaved:     "saved",
}

func (s Shape) String() string {
	name, found := shapeNames[s]
	if !found {
		return "unknown"
	}

	return name
}

// Walk calls fn once on every media object of res. Absent
// collections are treated as empty.
func (s Shape) Walk(res types.Response, fn func(types.Media)) {
	switch s {
	case ShapeItems:
		walkItems(res, fn)
	case ShapeFeedItems:
		for _, item := range res.Objects("feed_items") {
			media := types.AsObject(item["media_or_ad"])
			if len(media) != 0 {
				fn(media)
			}
		}
	case ShapeTray:
		for _, reel := range res.Objects("tray") {
			walkItems(reel, fn)
		}
	case ShapeReels:
		for _, reel := range res.Objects("reels_media") {
			walkItems(reel, fn)
		}

		reels := res.Object("reels")

		ids := make([]string, 0, len(reels))
		for id := range reels {
			ids = append(ids, id)
		}

		// the mapping has no order of its own
		sort.Strings(ids)

		for _, id := range ids {
			walkItems(types.AsObject(reels[id]), fn)
		}
	case ShapeRanked:
		walkItems(res, fn)

		for _, m := range res.Objects("ranked_items") {
			fn(m)
		}
	case ShapeReel:
		if res.Has("reel") {
			walkItems(res.Object("reel"), fn)
		}
	case ShapeSaved:
		for _, item := range res.Objects("items") {
			media := types.AsObject(item["media"])
			if len(media) != 0 {
				fn(media)
			}
		}
	}
}

// Collect returns every media object of res.
func (s Shape) Collect(res types.Response) []types.Media {
	medias := []types.Media{}

	s.Walk(res, func(m types.Media) {
		medias = append(medias, m)
	})

	return medias
}

func walkItems(obj map[string]interface{}, fn func(types.Media)) {
	for _, m := range types.Response(obj).Objects("items") {
		fn(m)
	}
}
