package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/nkcr/igfeed/instagram"
	"github.com/nkcr/igfeed/instagram/types"
)

// Source names the feed an aggregator archives, such as "timeline" or
// "tag:sunset". Feeds that need an identifier take it after a colon.
type Source struct {
	Feed string
	Arg  string
}

// feedsWithArg lists the feeds that need an identifier.
var feedsWithArg = map[string]bool{
	"user":     true,
	"username": true,
	"reel":     true,
	"tag":      true,
	"location": true,
	"story":    true,
}

// ParseSource parses "feed" or "feed:arg".
func ParseSource(s string) (Source, error) {
	feed, arg := s, ""

	i := strings.IndexByte(s, ':')
	if i >= 0 {
		feed, arg = s[:i], s[i+1:]
	}

	_, err := instagram.ShapeOf(feed)
	if err != nil {
		return Source{}, err
	}

	if feed == "reels_media" {
		return Source{}, fmt.Errorf("feed '%s' is not supported as a source", feed)
	}

	if feedsWithArg[feed] && arg == "" {
		return Source{}, fmt.Errorf("feed '%s' requires an argument, as in '%s:<value>'", feed, feed)
	}

	if !feedsWithArg[feed] && arg != "" {
		return Source{}, fmt.Errorf("feed '%s' takes no argument", feed)
	}

	return Source{Feed: feed, Arg: arg}, nil
}

func (s Source) String() string {
	if s.Arg == "" {
		return s.Feed
	}

	return s.Feed + ":" + s.Arg
}

// Shape returns the response shape of the source's feed.
func (s Source) Shape() instagram.Shape {
	shape, _ := instagram.ShapeOf(s.Feed)
	return shape
}

// Fetch calls the source's feed endpoint.
func (s Source) Fetch(ctx context.Context, feeds instagram.FeedAPI) (types.Response, error) {
	switch s.Feed {
	case "liked":
		return feeds.FeedLiked(ctx)
	case "timeline":
		return feeds.FeedTimeline(ctx, nil)
	case "popular":
		return feeds.FeedPopular(ctx, nil)
	case "self":
		return feeds.SelfFeed(ctx)
	case "user":
		return feeds.UserFeed(ctx, s.Arg, nil)
	case "username":
		return feeds.UsernameFeed(ctx, s.Arg, nil)
	case "reels_tray":
		return feeds.ReelsTray(ctx, nil)
	case "reel":
		return feeds.UserReelMedia(ctx, s.Arg, nil)
	case "tag":
		return feeds.FeedTag(ctx, s.Arg, nil)
	case "story":
		return feeds.UserStoryFeed(ctx, s.Arg)
	case "location":
		return feeds.FeedLocation(ctx, s.Arg, nil)
	case "saved":
		return feeds.SavedFeed(ctx, nil)
	default:
		return nil, fmt.Errorf("unknown feed '%s'", s.Feed)
	}
}
