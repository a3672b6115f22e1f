package aggregator

import (
	"context"
	"testing"

	"github.com/nkcr/igfeed/instagram"
	"github.com/nkcr/igfeed/instagram/types"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	s, err := ParseSource("timeline")
	require.NoError(t, err)
	require.Equal(t, Source{Feed: "timeline"}, s)
	require.Equal(t, "timeline", s.String())
	require.Equal(t, instagram.ShapeFeedItems, s.Shape())

	s, err = ParseSource("tag:sunset")
	require.NoError(t, err)
	require.Equal(t, Source{Feed: "tag", Arg: "sunset"}, s)
	require.Equal(t, "tag:sunset", s.String())
	require.Equal(t, instagram.ShapeRanked, s.Shape())
}

func TestParseSourceFail(t *testing.T) {
	_, err := ParseSource("fake")
	require.EqualError(t, err, "unknown feed 'fake'")

	_, err = ParseSource("tag")
	require.EqualError(t, err, "feed 'tag' requires an argument, as in 'tag:<value>'")

	_, err = ParseSource("saved:x")
	require.EqualError(t, err, "feed 'saved' takes no argument")

	_, err = ParseSource("reels_media")
	require.EqualError(t, err, "feed 'reels_media' is not supported as a source")
}

func TestSourceFetch(t *testing.T) {
	feeds := &recordingFeeds{}

	sources := []string{"liked", "timeline", "popular", "self", "user:1",
		"username:jdoe", "reels_tray", "reel:2", "tag:t", "story:3",
		"location:4", "saved"}

	for _, str := range sources {
		s, err := ParseSource(str)
		require.NoError(t, err)

		_, err = s.Fetch(context.Background(), feeds)
		require.NoError(t, err)
	}

	require.Equal(t, []string{"liked", "timeline", "popular", "self", "user 1",
		"username jdoe", "reels_tray", "reel 2", "tag t", "story 3",
		"location 4", "saved"}, feeds.calls)

	_, err := Source{Feed: "fake"}.Fetch(context.Background(), feeds)
	require.EqualError(t, err, "unknown feed 'fake'")
}

// ----------------------------------------------------------------------------
// Utility functions

type recordingFeeds struct {
	instagram.FeedAPI
	calls []string
}

func (f *recordingFeeds) record(call string) (types.Response, error) {
	f.calls = append(f.calls, call)
	return types.Response{}, nil
}

func (f *recordingFeeds) FeedLiked(ctx context.Context) (types.Response, error) {
	return f.record("liked")
}

func (f *recordingFeeds) FeedTimeline(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.record("timeline")
}

func (f *recordingFeeds) FeedPopular(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.record("popular")
}

func (f *recordingFeeds) SelfFeed(ctx context.Context) (types.Response, error) {
	return f.record("self")
}

func (f *recordingFeeds) UserFeed(ctx context.Context, userID string, params *types.Params) (types.Response, error) {
	return f.record("user " + userID)
}

func (f *recordingFeeds) UsernameFeed(ctx context.Context, userName string, params *types.Params) (types.Response, error) {
	return f.record("username " + userName)
}

func (f *recordingFeeds) ReelsTray(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.record("reels_tray")
}

func (f *recordingFeeds) UserReelMedia(ctx context.Context, userID string, params *types.Params) (types.Response, error) {
	return f.record("reel " + userID)
}

func (f *recordingFeeds) FeedTag(ctx context.Context, tag string, params *types.Params) (types.Response, error) {
	return f.record("tag " + tag)
}

func (f *recordingFeeds) UserStoryFeed(ctx context.Context, userID string) (types.Response, error) {
	return f.record("story " + userID)
}

func (f *recordingFeeds) FeedLocation(ctx context.Context, locationID string, params *types.Params) (types.Response, error) {
	return f.record("location " + locationID)
}

func (f *recordingFeeds) SavedFeed(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.record("saved")
}
