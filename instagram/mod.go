package instagram

import (
	"context"
	"fmt"

	"github.com/nkcr/igfeed/instagram/types"
)

// FeedAPI defines the feed endpoints of the private API. Optional parameters
// are passed as a *types.Params, nil meaning none. Errors come unchanged from
// the Caller.
type FeedAPI interface {
	FeedLiked(ctx context.Context) (types.Response, error)
	FeedTimeline(ctx context.Context, params *types.Params) (types.Response, error)
	FeedPopular(ctx context.Context, params *types.Params) (types.Response, error)
	UserFeed(ctx context.Context, userID string, params *types.Params) (types.Response, error)
	SelfFeed(ctx context.Context) (types.Response, error)
	UsernameFeed(ctx context.Context, userName string, params *types.Params) (types.Response, error)
	ReelsTray(ctx context.Context, params *types.Params) (types.Response, error)
	UserReelMedia(ctx context.Context, userID string, params *types.Params) (types.Response, error)
	ReelsMedia(ctx context.Context, userIDs []interface{}, params *types.Params) (types.Response, error)
	FeedTag(ctx context.Context, tag string, params *types.Params) (types.Response, error)
	UserStoryFeed(ctx context.Context, userID string) (types.Response, error)
	FeedLocation(ctx context.Context, locationID string, params *types.Params) (types.Response, error)
	SavedFeed(ctx context.Context, params *types.Params) (types.Response, error)
}

// Caller defines the request primitive shared by every endpoint. It takes
// care of authentication, signing and transport. When params is nil the
// request carries no body. Unsigned requests skip the signing wrapper.
type Caller interface {
	CallAPI(ctx context.Context, endpoint string, params *types.Params, unsigned bool) (types.Response, error)
}

// Patcher defines the compatibility patch applied in place to media objects.
type Patcher interface {
	Media(media types.Media, dropIncompatKeys bool)
}

// NewFeedEndpoints returns the feed endpoints bound to a session. The patcher
// may be nil if the session never enables AutoPatch.
func NewFeedEndpoints(session types.Session, caller Caller, patcher Patcher) FeedAPI {
	return &FeedEndpoints{
		session: session,
		caller:  caller,
		patcher: patcher,
	}
}

// FeedEndpoints implements the feed endpoints on top of a Caller.
//
// - implements instagram.FeedAPI
type FeedEndpoints struct {
	session types.Session
	caller  Caller
	patcher Patcher
}

// timelineDefaults are the parameters always sent with the timeline feed.
type timelineDefaults struct {
	UUID            string `url:"_uuid"`
	CSRFToken       string `url:"_csrftoken"`
	IsPrefetch      string `url:"is_prefetch"`
	IsPullToRefresh string `url:"is_pull_to_refresh"`
	PhoneID         string `url:"phone_id"`
	TimezoneOffset  int    `url:"timezone_offset"`
}

// FeedLiked implements instagram.FeedAPI
func (f *FeedEndpoints) FeedLiked(ctx context.Context) (types.Response, error) {
	return f.get(ctx, "feed/liked/", ShapeItems)
}

// FeedTimeline implements instagram.FeedAPI. To get a fresh timeline, mark
// media as seen with the "seen_posts" parameter, a comma separated list of
// media IDs.
func (f *FeedEndpoints) FeedTimeline(ctx context.Context, params *types.Params) (types.Response, error) {
	all, err := types.ParamsOf(timelineDefaults{
		UUID:            f.session.UUID,
		CSRFToken:       f.session.CSRFToken,
		IsPrefetch:      "0",
		IsPullToRefresh: "0",
		PhoneID:         f.session.PhoneID,
		TimezoneOffset:  f.session.TimezoneOffset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline defaults: %v", err)
	}

	all.Merge(params)

	res, err := f.caller.CallAPI(ctx, "feed/timeline/", all, true)
	if err != nil {
		return nil, err
	}

	f.patch(res, ShapeFeedItems)

	return res, nil
}

// FeedPopular implements instagram.FeedAPI
func (f *FeedEndpoints) FeedPopular(ctx context.Context, params *types.Params) (types.Response, error) {
	all := types.P(
		"people_teaser_supported", "1",
		"rank_token", f.session.RankToken(),
		"ranked_content", "true",
	)
	all.Merge(params)

	return f.get(ctx, "feed/popular/?"+all.Encode(), ShapeItems)
}

// UserFeed implements instagram.FeedAPI. Pagination goes through the "max_id"
// and "min_timestamp" parameters.
func (f *FeedEndpoints) UserFeed(ctx context.Context, userID string, params *types.Params) (types.Response, error) {
	all := types.P(
		"rank_token", f.session.RankToken(),
		"ranked_content", "true",
	)
	all.Merge(params)

	endpoint := fmt.Sprintf("feed/user/%s/?%s", userID, all.Encode())

	return f.get(ctx, endpoint, ShapeItems)
}

// SelfFeed implements instagram.FeedAPI
func (f *FeedEndpoints) SelfFeed(ctx context.Context) (types.Response, error) {
	return f.UserFeed(ctx, f.session.AuthenticatedUserID, nil)
}

// UsernameFeed implements instagram.FeedAPI
func (f *FeedEndpoints) UsernameFeed(ctx context.Context, userName string, params *types.Params) (types.Response, error) {
	endpoint := withQuery(fmt.Sprintf("feed/user/%s/username/", userName), params)
	return f.get(ctx, endpoint, ShapeItems)
}

// ReelsTray implements instagram.FeedAPI
func (f *FeedEndpoints) ReelsTray(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.get(ctx, withQuery("feed/reels_tray/", params), ShapeTray)
}

// UserReelMedia implements instagram.FeedAPI
func (f *FeedEndpoints) UserReelMedia(ctx context.Context, userID string, params *types.Params) (types.Response, error) {
	endpoint := withQuery(fmt.Sprintf("feed/user/%s/reel_media/", userID), params)
	return f.get(ctx, endpoint, ShapeItems)
}

// ReelsMedia implements instagram.FeedAPI. User IDs may be of any type, they
// are sent as strings.
func (f *FeedEndpoints) ReelsMedia(ctx context.Context, userIDs []interface{}, params *types.Params) (types.Response, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = types.FormatValue(id)
	}

	all := types.P("user_ids", ids)
	all.Merge(params)

	res, err := f.caller.CallAPI(ctx, "feed/reels_media/", all, false)
	if err != nil {
		return nil, err
	}

	f.patch(res, ShapeReels)

	return res, nil
}

// FeedTag implements instagram.FeedAPI
func (f *FeedEndpoints) FeedTag(ctx context.Context, tag string, params *types.Params) (types.Response, error) {
	endpoint := withQuery(fmt.Sprintf("feed/tag/%s/", tag), params)
	return f.get(ctx, endpoint, ShapeRanked)
}

// UserStoryFeed implements instagram.FeedAPI. The response also holds the
// user's current broadcast, if live.
func (f *FeedEndpoints) UserStoryFeed(ctx context.Context, userID string) (types.Response, error) {
	return f.get(ctx, fmt.Sprintf("feed/user/%s/story/", userID), ShapeReel)
}

// FeedLocation implements instagram.FeedAPI
func (f *FeedEndpoints) FeedLocation(ctx context.Context, locationID string, params *types.Params) (types.Response, error) {
	endpoint := withQuery(fmt.Sprintf("feed/location/%s/", locationID), params)
	return f.get(ctx, endpoint, ShapeRanked)
}

// SavedFeed implements instagram.FeedAPI
func (f *FeedEndpoints) SavedFeed(ctx context.Context, params *types.Params) (types.Response, error) {
	return f.get(ctx, withQuery("feed/saved/", params), ShapeSaved)
}

// get performs a parameterless call and patches the response.
func (f *FeedEndpoints) get(ctx context.Context, endpoint string, shape Shape) (types.Response, error) {
	res, err := f.caller.CallAPI(ctx, endpoint, nil, false)
	if err != nil {
		return nil, err
	}

	f.patch(res, shape)

	return res, nil
}

// patch applies the compatibility patch to every media of res, if enabled.
func (f *FeedEndpoints) patch(res types.Response, shape Shape) {
	if !f.session.AutoPatch || f.patcher == nil {
		return
	}

	shape.Walk(res, func(m types.Media) {
		f.patcher.Media(m, f.session.DropIncompatKeys)
	})
}

// withQuery appends the encoded params to endpoint, only if there are any.
func withQuery(endpoint string, params *types.Params) string {
	if params.Len() == 0 {
		return endpoint
	}

	return endpoint + "?" + params.Encode()
}

// ShapeOf returns the response shape of the named feed operation.
func ShapeOf(feed string) (Shape, error) {
	switch feed {
	case "liked", "popular", "user", "self", "username", "reel":
		return ShapeItems, nil
	case "timeline":
		return ShapeFeedItems, nil
	case "reels_tray":
		return ShapeTray, nil
	case "reels_media":
		return ShapeReels, nil
	case "tag", "location":
		return ShapeRanked, nil
	case "story":
		return ShapeReel, nil
	case "saved":
		return ShapeSaved, nil
	default:
		return 0, fmt.Errorf("unknown feed '%s'", feed)
	}
}
