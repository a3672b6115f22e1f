package instagram

import (
	"testing"

	"github.com/nkcr/igfeed/instagram/types"
	"github.com/stretchr/testify/require"
)

func TestShapeCollectReels(t *testing.T) {
	res := types.Response{
		"reels": map[string]interface{}{
			"2": map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "c"},
			}},
			"1": map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "b"},
			}},
			"3": "not a reel",
		},
		"reels_media": []interface{}{
			map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "a"},
			}},
		},
	}

	medias := ShapeReels.Collect(res)
	require.Equal(t, []types.Media{{"id": "a"}, {"id": "b"}, {"id": "c"}}, medias)
}

func TestShapeCollectEmpty(t *testing.T) {
	shapes := []Shape{ShapeItems, ShapeFeedItems, ShapeTray, ShapeReels,
		ShapeRanked, ShapeReel, ShapeSaved}

	for _, shape := range shapes {
		require.Empty(t, shape.Collect(types.Response{}), shape.String())
		require.Empty(t, shape.Collect(nil), shape.String())
	}
}

// Empty wrapped objects are skipped.
func TestShapeCollectEmptyWrapped(t *testing.T) {
	res := types.Response{
		"feed_items": []interface{}{
			map[string]interface{}{"media_or_ad": map[string]interface{}{}},
		},
		"items": []interface{}{
			map[string]interface{}{"media": nil},
		},
		"reel": map[string]interface{}{},
	}

	require.Empty(t, ShapeFeedItems.Collect(res))
	require.Empty(t, ShapeSaved.Collect(res))
	require.Empty(t, ShapeReel.Collect(res))
}

func TestShapeString(t *testing.T) {
	require.Equal(t, "feed_items", ShapeFeedItems.String())
	require.Equal(t, "saved", ShapeSaved.String())
	require.Equal(t, "unknown", Shape(99).String())
}

func TestShapeOf(t *testing.T) {
	expected := map[string]Shape{
		"liked":       ShapeItems,
		"popular":     ShapeItems,
		"user":        ShapeItems,
		"self":        ShapeItems,
		"username":    ShapeItems,
		"reel":        ShapeItems,
		"timeline":    ShapeFeedItems,
		"reels_tray":  ShapeTray,
		"reels_media": ShapeReels,
		"tag":         ShapeRanked,
		"location":    ShapeRanked,
		"story":       ShapeReel,
		"saved":       ShapeSaved,
	}

	for feed, shape := range expected {
		s, err := ShapeOf(feed)
		require.NoError(t, err)
		require.Equal(t, shape, s, feed)
	}

	_, err := ShapeOf("fake")
	require.EqualError(t, err, "unknown feed 'fake'")
}
