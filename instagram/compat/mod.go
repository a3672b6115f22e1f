// Package compat maps media objects of the private API onto the field set of
// the public API, so consumers can handle both the same way.
package compat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/nkcr/igfeed/instagram/types"
)

const linkFormat = "https://www.instagram.com/p/%s/"

// media_type values of the private API
const (
	mediaTypeVideo    = 2
	mediaTypeCarousel = 8
)

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// compatKeys are the media keys kept when incompatible keys are dropped.
var compatKeys = map[string]bool{
	"id":             true,
	"code":           true,
	"link":           true,
	"type":           true,
	"filter":         true,
	"tags":           true,
	"caption":        true,
	"created_time":   true,
	"taken_at":       true,
	"user":           true,
	"users_in_photo": true,
	"likes":          true,
	"comments":       true,
	"user_has_liked": true,
	"images":         true,
	"videos":         true,
	"carousel_media": true,
	"location":       true,
	"attribution":    true,
}

var compatUserKeys = map[string]bool{
	"id":              true,
	"username":        true,
	"full_name":       true,
	"profile_picture": true,
	"is_verified":     true,
}

// NewMediaPatcher returns a new media patcher
func NewMediaPatcher() MediaPatcher {
	return MediaPatcher{}
}

// MediaPatcher adds the public API fields to private API media objects.
//
// - implements instagram.Patcher
type MediaPatcher struct{}

// Media implements instagram.Patcher. It mutates media in place.
func (p MediaPatcher) Media(media types.Media, dropIncompatKeys bool) {
	if code, ok := media["code"].(string); ok {
		media["link"] = fmt.Sprintf(linkFormat, code)
	}

	if takenAt, found := media["taken_at"]; found {
		media["created_time"] = types.FormatValue(jsonNumber(takenAt))
	}

	media["type"] = mediaType(media)

	if _, found := media["filter"]; !found {
		media["filter"] = ""
	}

	patchCaption(media)

	media["likes"] = map[string]interface{}{
		"count": jsonNumber(media["like_count"]),
	}
	media["comments"] = map[string]interface{}{
		"count": jsonNumber(media["comment_count"]),
	}

	if _, found := media["user_has_liked"]; !found {
		media["user_has_liked"] = media["has_liked"] == true
	}

	user := types.AsObject(media["user"])
	if user != nil {
		patchUser(user, dropIncompatKeys)
	}

	media["users_in_photo"] = usersInPhoto(media, dropIncompatKeys)

	versions := types.Response(types.AsObject(media["image_versions2"]))
	images := imagesOf(versions.Objects("candidates"))
	if images != nil {
		media["images"] = images
	}

	videos := imagesOf(types.AsObjects(media["video_versions"]))
	if videos != nil {
		media["videos"] = videos
	}

	for _, child := range types.AsObjects(media["carousel_media"]) {
		// children have no code, link and user of their own
		if _, found := child["code"]; !found {
			child["code"] = media["code"]
		}

		p.Media(child, dropIncompatKeys)
	}

	if dropIncompatKeys {
		dropKeys(media, compatKeys)
	}
}

func mediaType(media types.Media) string {
	switch jsonNumber(media["media_type"]) {
	case mediaTypeVideo:
		return "video"
	case mediaTypeCarousel:
		return "carousel"
	default:
		return "image"
	}
}

func patchCaption(media types.Media) {
	caption := types.AsObject(media["caption"])
	if caption == nil {
		media["tags"] = []string{}
		return
	}

	text, _ := caption["text"].(string)

	tags := []string{}
	for _, match := range hashtagRe.FindAllStringSubmatch(text, -1) {
		tags = append(tags, match[1])
	}

	media["tags"] = tags

	if createdAt, found := caption["created_at"]; found {
		caption["created_time"] = types.FormatValue(jsonNumber(createdAt))
	}

	if user := types.AsObject(caption["user"]); user != nil {
		caption["from"] = user
	}
}

func patchUser(user map[string]interface{}, dropIncompatKeys bool) {
	switch pk := user["pk"].(type) {
	case string:
		user["id"] = pk
	case json.Number:
		user["id"] = pk.String()
	case float64:
		user["id"] = types.FormatValue(jsonNumber(pk))
	}

	if pic, found := user["profile_pic_url"]; found {
		user["profile_picture"] = pic
	}

	if dropIncompatKeys {
		dropKeys(user, compatUserKeys)
	}
}

func usersInPhoto(media types.Media, dropIncompatKeys bool) []interface{} {
	res := []interface{}{}

	tags := types.AsObject(media["usertags"])
	for _, tag := range types.Response(tags).Objects("in") {
		user := types.AsObject(tag["user"])
		if user != nil {
			patchUser(user, dropIncompatKeys)
		}

		entry := map[string]interface{}{
			"user": user,
		}

		if pos, ok := tag["position"].([]interface{}); ok && len(pos) == 2 {
			entry["position"] = map[string]interface{}{
				"x": pos[0],
				"y": pos[1],
			}
		}

		res = append(res, entry)
	}

	return res
}

// imagesOf picks the thumbnail, low and standard resolution from a list of
// candidates, based on their width. It returns nil if there is none.
func imagesOf(candidates []map[string]interface{}) map[string]interface{} {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]map[string]interface{}, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return jsonNumber(sorted[i]["width"]) < jsonNumber(sorted[j]["width"])
	})

	version := func(c map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"url":    c["url"],
			"width":  jsonNumber(c["width"]),
			"height": jsonNumber(c["height"]),
		}
	}

	standard := sorted[len(sorted)-1]
	low := sorted[len(sorted)/2]
	thumbnail := sorted[0]

	return map[string]interface{}{
		"standard_resolution": version(standard),
		"low_resolution":      version(low),
		"thumbnail":           version(thumbnail),
	}
}

func dropKeys(obj map[string]interface{}, keep map[string]bool) {
	for key := range obj {
		if !keep[key] {
			delete(obj, key)
		}
	}
}

// jsonNumber returns v as an int64. Decoded JSON numbers are json.Number or
// float64.
func jsonNumber(v interface{}) int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}

		return i
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}
