package types

// Response is the loosely typed JSON mapping returned by the API. Its shape
// depends on the endpoint; accessors treat absent or mistyped keys as empty.
type Response map[string]interface{}

// Media is one photo, video or carousel object, opaque to the feed endpoints.
type Media map[string]interface{}

// Has tells if key is present and not null.
func (r Response) Has(key string) bool {
	v, found := r[key]
	return found && v != nil
}

// Object returns the nested object stored at key, or nil.
func (r Response) Object(key string) map[string]interface{} {
	return AsObject(r[key])
}

// Objects returns the objects of the sequence stored at key. Elements that are
// not objects are skipped.
func (r Response) Objects(key string) []map[string]interface{} {
	return AsObjects(r[key])
}

// AsObject returns v as a JSON object, or nil.
func AsObject(v interface{}) map[string]interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return val
	case Media:
		return val
	case Response:
		return val
	default:
		return nil
	}
}

// AsObjects returns the object elements of the JSON array v.
func AsObjects(v interface{}) []map[string]interface{} {
	switch val := v.(type) {
	case []interface{}:
		res := make([]map[string]interface{}, 0, len(val))
		for _, e := range val {
			obj := AsObject(e)
			if obj != nil {
				res = append(res, obj)
			}
		}

		return res
	case []map[string]interface{}:
		return val
	case []Media:
		res := make([]map[string]interface{}, len(val))
		for i, m := range val {
			res[i] = m
		}

		return res
	default:
		return nil
	}
}
