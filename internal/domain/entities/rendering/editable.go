package rendering

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const editablePrefix = "<!--#storyblok#"

// Editable returns the data attributes the visual editor uses to locate a blok.
// It is empty when the blok carries no parsable _editable comment.
func Editable(blok json.RawMessage) map[string]string {
	raw := gjson.GetBytes(blok, "_editable").String()
	if !strings.HasPrefix(raw, editablePrefix) {
		return map[string]string{}
	}

	payload := strings.TrimSuffix(strings.TrimPrefix(raw, editablePrefix), "-->")
	if !gjson.Valid(payload) {
		return map[string]string{}
	}

	options := gjson.Parse(payload)
	return map[string]string{
		"data-blok-c":   payload,
		"data-blok-uid": options.Get("id").String() + "-" + options.Get("uid").String(),
	}
}
