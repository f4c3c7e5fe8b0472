package entity

import (
	"encoding/json"
	"fmt"
)

// MediaType classifies a content record by the kind of assets it bundles.
type MediaType int

const (
	MediaTypeUnset MediaType = iota
	MediaTypeVideo
	MediaTypeImage
	MediaTypeAudio
	MediaTypeMixed
)

var mediaTypeNames = map[MediaType]string{
	MediaTypeUnset: "",
	MediaTypeVideo: "video",
	MediaTypeImage: "image",
	MediaTypeAudio: "audio",
	MediaTypeMixed: "mixed",
}

func (t MediaType) String() string {
	if name, ok := mediaTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("MediaType(%d)", int(t))
}

// ParseMediaType maps the wire names used by content resolvers onto the
// closed enum. The empty string parses to MediaTypeUnset.
func ParseMediaType(s string) (MediaType, error) {
	for t, name := range mediaTypeNames {
		if s == name {
			return t, nil
		}
	}

	return MediaTypeUnset, fmt.Errorf("unknown media type: %q", s)
}

func (t MediaType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *MediaType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseMediaType(s)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}
