package messages

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var jsonNull = []byte(`null`)

// ContentOrParts is either a simple string or a list of content parts.
type ContentOrParts struct {
	Content string        // Raw string content, used when the message is just text
	Parts   []ContentPart // Typed parts, used for structured content
	_       struct{}      // require keyed usage
}

// Text flattens the content into plain text. Structured content joins the text of
// every part with a single space; parts without text contribute an empty string.
func (c ContentOrParts) Text() string {
	if c.Parts == nil {
		return c.Content
	}
	texts := make([]string, len(c.Parts))
	for i, part := range c.Parts {
		if tp, ok := part.(TextContentPart); ok {
			texts[i] = tp.Text
		}
	}
	return strings.Join(texts, " ")
}

// IsZero reports whether neither content nor parts are set.
func (c ContentOrParts) IsZero() bool {
	return c.Content == "" && len(c.Parts) == 0
}

// MarshalJSON encodes Content as a JSON string when set, otherwise the parts array.
func (c ContentOrParts) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		if c.Content == "" {
			return jsonNull, nil
		}
		return json.Marshal(c.Content)
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON accepts a string or an array of parts. Unknown part types are kept
// as RawContentPart so that re-encoding does not lose them.
func (c *ContentOrParts) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	switch {
	case jv.IsArray():
		aj := jv.Array()
		parts := make([]ContentPart, len(aj))
		for idx, ajv := range aj {
			switch tpe := ajv.Get("type").String(); tpe {
			case "text":
				var part TextContentPart
				if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
					return fmt.Errorf("invalid text part at %d: %w", idx, err)
				}
				parts[idx] = part
			case "image_url":
				var part ImageContentPart
				if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
					return fmt.Errorf("invalid image part at %d: %w", idx, err)
				}
				parts[idx] = part
			default:
				parts[idx] = RawContentPart{Type: tpe, Raw: []byte(ajv.Raw)}
			}
		}
		c.Parts = parts
	case jv.Type == gjson.Null:
		c.Content = ""
	default:
		c.Content = jv.String()
	}
	return nil
}

// ContentPart marks structs usable as a part of ContentOrParts.
type ContentPart interface {
	contentPart()
}

// Text creates a TextContentPart.
func Text(text string) TextContentPart {
	return TextContentPart{Text: text}
}

// TextContentPart is a text-only content part.
type TextContentPart struct {
	Text string   `json:"text"`
	_    struct{} // require keyed usage
}

func (TextContentPart) contentPart() {}

var tcpJSON = []byte(`{"type":"text"}`)

func (t TextContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(tcpJSON, "text", t.Text)
}

func (t *TextContentPart) UnmarshalJSON(input []byte) error {
	text := gjson.GetBytes(input, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.Text = text.String()
	return nil
}

// Image creates an ImageContentPart.
func Image(url string) ImageContentPart {
	return ImageContentPart{URL: url}
}

// ImageContentPart references an image by URL. It carries no text.
type ImageContentPart struct {
	URL string   `json:"url"`
	_   struct{} // require keyed usage
}

func (ImageContentPart) contentPart() {}

var icpJSON = []byte(`{"type":"image_url"}`)

func (i ImageContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(icpJSON, "image_url.url", i.URL)
}

// UnmarshalJSON accepts both {"image_url":{"url":...}} and {"image_url":"..."}.
func (i *ImageContentPart) UnmarshalJSON(input []byte) error {
	uri := gjson.GetBytes(input, "image_url")
	if !uri.Exists() {
		return errors.New("missing required field 'image_url'")
	}
	if uri.IsObject() {
		i.URL = uri.Get("url").String()
		return nil
	}
	i.URL = uri.String()
	return nil
}

// RawContentPart preserves a part of a type this package does not model.
type RawContentPart struct {
	Type string
	Raw  []byte
}

func (RawContentPart) contentPart() {}

func (r RawContentPart) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return jsonNull, nil
	}
	return r.Raw, nil
}
