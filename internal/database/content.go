package database

import (
	"encoding/base64"
	"strings"
)

// ImageJPEGPrefix marks a persisted content column holding a JPEG image.
const ImageJPEGPrefix = "data:image/jpeg;base64,"

// ImageMIMEType is the only image type persisted; Telegram delivers photos
// as JPEG.
const ImageMIMEType = "image/jpeg"

// textEscape is prepended to text whose stored form would otherwise read as
// an image. Only runs of it directly followed by ImageJPEGPrefix are
// affected, so ordinary text is stored unchanged.
const textEscape = `\`

// Content is the payload of a message: either text or an inline JPEG image.
// The zero value is empty text.
type Content struct {
	text  string
	image []byte
	isImg bool
}

// TextContent returns a text payload.
func TextContent(s string) Content {
	return Content{text: s}
}

// ImageContent returns a JPEG image payload.
func ImageContent(data []byte) Content {
	return Content{image: data, isImg: true}
}

// IsImage reports whether the content carries an image.
func (c Content) IsImage() bool {
	return c.isImg
}

// Text returns the text payload, or "" for images.
func (c Content) Text() string {
	return c.text
}

// Image returns the image bytes and MIME type, or nil and "" for text.
func (c Content) Image() ([]byte, string) {
	if !c.isImg {
		return nil, ""
	}
	return c.image, ImageMIMEType
}

// Encode serializes the content for the persisted column.
func (c Content) Encode() string {
	if c.isImg {
		return ImageJPEGPrefix + base64.StdEncoding.EncodeToString(c.image)
	}
	if needsEscape(c.text) {
		return textEscape + c.text
	}
	return c.text
}

// DecodeContent parses a persisted column value. Values without the JPEG
// prefix, or whose payload is not valid base64, are text.
func DecodeContent(s string) Content {
	if !IsEncodedImage(s) {
		if strings.HasPrefix(s, textEscape) && needsEscape(s) {
			return TextContent(s[len(textEscape):])
		}
		return TextContent(s)
	}

	data, err := base64.StdEncoding.DecodeString(s[len(ImageJPEGPrefix):])
	if err != nil {
		return TextContent(s)
	}
	return ImageContent(data)
}

// IsEncodedImage reports whether a persisted column value is an image.
func IsEncodedImage(s string) bool {
	return strings.HasPrefix(s, ImageJPEGPrefix)
}

func needsEscape(s string) bool {
	return strings.HasPrefix(strings.TrimLeft(s, textEscape), ImageJPEGPrefix)
}
