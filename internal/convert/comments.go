package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/woozymasta/speckle2geojson/internal/geometry"
	"github.com/woozymasta/speckle2geojson/internal/scene"
)

// Comment is a thread pinned to a position in the model.
type Comment struct {
	Position *scene.Node    `yaml:"-" json:"-"`
	Items    []CommentItem  `yaml:"items" json:"items"`
	Point    *CommentAnchor `yaml:"position,omitempty" json:"position,omitempty"`
}

// CommentAnchor is a bare position used when the thread is loaded from a file.
type CommentAnchor struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// CommentItem is one message of a thread.
type CommentItem struct {
	Author      string   `yaml:"author" json:"author"`
	Date        string   `yaml:"date" json:"date"` // e.g. 2024-08-25T13:52:50.562Z
	Text        string   `yaml:"text" json:"text"`
	Attachments []string `yaml:"attachments,omitempty" json:"attachments,omitempty"`
}

// shapes decodes the thread position through the geometry decoder.
// Untyped positions with x/y are treated as points.
func (c Comment) shapes() ([]geometry.Shape, error) {
	switch {
	case c.Position != nil && c.Position.Type != "":
		return geometry.Decode(c.Position)
	case c.Position != nil:
		x, okX := c.Position.Float("x")
		y, okY := c.Position.Float("y")
		if !okX || !okY {
			return nil, fmt.Errorf("comment position without x/y")
		}
		z, _ := c.Position.Float("z")
		return geometry.DecodeElement(geometry.Point{X: x, Y: y, Z: z})
	case c.Point != nil:
		return geometry.DecodeElement(geometry.Point{X: c.Point.X, Y: c.Point.Y, Z: c.Point.Z})
	}
	return nil, fmt.Errorf("comment has no position")
}

// commentDateLayout is how thread dates are rendered.
const commentDateLayout = "2006-01-02 15:04:05"

// FormatCommentDate turns "2024-08-25T13:52:50.562Z" into "2024-08-25 13:52:50".
// Unparsable dates are returned unchanged.
func FormatCommentDate(raw string) string {
	s := strings.ReplaceAll(raw, "T", " ")
	s = strings.ReplaceAll(s, "Z", "")
	s, _, _ = strings.Cut(s, ".")

	t, err := time.Parse(commentDateLayout, s)
	if err != nil {
		return raw
	}
	return t.Format(commentDateLayout)
}

// RenderThread renders a thread into display text and the attachment list.
func RenderThread(items []CommentItem) (string, []string) {
	var sb strings.Builder
	urls := make([]string, 0)

	for _, item := range items {
		fmt.Fprintf(&sb, "<b>%s</b> at %s: <br> &emsp; %s<br><br>", item.Author, FormatCommentDate(item.Date), item.Text)
		urls = append(urls, item.Attachments...)
	}
	return sb.String(), urls
}
