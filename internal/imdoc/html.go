package imdoc

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML decodes the layout service's HTML intermediate format into a
// Document. Each top-level element carries data-page and data-bbox attributes
// assigned by the layout service; elements wrapped in class "image_wrapper"
// are figures.
func ParseHTML(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse intermediate html: %w", err)
	}

	doc := &Document{}
	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	if title := findElement(root, "title"); title != nil {
		doc.Title = strings.TrimSpace(textContent(title))
	}

	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		el, ok := decodeElement(n)
		if !ok {
			continue
		}
		doc.Elements = append(doc.Elements, el)
	}
	return doc, nil
}

func decodeElement(n *html.Node) (Element, bool) {
	el := Element{
		Page: attrInt(n, "data-page"),
		BBox: attrBBox(n, "data-bbox"),
	}

	switch {
	case attr(n, "class") == "image_wrapper":
		el.Kind = KindFigure
		el.Content = renderNode(n)
	case n.Data == "table":
		el.Kind = KindTable
		el.Content = renderNode(n)
	case len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6':
		el.Kind = KindHeading
		el.Content = strings.TrimSpace(textContent(n))
	case n.Data == "figcaption":
		el.Kind = KindCaption
		el.Content = strings.TrimSpace(textContent(n))
	default:
		el.Kind = KindParagraph
		el.Content = strings.TrimSpace(textContent(n))
	}

	if el.Kind != KindFigure && el.Content == "" {
		return Element{}, false
	}
	return el, true
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return textContent(n)
	}
	return sb.String()
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func attrInt(n *html.Node, key string) int {
	v, err := strconv.Atoi(attr(n, key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func attrBBox(n *html.Node, key string) BBox {
	parts := strings.Split(attr(n, key), ",")
	if len(parts) != 4 {
		return BBox{}
	}
	var b BBox
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}
		}
		b[i] = f
	}
	return b
}
