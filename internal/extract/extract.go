// Package extract turns HTML fragments into plain text for analysis.
//
// Known limitations:
//   - Text nodes are joined with spaces, so a word split across inline
//     elements ("<b>جم</b>يل") becomes two tokens.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	dropSelector  = "script, style, noscript, template, iframe"
	blockSelector = "p, li, blockquote, h1, h2, h3, h4, h5, h6, td, dd, figcaption"
)

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find(dropSelector).Remove()
	return doc, nil
}

// Text returns the visible text of html with whitespace collapsed.
func Text(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	return textOf(doc.Selection), nil
}

// Blocks returns the text of each innermost block element (paragraphs,
// list items, headings, cells) in document order, skipping empty ones.
// Documents without block elements yield their whole text as one block.
func Blocks(html string) ([]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if t := textOf(s); t != "" {
			blocks = append(blocks, t)
		}
	})

	if len(blocks) == 0 {
		if t := textOf(doc.Selection); t != "" {
			blocks = append(blocks, t)
		}
	}
	return blocks, nil
}

func textOf(s *goquery.Selection) string {
	var parts []string
	collect(s, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collect(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			if t := strings.TrimSpace(node.Text()); t != "" {
				*parts = append(*parts, t)
			}
			return
		}
		collect(node, parts)
	})
}
