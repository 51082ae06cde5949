package services

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// allowedTags are the elements kept by SanitizeHTML. Attributes are only
// kept on links.
var allowedTags = map[string]bool{
	"p": true, "br": true, "strong": true, "em": true,
	"ul": true, "ol": true, "li": true, "h3": true, "h4": true, "a": true,
}

// droppedContentTags are removed together with everything inside them.
var droppedContentTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true,
	"embed": true, "noscript": true, "template": true, "textarea": true,
	"select": true, "title": true, "head": true, "svg": true, "math": true,
}

var allowedLinkTargets = map[string]bool{
	"_blank": true, "_self": true, "_parent": true, "_top": true,
}

// SanitizeHTML keeps only allow-listed elements and link attributes.
// Disallowed elements are unwrapped, keeping their text. Unsafe hrefs are
// dropped. The output is well nested.
func SanitizeHTML(input string) string {
	var (
		out     strings.Builder
		open    []string
		skipTag string
		skip    int
	)

	z := html.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		if skip > 0 {
			switch {
			case tt == html.StartTagToken && tok.Data == skipTag:
				skip++
			case tt == html.EndTagToken && tok.Data == skipTag:
				skip--
			}
			continue
		}

		switch tt {
		case html.TextToken:
			out.WriteString(html.EscapeString(tok.Data))

		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedContentTags[tok.Data] {
				if tt == html.StartTagToken {
					skipTag = tok.Data
					skip = 1
				}
				continue
			}
			if !allowedTags[tok.Data] {
				continue
			}
			writeStartTag(&out, tok)
			if tok.Data != "br" && tt == html.StartTagToken {
				open = append(open, tok.Data)
			} else if tok.Data != "br" {
				out.WriteString("</" + tok.Data + ">")
			}

		case html.EndTagToken:
			if !allowedTags[tok.Data] || tok.Data == "br" {
				continue
			}
			idx := lastIndexOf(open, tok.Data)
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				out.WriteString("</" + open[i] + ">")
			}
			open = open[:idx]
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		out.WriteString("</" + open[i] + ">")
	}
	return out.String()
}

func writeStartTag(out *strings.Builder, tok html.Token) {
	out.WriteString("<" + tok.Data)
	if tok.Data == "a" {
		blank := false
		for _, attr := range tok.Attr {
			value := strings.TrimSpace(attr.Val)
			switch attr.Key {
			case "href":
				if !isSafeHref(value) {
					continue
				}
			case "title", "rel":
			case "target":
				if !allowedLinkTargets[value] {
					continue
				}
				blank = value == "_blank"
			default:
				continue
			}
			out.WriteString(" " + attr.Key + `="` + html.EscapeString(value) + `"`)
		}
		if blank && !hasAttr(tok, "rel") {
			out.WriteString(` rel="noopener noreferrer"`)
		}
	}
	out.WriteString(">")
}

// isSafeHref allows http, https, mailto and relative references.
func isSafeHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	default:
		return false
	}
}

func hasAttr(tok html.Token, key string) bool {
	for _, attr := range tok.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func lastIndexOf(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}
