package extractor

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-spider/internal/metadata"
	"github.com/rohmanhakim/site-spider/pkg/failure"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Collect every raw reference a browser could follow or load
- Turn forms into requests when enabled

Links are returned exactly as written in the markup. Resolving them
against the page (or its <base href>) is the caller's job.
*/

type LinkExtractor struct {
	metadataSink metadata.MetadataSink
	processForms bool
	postForms    bool
}

func NewLinkExtractor(
	metadataSink metadata.MetadataSink,
	processForms bool,
	postForms bool,
) LinkExtractor {
	return LinkExtractor{
		metadataSink: metadataSink,
		processForms: processForms,
		postForms:    postForms,
	}
}

// attribute carrying the reference, per element
var linkAttributes = []struct {
	selector string
	attr     string
	source   LinkSource
}{
	{"a[href]", "href", SourceAnchor},
	{"area[href]", "href", SourceArea},
	{"link[href]", "href", SourceLink},
	{"frame[src]", "src", SourceFrame},
	{"iframe[src]", "src", SourceFrame},
	{"script[src]", "src", SourceEmbedded},
	{"img[src]", "src", SourceEmbedded},
	{"embed[src]", "src", SourceEmbedded},
	{"audio[src]", "src", SourceEmbedded},
	{"video[src]", "src", SourceEmbedded},
	{"source[src]", "src", SourceEmbedded},
	{"object[data]", "data", SourceEmbedded},
}

func (l *LinkExtractor) Extract(
	sourceUrl string,
	htmlByte []byte,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := l.extract(htmlByte)
	if err != nil {
		l.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"LinkExtractor.Extract",
			mapExtractionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceUrl),
			},
		)
		return ExtractionResult{}, err
	}
	return result, nil
}

func (l *LinkExtractor) extract(htmlByte []byte) (ExtractionResult, *ExtractionError) {
	root, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	doc := goquery.NewDocumentFromNode(root)

	var result ExtractionResult
	if base, ok := doc.Find("base[href]").First().Attr("href"); ok {
		result.Base = strings.TrimSpace(base)
	}

	seen := make(map[string]struct{})
	add := func(link Link) {
		key := link.Method + " " + link.Raw + " " + string(link.Body)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		result.Links = append(result.Links, link)
	}

	for _, la := range linkAttributes {
		doc.Find(la.selector).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(la.attr)
			if raw = strings.TrimSpace(raw); raw != "" {
				add(getLink(raw, la.source))
			}
		})
	}

	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return
		}
		content, _ := s.Attr("content")
		if target := metaRefreshTarget(content); target != "" {
			add(getLink(target, SourceMetaRefresh))
		}
	})

	if l.processForms {
		doc.Find("form").Each(func(_ int, s *goquery.Selection) {
			if link, ok := l.formLink(s); ok {
				add(link)
			}
		})
	}

	return result, nil
}

// metaRefreshTarget extracts the url from content="5; url=/next".
func metaRefreshTarget(content string) string {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if len(part) < 4 || !strings.EqualFold(part[:3], "url") {
			continue
		}
		rest := strings.TrimSpace(part[3:])
		if !strings.HasPrefix(rest, "=") {
			continue
		}
		return strings.Trim(strings.TrimSpace(rest[1:]), `'"`)
	}
	return ""
}

// formLink turns a form into the request submitting it with default values.
func (l *LinkExtractor) formLink(form *goquery.Selection) (Link, bool) {
	action, _ := form.Attr("action")
	action = strings.TrimSpace(action)
	method, _ := form.Attr("method")
	method = strings.ToUpper(strings.TrimSpace(method))

	query := encodeFormFields(form)

	switch method {
	case "", http.MethodGet:
		// a GET submission replaces the action's query
		if i := strings.IndexByte(action, '?'); i >= 0 {
			action = action[:i]
		}
		raw := action
		if query != "" {
			raw += "?" + query
		}
		return getLink(raw, SourceForm), true
	case http.MethodPost:
		if !l.postForms {
			return Link{}, false
		}
		return Link{
			Raw:         action,
			Method:      http.MethodPost,
			Body:        []byte(query),
			ContentType: "application/x-www-form-urlencoded",
			Source:      SourceForm,
		}, true
	default:
		return Link{}, false
	}
}

// encodeFormFields encodes the successful controls of a form in document order.
func encodeFormFields(form *goquery.Selection) string {
	var pairs []string
	addPair := func(name, value string) {
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(value))
	}

	form.Find("input[name], select[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		name, _ := s.Attr("name")

		switch goquery.NodeName(s) {
		case "textarea":
			addPair(name, s.Text())
		case "select":
			option := s.Find("option[selected]").First()
			if option.Length() == 0 {
				option = s.Find("option").First()
			}
			if option.Length() == 0 {
				return
			}
			value, ok := option.Attr("value")
			if !ok {
				value = strings.TrimSpace(option.Text())
			}
			addPair(name, value)
		default:
			inputType, _ := s.Attr("type")
			value, _ := s.Attr("value")
			switch strings.ToLower(inputType) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				if value == "" {
					value = "on"
				}
			}
			addPair(name, value)
		}
	})
	return strings.Join(pairs, "&")
}

// IsHTML reports whether a response should be parsed for links. An empty
// content type falls back to sniffing the body.
func IsHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}
