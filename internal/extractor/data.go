package extractor

import "net/http"

// LinkSource names the markup a link was found in.
type LinkSource string

const (
	SourceAnchor      LinkSource = "a"
	SourceArea        LinkSource = "area"
	SourceLink        LinkSource = "link"
	SourceFrame       LinkSource = "frame"
	SourceEmbedded    LinkSource = "embedded"
	SourceMetaRefresh LinkSource = "meta_refresh"
	SourceForm        LinkSource = "form"
)

// Link is a raw, unresolved reference found in a document. GET links carry
// only Raw; POST form submissions also carry an encoded body.
type Link struct {
	Raw         string
	Method      string
	Body        []byte
	ContentType string
	Source      LinkSource
}

func getLink(raw string, source LinkSource) Link {
	return Link{Raw: raw, Method: http.MethodGet, Source: source}
}

// ExtractionResult holds the extraction outcome.
// Base is the raw <base href> value, or "" when the document has none.
type ExtractionResult struct {
	Base  string
	Links []Link
}
