package apidoc

import (
	"regexp"
	"strings"
)

// Sentinels bracketing the marker block in a file analysis document.
const (
	StartMarker = "<!-- API_START -->"
	EndMarker   = "<!-- API_END -->"
)

// Outcome classifies what ParseMarker found.
type Outcome int

const (
	// MarkerAbsent means the document carries no start sentinel.
	MarkerAbsent Outcome = iota
	// MarkerNoAPI means the block declares that the file exposes nothing.
	MarkerNoAPI
	// MarkerHasAPI means the block declares interfaces.
	MarkerHasAPI
	// MarkerMalformed means a block exists but carries no yes/no declaration.
	MarkerMalformed
)

func (o Outcome) String() string {
	switch o {
	case MarkerNoAPI:
		return "no_api"
	case MarkerHasAPI:
		return "has_api"
	case MarkerMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Endpoint is one interface declared in a marker block or digest.
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

// Key is the identity used for counting: upper-case method plus normalized path.
func (e Endpoint) Key() string {
	return InterfaceKey(e.Method, e.Path)
}

// Block is the parsed marker block.
type Block struct {
	Outcome   Outcome
	Endpoints []Endpoint
	// Truncated is set when the closing sentinel was missing and the block
	// ran to the end of the document.
	Truncated bool
	Raw       string
}

// APIBearing reports whether the file should be treated as exposing interfaces.
func (b Block) APIBearing() bool {
	if b.Outcome == MarkerHasAPI {
		return true
	}
	return b.Outcome == MarkerMalformed && len(b.Endpoints) > 0
}

var (
	declarationPattern = regexp.MustCompile(`(?im)^\s*[-*]?\s*contains\s+api\s*[:：]\s*(yes|no|true|false)\b`)
	endpointPattern    = regexp.MustCompile(`^\s*[-*]\s*\[([A-Za-z][A-Za-z_-]*)\]\s+(\S+)(?:\s+-\s+(.*))?\s*$`)
)

// ParseMarker extracts the marker block from a file analysis document. The
// last start sentinel wins so that an example quoted earlier in the prose is
// not mistaken for the real block.
func ParseMarker(doc string) Block {
	start := strings.LastIndex(doc, StartMarker)
	if start < 0 {
		return Block{Outcome: MarkerAbsent}
	}
	body := doc[start+len(StartMarker):]
	block := Block{}
	if end := strings.Index(body, EndMarker); end >= 0 {
		body = body[:end]
	} else {
		block.Truncated = true
	}
	block.Raw = strings.TrimSpace(body)
	block.Endpoints = parseEndpoints(body)

	match := declarationPattern.FindStringSubmatch(body)
	if match == nil {
		block.Outcome = MarkerMalformed
		return block
	}
	switch strings.ToLower(match[1]) {
	case "yes", "true":
		block.Outcome = MarkerHasAPI
	default:
		block.Outcome = MarkerNoAPI
		block.Endpoints = nil
	}
	return block
}

// StripMarker removes the marker block, if any, from a document.
func StripMarker(doc string) string {
	start := strings.LastIndex(doc, StartMarker)
	if start < 0 {
		return doc
	}
	rest := doc[start:]
	if end := strings.Index(rest, EndMarker); end >= 0 {
		return strings.TrimRight(doc[:start], " \n") + "\n" + strings.TrimLeft(rest[end+len(EndMarker):], "\n")
	}
	return strings.TrimRight(doc[:start], " \n") + "\n"
}

func parseEndpoints(text string) []Endpoint {
	var out []Endpoint
	for _, line := range strings.Split(text, "\n") {
		match := endpointPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		out = append(out, Endpoint{
			Method:      strings.ToUpper(match[1]),
			Path:        strings.Trim(match[2], "`"),
			Description: strings.TrimSpace(match[3]),
		})
	}
	return out
}

// EncodeInfo renders endpoints as the digest stored per file in the
// checkpoint. DecodeInfo reverses it.
func EncodeInfo(endpoints []Endpoint) string {
	lines := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		line := "- [" + ep.Method + "] " + ep.Path
		if ep.Description != "" {
			line += " - " + ep.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DecodeInfo parses a digest produced by EncodeInfo. Lines that do not look
// like endpoints are ignored.
func DecodeInfo(info string) []Endpoint {
	return parseEndpoints(info)
}

var signaturePattern = regexp.MustCompile(`\(.*\)$`)

// InterfaceKey normalizes a method and path into a comparable identity:
// upper-case method, path without backticks, trailing punctuation or call
// signatures (tool_name(arg) becomes tool_name).
func InterfaceKey(method, path string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	path = strings.TrimSpace(strings.Trim(strings.TrimSpace(path), "`"))
	path = signaturePattern.ReplaceAllString(path, "")
	path = strings.TrimRight(path, ".,;:")
	return method + " " + path
}
