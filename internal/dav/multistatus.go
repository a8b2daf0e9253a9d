package dav

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"

	"github.com/davfs/webdav-go/internal/urn"
)

// davNS is the WebDAV XML namespace.
const davNS = "DAV:"

// Multistatus document shape. A response may carry several propstat blocks
// (one per status); properties are merged across them when reading.
type multistatus struct {
	XMLName   xml.Name     `xml:"DAV: multistatus"`
	Responses []msResponse `xml:"DAV: response"`
}

type msResponse struct {
	Href     string       `xml:"DAV: href"`
	Propstat []msPropstat `xml:"DAV: propstat"`
}

type msPropstat struct {
	Status string `xml:"DAV: status"`
	Prop   msProp `xml:"DAV: prop"`
}

type msProp struct {
	CreationDate   string          `xml:"DAV: creationdate"`
	DisplayName    string          `xml:"DAV: displayname"`
	ContentLength  string          `xml:"DAV: getcontentlength"`
	LastModified   string          `xml:"DAV: getlastmodified"`
	ETag           string          `xml:"DAV: getetag"`
	ContentType    string          `xml:"DAV: getcontenttype"`
	ResourceType   *msResourceType `xml:"DAV: resourcetype"`
	QuotaAvailable string          `xml:"DAV: quota-available-bytes"`
	QuotaUsed      string          `xml:"DAV: quota-used-bytes"`
}

type msResourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// hrefPath extracts the unescaped path component of an href, which servers
// may return as an absolute URL or a bare path.
func hrefPath(href string) string {
	if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
		href = u.Path
	}

	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}

	if !strings.HasPrefix(href, urn.Separator) {
		href = urn.Separator + href
	}

	return href
}

// info merges the propstat blocks of a response into a ResourceInfo.
func (r *msResponse) info() ResourceInfo {
	info := ResourceInfo{Path: hrefPath(r.Href)}

	pick := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}

	for i := range r.Propstat {
		prop := &r.Propstat[i].Prop
		pick(&info.Created, prop.CreationDate)
		pick(&info.Name, prop.DisplayName)
		pick(&info.Modified, prop.LastModified)
		pick(&info.ETag, prop.ETag)
		pick(&info.ContentType, prop.ContentType)

		if info.Size == 0 && prop.ContentLength != "" {
			if size, err := strconv.ParseInt(strings.TrimSpace(prop.ContentLength), 10, 64); err == nil {
				info.Size = size
			}
		}

		if prop.ResourceType != nil && prop.ResourceType.Collection != nil {
			info.IsDir = true
		}
	}

	if info.IsDir && !strings.HasSuffix(info.Path, urn.Separator) {
		info.Path += urn.Separator
	}

	return info
}

// hasResourceType reports whether any propstat block carried a resourcetype
// element at all, which is mandatory for directory resolution.
func (r *msResponse) hasResourceType() bool {
	for i := range r.Propstat {
		if r.Propstat[i].Prop.ResourceType != nil {
			return true
		}
	}

	return false
}

// parseMultistatus decodes a multistatus body, dropping entries without an
// href (skipped, not an error).
func parseMultistatus(content []byte) (*multistatus, error) {
	var ms multistatus
	if err := xml.Unmarshal(content, &ms); err != nil {
		return nil, err
	}

	kept := ms.Responses[:0]

	for _, resp := range ms.Responses {
		if strings.TrimSpace(resp.Href) == "" {
			continue
		}

		kept = append(kept, resp)
	}

	ms.Responses = kept

	return &ms, nil
}

// parseListEntries extracts one ResourceInfo per response entry. Malformed
// XML is not fatal for listings: it yields an empty result.
func parseListEntries(content []byte) []ResourceInfo {
	ms, err := parseMultistatus(content)
	if err != nil {
		return nil
	}

	entries := make([]ResourceInfo, 0, len(ms.Responses))
	for i := range ms.Responses {
		entries = append(entries, ms.Responses[i].info())
	}

	return entries
}

// extractResponseForPath finds the single response entry matching path,
// attempting both host-prefixed and unprefixed href matching. A missing
// match is a not-found error; malformed XML here means the server does not
// speak multistatus for this action.
func extractResponseForPath(content []byte, path, hostname string) (*msResponse, error) {
	ms, err := parseMultistatus(content)
	if err != nil {
		return nil, &MethodError{Action: string(ActionInfo), Server: hostname}
	}

	prefix := ""
	if u, parseErr := url.Parse(hostname); parseErr == nil {
		prefix = u.Path
	}

	normalized := urn.NormalizePath(path)

	for i := range ms.Responses {
		href := ms.Responses[i].Href
		if urn.ComparePath(normalized, href) {
			return &ms.Responses[i], nil
		}

		stripped := hrefPath(href)
		if prefix != "" && strings.HasPrefix(stripped, prefix) {
			if urn.ComparePath(normalized, strings.TrimPrefix(stripped, prefix)) {
				return &ms.Responses[i], nil
			}
		}
	}

	return nil, notFound(path)
}

// parseFreeSpace extracts quota-available-bytes. A server that omits the
// node (or answers with something other than multistatus) does not support
// the free-space query.
func parseFreeSpace(content []byte, hostname string) (int64, error) {
	ms, err := parseMultistatus(content)
	if err != nil {
		return 0, &MethodError{Action: string(ActionFree), Server: hostname}
	}

	for i := range ms.Responses {
		for j := range ms.Responses[i].Propstat {
			if raw := strings.TrimSpace(ms.Responses[i].Propstat[j].Prop.QuotaAvailable); raw != "" {
				free, parseErr := strconv.ParseInt(raw, 10, 64)
				if parseErr != nil {
					return 0, &MethodError{Action: string(ActionFree), Server: hostname}
				}

				return free, nil
			}
		}
	}

	return 0, &MethodError{Action: string(ActionFree), Server: hostname}
}

// parsePropertyValue scans the prop blocks of a multistatus body for the
// first element whose local name matches name, namespace-agnostic, and
// returns its character data. Elements outside a DAV: prop block (href,
// status, and the rest of the protocol structure) are never candidates.
// The second return is false when no such element exists.
func parsePropertyValue(content []byte, name string) (string, bool) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	propDepth := 0
	depth := -1
	var value strings.Builder

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", false
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if depth >= 0 {
				depth++
				continue
			}

			if tok.Name.Local == "prop" && tok.Name.Space == davNS {
				propDepth++
				continue
			}

			if propDepth > 0 && tok.Name.Local == name {
				depth = 0
			}
		case xml.EndElement:
			if depth == 0 {
				return value.String(), true
			}

			if depth > 0 {
				depth--
				continue
			}

			if tok.Name.Local == "prop" && tok.Name.Space == davNS {
				propDepth--
			}
		case xml.CharData:
			if depth >= 0 {
				value.Write(tok)
			}
		}
	}
}

// buildFreeSpaceRequest creates the PROPFIND body querying quota properties.
func buildFreeSpaceRequest() []byte {
	return encodeDocument(element{
		name: "propfind",
		ns:   davNS,
		children: []element{{
			name: "prop",
			children: []element{
				{name: "quota-available-bytes"},
				{name: "quota-used-bytes"},
			},
		}},
	})
}

// buildPropertyRequest creates a PROPFIND body querying one property.
func buildPropertyRequest(prop Property) []byte {
	return encodeDocument(element{
		name: "propfind",
		ns:   davNS,
		children: []element{{
			name: "prop",
			children: []element{
				{name: prop.Name, ns: prop.Namespace},
			},
		}},
	})
}

// buildPropSetRequest creates a PROPPATCH body setting the given properties
// in one batch. Omitted values set an empty string.
func buildPropSetRequest(props []Property) []byte {
	children := make([]element, len(props))
	for i, prop := range props {
		children[i] = element{name: prop.Name, ns: prop.Namespace, text: prop.Value}
	}

	return encodeDocument(element{
		name: "propertyupdate",
		ns:   davNS,
		children: []element{{
			name: "set",
			children: []element{{
				name:     "prop",
				children: children,
			}},
		}},
	})
}

// element is a minimal XML tree node for request bodies. Property names are
// caller-supplied, so documents are assembled from tokens rather than
// static struct tags.
type element struct {
	name     string
	ns       string
	text     string
	children []element
}

// encodeDocument emits root as a standalone document with an XML
// declaration and UTF-8 encoding.
func encodeDocument(root element) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encodeElement(encoder, root)
	encoder.Flush()

	return buf.Bytes()
}

func encodeElement(encoder *xml.Encoder, el element) {
	start := xml.StartElement{Name: xml.Name{Local: el.name}}
	if el.ns != "" {
		start.Attr = []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: el.ns}}
	}

	encoder.EncodeToken(start)

	if el.text != "" {
		encoder.EncodeToken(xml.CharData(el.text))
	}

	for _, child := range el.children {
		encodeElement(encoder, child)
	}

	encoder.EncodeToken(xml.EndElement{Name: start.Name})
}
