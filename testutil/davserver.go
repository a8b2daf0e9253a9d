// Package testutil provides an in-memory fake WebDAV server for package
// tests. It implements just enough of the protocol surface for the client:
// HEAD existence checks, Depth 0/1 PROPFIND multistatus answers, GET/PUT
// bodies, MKCOL, DELETE, COPY/MOVE with Destination headers, PROPPATCH
// property storage, and LOCK/UNLOCK token handling.
package testutil

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Resource is one node in the fake server's tree.
type Resource struct {
	Content  string
	Modified time.Time
	IsDir    bool
	Props    map[string]string
}

// Server is an httptest-pluggable fake WebDAV handler. All access is
// serialized; tests may drive it from concurrent transfers.
type Server struct {
	mu          sync.Mutex
	resources   map[string]*Resource
	calls       []string
	lastHeaders map[string]http.Header

	// rawModified maps paths to literal getlastmodified strings, used to
	// exercise unparsable timestamps.
	rawModified map[string]string

	// FailStatus, when non-zero, makes every request answer that status.
	FailStatus int
	// LockToken is returned on LOCK requests.
	LockToken string
}

// NewServer returns a fake server containing only the root directory.
func NewServer() *Server {
	return &Server{
		resources: map[string]*Resource{
			"/": {IsDir: true, Modified: time.Now()},
		},
		lastHeaders: make(map[string]http.Header),
		rawModified: make(map[string]string),
		LockToken:   "<opaquelocktoken:deadbeef>",
	}
}

// key normalizes a request path for tree lookup.
func key(p string) string {
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}

	p = strings.TrimSuffix(p, "/")
	if p == "" {
		p = "/"
	}

	return p
}

// AddDir creates a directory node, including missing ancestors.
func (s *Server) AddDir(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addDirLocked(key(path))
}

func (s *Server) addDirLocked(k string) {
	if k != "/" {
		s.addDirLocked(parentKey(k))
	}

	if _, ok := s.resources[k]; !ok {
		s.resources[k] = &Resource{IsDir: true, Modified: time.Now()}
	}
}

// AddFile creates a file node with the given content and modified time,
// including missing ancestor directories.
func (s *Server) AddFile(path, content string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(path)
	s.addDirLocked(parentKey(k))
	s.resources[k] = &Resource{Content: content, Modified: modified}
}

// SetModified overrides the raw modified value by replacing the time; use
// AddFileRawModified for unparsable values.
func (s *Server) SetModified(path string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.resources[key(path)]; ok {
		res.Modified = modified
	}
}

// SetRawModified makes the server report the literal value for the path's
// getlastmodified property.
func (s *Server) SetRawModified(path, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rawModified[key(path)] = value
}

// SetProp seeds a property on an existing node. Prefixed names (for
// example "D:quota-available-bytes") are emitted verbatim in multistatus
// answers, so they resolve in the DAV: namespace.
func (s *Server) SetProp(path, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.resources[key(path)]
	if !ok {
		return
	}

	if res.Props == nil {
		res.Props = make(map[string]string)
	}

	res.Props[name] = value
}

// Exists reports whether a node is present.
func (s *Server) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.resources[key(path)]

	return ok
}

// Content returns a file node's body, or "" when absent.
func (s *Server) Content(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.resources[key(path)]; ok {
		return res.Content
	}

	return ""
}

// Prop returns a stored dead property value.
func (s *Server) Prop(path, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.resources[key(path)]; ok {
		return res.Props[name]
	}

	return ""
}

// Calls returns the "METHOD path" log of every request seen.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.calls...)
}

// CallsFor returns the logged calls with the given method.
func (s *Server) CallsFor(method string) []string {
	var out []string

	for _, call := range s.Calls() {
		if strings.HasPrefix(call, method+" ") {
			out = append(out, call)
		}
	}

	return out
}

// LastHeaders returns the headers of the most recent request with the
// given method.
func (s *Server) LastHeaders(method string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastHeaders[method]
}

func parentKey(k string) string {
	idx := strings.LastIndex(k, "/")
	if idx <= 0 {
		return "/"
	}

	return k[:idx]
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	s.lastHeaders[r.Method] = r.Header.Clone()

	if s.FailStatus != 0 {
		w.WriteHeader(s.FailStatus)
		return
	}

	k := key(r.URL.Path)
	res := s.resources[k]

	switch r.Method {
	case http.MethodHead:
		if res == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if res == nil || res.IsDir {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		io.WriteString(w, res.Content)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.addDirLocked(parentKey(k))
		s.resources[k] = &Resource{Content: string(body), Modified: time.Now()}
		w.WriteHeader(http.StatusCreated)
	case "MKCOL":
		if res != nil {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.resources[k] = &Resource{IsDir: true, Modified: time.Now()}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if res == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		s.deleteSubtree(k)
		w.WriteHeader(http.StatusNoContent)
	case "PROPFIND":
		s.servePropfind(w, r, k, res)
	case "PROPPATCH":
		s.serveProppatch(w, r, k, res)
	case "COPY", "MOVE":
		s.serveCopyMove(w, r, k, res)
	case "LOCK":
		if res == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Lock-Token", s.LockToken)
		w.WriteHeader(http.StatusOK)
	case "UNLOCK":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) deleteSubtree(k string) {
	for path := range s.resources {
		if path == k || strings.HasPrefix(path, k+"/") {
			delete(s.resources, path)
		}
	}
}

func (s *Server) children(k string) []string {
	prefix := k + "/"
	if k == "/" {
		prefix = "/"
	}

	var out []string

	for path := range s.resources {
		if path == k || !strings.HasPrefix(path, prefix) {
			continue
		}

		if strings.Contains(path[len(prefix):], "/") {
			continue
		}

		out = append(out, path)
	}

	sort.Strings(out)

	return out
}

func (s *Server) servePropfind(w http.ResponseWriter, r *http.Request, k string, res *Resource) {
	if res == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<D:multistatus xmlns:D="DAV:">`)
	s.writeResponse(&b, k, res)

	if res.IsDir && r.Header.Get("Depth") != "0" {
		for _, child := range s.children(k) {
			s.writeResponse(&b, child, s.resources[child])
		}
	}

	b.WriteString(`</D:multistatus>`)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	io.WriteString(w, b.String())
}

func (s *Server) writeResponse(b *strings.Builder, k string, res *Resource) {
	href := k
	resourceType := ""

	if res.IsDir {
		if href != "/" {
			href += "/"
		}

		resourceType = "<D:collection/>"
	}

	modified := res.Modified.UTC().Format(http.TimeFormat)
	if raw, ok := s.rawModified[k]; ok {
		modified = raw
	}

	name := k[strings.LastIndex(k, "/")+1:]
	if name == "" {
		name = "/"
	}

	fmt.Fprintf(b, `<D:response><D:href>%s</D:href><D:propstat><D:prop>`+
		`<D:displayname>%s</D:displayname>`+
		`<D:resourcetype>%s</D:resourcetype>`+
		`<D:getcontentlength>%d</D:getcontentlength>`+
		`<D:getlastmodified>%s</D:getlastmodified>`+
		`<D:getetag>"etag-%s"</D:getetag>`,
		href, name, resourceType, len(res.Content), modified, name)

	for propName, value := range res.Props {
		fmt.Fprintf(b, "<%s>%s</%s>", propName, value, propName)
	}

	b.WriteString(`</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>`)
}

// proppatch request body shape.
type propertyUpdate struct {
	XMLName xml.Name `xml:"DAV: propertyupdate"`
	Set     struct {
		Prop struct {
			Inner []rawProp `xml:",any"`
		} `xml:"DAV: prop"`
	} `xml:"DAV: set"`
}

type rawProp struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (s *Server) serveProppatch(w http.ResponseWriter, r *http.Request, k string, res *Resource) {
	if res == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, _ := io.ReadAll(r.Body)

	var update propertyUpdate
	if err := xml.Unmarshal(body, &update); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if res.Props == nil {
		res.Props = make(map[string]string)
	}

	for _, prop := range update.Set.Prop.Inner {
		res.Props[prop.XMLName.Local] = prop.Value
	}

	w.WriteHeader(http.StatusMultiStatus)
}

func (s *Server) serveCopyMove(w http.ResponseWriter, r *http.Request, k string, res *Resource) {
	if res == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	dest, err := url.Parse(r.Header.Get("Destination"))
	if err != nil || dest.Path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	destKey := key(dest.Path)

	for path, node := range s.resources {
		if path != k && !strings.HasPrefix(path, k+"/") {
			continue
		}

		copied := *node
		s.resources[destKey+strings.TrimPrefix(path, k)] = &copied
	}

	if r.Method == "MOVE" {
		s.deleteSubtree(k)
	}

	w.WriteHeader(http.StatusCreated)
}
