// Package notiontest provides an in-memory stand-in for the parts of the
// Notion API the job database uses: database query, page create and page
// update.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type page struct {
	id         string
	created    time.Time
	properties map[string]map[string]any
}

// Server records pages in memory. Point a notion.Client at it by setting the
// base URL in its settings to Server.URL.
type Server struct {
	*httptest.Server

	// PageSize caps results per query response, to exercise pagination.
	PageSize int

	mu       sync.Mutex
	pages    []*page
	seq      int
	now      func() time.Time
	failures []failure
	calls    map[string]int
}

// Len is the number of stored pages.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

type failure struct {
	status  int
	code    string
	message string
}

func NewServer() *Server {
	s := &Server{
		PageSize: 100,
		now:      time.Now,
		calls:    make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/databases/{id}/query", s.handleQuery)
	mux.HandleFunc("POST /v1/pages", s.handleCreate)
	mux.HandleFunc("PATCH /v1/pages/{id}", s.handleUpdate)
	s.Server = httptest.NewServer(mux)
	return s
}

// FailNext makes the next request fail with a Notion error body.
func (s *Server) FailNext(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, code: code, message: message})
}

// Calls returns how many requests hit the route named "query", "create" or
// "update".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// AddPage stores a row directly. props use Notion's response shapes.
func (s *Server) AddPage(created time.Time, props map[string]map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("page-%04d", s.seq)
	s.pages = append(s.pages, &page{id: id, created: created, properties: props})
	return id
}

// Property returns the stored value of one property of a page.
func (s *Server) Property(id, name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.id == id {
			return p.properties[name]
		}
	}
	return nil
}

func (s *Server) begin(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	s.calls[route]++
	var f *failure
	if len(s.failures) > 0 {
		f = &s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if f != nil {
		writeJSON(w, f.status, map[string]any{
			"object":  "error",
			"status":  f.status,
			"code":    f.code,
			"message": f.message,
		})
		return false
	}
	return true
}

type queryBody struct {
	Filter      map[string]any   `json:"filter"`
	Sorts       []map[string]any `json:"sorts"`
	StartCursor string           `json:"start_cursor"`
	PageSize    int              `json:"page_size"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "query") {
		return
	}
	var q queryBody
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"object": "error", "status": 400, "code": "invalid_json", "message": err.Error()})
		return
	}

	s.mu.Lock()
	var matched []*page
	for _, p := range s.pages {
		if matches(p, q.Filter) {
			matched = append(matched, p)
		}
	}
	s.mu.Unlock()

	for _, srt := range q.Sorts {
		prop, _ := srt["property"].(string)
		desc := srt["direction"] == "descending"
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := dateStart(matched[i], prop), dateStart(matched[j], prop)
			if desc {
				return a > b
			}
			return a < b
		})
	}

	size := s.PageSize
	if q.PageSize > 0 && q.PageSize < size {
		size = q.PageSize
	}
	start := 0
	if q.StartCursor != "" {
		start, _ = strconv.Atoi(q.StartCursor)
	}
	end := min(start+size, len(matched))
	if start > end {
		start = end
	}

	results := make([]map[string]any, 0, end-start)
	for _, p := range matched[start:end] {
		results = append(results, s.render(p))
	}
	var next any
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(matched),
		"next_cursor": next,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "create") {
		return
	}
	var body struct {
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"object": "error", "status": 400, "code": "invalid_json", "message": err.Error()})
		return
	}

	p := &page{created: s.now().UTC(), properties: normalize(body.Properties)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.id = fmt.Sprintf("page-%04d", s.seq)
	s.pages = append(s.pages, p)
	writeJSON(w, http.StatusOK, s.render(p))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, "update") {
		return
	}
	id := r.PathValue("id")
	var body struct {
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"object": "error", "status": 400, "code": "invalid_json", "message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.id != id {
			continue
		}
		for k, v := range normalize(body.Properties) {
			p.properties[k] = v
		}
		writeJSON(w, http.StatusOK, s.render(p))
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"object":  "error",
		"status":  404,
		"code":    "object_not_found",
		"message": "Could not find page with ID: " + id + ".",
	})
}

func (s *Server) render(p *page) map[string]any {
	return map[string]any{
		"object":           "page",
		"id":               p.id,
		"created_time":     p.created.Format(time.RFC3339),
		"last_edited_time": p.created.Format(time.RFC3339),
		"parent":           map[string]any{"type": "database_id", "database_id": "db"},
		"archived":         false,
		"url":              "https://www.notion.so/" + strings.ReplaceAll(p.id, "-", ""),
		"properties":       p.properties,
	}
}

// normalize turns request-shaped properties into response shapes: each
// rich text fragment gets its plain_text and every property its type.
func normalize(props map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(props))
	for name, prop := range props {
		np := make(map[string]any, len(prop)+1)
		for k, v := range prop {
			switch k {
			case "type":
			case "id":
				np[k] = v
			case "title", "rich_text":
				np[k] = withPlainText(v)
				np["type"] = k
			case "date":
				np[k] = withNotionDates(v)
				np["type"] = k
			default:
				np[k] = v
				np["type"] = k
			}
		}
		out[name] = np
	}
	return out
}

func withPlainText(v any) any {
	items, _ := v.([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		m["type"] = "text"
		if text, ok := m["text"].(map[string]any); ok {
			m["plain_text"], _ = text["content"].(string)
		}
	}
	return items
}

// notionDateTime is the timestamp shape Notion sends back, always with
// milliseconds and a numeric offset.
const notionDateTime = "2006-01-02T15:04:05.000-07:00"

// withNotionDates rewrites date starts and ends as Notion would echo them.
// Bare dates are kept as they are.
func withNotionDates(v any) any {
	d, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, k := range []string{"start", "end"} {
		s, _ := d[k].(string)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			d[k] = t.Format(notionDateTime)
		}
	}
	return d
}

func matches(p *page, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	name, _ := filter["property"].(string)
	prop := p.properties[name]

	for kind, raw := range filter {
		if kind == "property" {
			continue
		}
		cond, _ := raw.(map[string]any)
		switch kind {
		case "url":
			got, _ := prop["url"].(string)
			if want, ok := cond["equals"].(string); ok && got != want {
				return false
			}
		case "status", "select":
			opt, _ := prop[kind].(map[string]any)
			got, _ := opt["name"].(string)
			if want, ok := cond["equals"].(string); ok && got != want {
				return false
			}
		case "date":
			if _, ok := cond["is_not_empty"]; ok && dateStart(p, name) == "" {
				return false
			}
		}
	}
	return true
}

func dateStart(p *page, name string) string {
	d, _ := p.properties[name]["date"].(map[string]any)
	start, _ := d["start"].(string)
	return start
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
