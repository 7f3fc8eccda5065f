// Package routes maps URL fragments to console views.
package routes

import (
	"fmt"
	"net/url"
	"strings"
)

// View names.
const (
	ViewJobs           = "jobs"
	ViewUpload         = "upload"
	ViewSearch         = "search"
	ViewJobDetail      = "job"
	ViewCameras        = "cameras"
	ViewViolenceDetect = "violence-detection"
	ViewViolenceList   = "violence-list"
)

// View is a resolved route.
type View struct {
	Name   string            `json:"name"`
	Title  string            `json:"title"`
	Params map[string]string `json:"params,omitempty"`
}

type route struct {
	name     string
	title    string
	segments []string
}

// Table is an ordered list of fragment patterns. A pattern segment written
// as {name} captures that segment into the view's params.
type Table struct {
	routes   []route
	fallback string
}

// Default returns the console's route table.
func Default() *Table {
	t := &Table{fallback: ViewJobs}
	t.Add(ViewJobs, "Jobs", "/")
	t.Add(ViewUpload, "Upload video", "/upload")
	t.Add(ViewSearch, "Search", "/search")
	t.Add(ViewJobDetail, "Job detail", "/job/{id}")
	t.Add(ViewCameras, "Cameras", "/cameras")
	t.Add(ViewViolenceDetect, "Violence detection", "/violence-detection")
	t.Add(ViewViolenceList, "Violence incidents", "/violence-list")
	return t
}

// Add registers a view under pattern.
func (t *Table) Add(name, title, pattern string) {
	t.routes = append(t.routes, route{name: name, title: title, segments: split(pattern)})
}

// Resolve matches a fragment such as "#/job/42". Unknown fragments resolve
// to the fallback view.
func (t *Table) Resolve(fragment string) View {
	segs := split(trimFragment(fragment))
	for _, r := range t.routes {
		if params, ok := r.match(segs); ok {
			return View{Name: r.name, Title: r.title, Params: params}
		}
	}
	for _, r := range t.routes {
		if r.name == t.fallback {
			return View{Name: r.name, Title: r.title}
		}
	}
	return View{Name: t.fallback}
}

// Path builds the fragment for a view. Missing params are an error.
func (t *Table) Path(name string, params map[string]string) (string, error) {
	for _, r := range t.routes {
		if r.name != name {
			continue
		}
		out := make([]string, 0, len(r.segments))
		for _, seg := range r.segments {
			if key, ok := placeholder(seg); ok {
				v := params[key]
				if v == "" {
					return "", fmt.Errorf("route %s: missing param %q", name, key)
				}
				out = append(out, url.PathEscape(v))
				continue
			}
			out = append(out, seg)
		}
		return "#/" + strings.Join(out, "/"), nil
	}
	return "", fmt.Errorf("unknown route %q", name)
}

func (r route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(r.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range r.segments {
		if key, ok := placeholder(seg); ok {
			v, err := url.PathUnescape(segs[i])
			if err != nil || v == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[key] = v
			continue
		}
		if seg != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func placeholder(seg string) (string, bool) {
	if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

func trimFragment(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	fragment = strings.TrimPrefix(fragment, "#")
	if i := strings.IndexByte(fragment, '?'); i >= 0 {
		fragment = fragment[:i]
	}
	return fragment
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
