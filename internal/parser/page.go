package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// page is one profile document plus its embedded JSON sources, decoded once.
type page struct {
	root *goquery.Selection
	now  time.Time

	payload    map[string]any
	payloadErr error

	business    map[string]any
	businessErr error
}

func newPage(doc *goquery.Document, now time.Time) *page {
	pg := &page{root: doc.Selection, now: now}
	pg.payload, pg.payloadErr = decodePayload(doc.Selection)
	pg.business, pg.businessErr = decodeLocalBusiness(doc.Selection)
	return pg
}

func decodePayload(root *goquery.Selection) (map[string]any, error) {
	raw, ok := root.Find("div#payload").First().Attr("data-payload")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

// decodeLocalBusiness returns the first JSON-LD object typed LocalBusiness.
func decodeLocalBusiness(root *goquery.Selection) (map[string]any, error) {
	var business map[string]any
	var firstErr error

	root.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to decode ld+json: %w", err)
			}
			return true
		}
		business = findLocalBusiness(data)
		return business == nil
	})

	if business != nil {
		return business, nil
	}
	return nil, firstErr
}

func findLocalBusiness(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if m := findLocalBusiness(item); m != nil {
				return m
			}
		}
	case map[string]any:
		if hasType(v["@type"], "LocalBusiness") {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findLocalBusiness(graph)
		}
	}
	return nil
}

func hasType(t any, want string) bool {
	switch v := t.(type) {
	case string:
		return v == want
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func jsonString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := jsonString(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	case map[string]any:
		for _, key := range []string{"url", "name", "description"} {
			if s, ok := jsonString(t[key]); ok {
				return s, true
			}
		}
	}
	return "", false
}

func jsonFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func payloadString(key string) strategy[string] {
	return strategy[string]{name: "payload." + key, run: func(pg *page) Result[string] {
		if pg.payloadErr != nil {
			return parseFailed[string]("%v", pg.payloadErr)
		}
		v, ok := lookup(pg.payload, key)
		if !ok {
			return absent[string]()
		}
		if s, ok := jsonString(v); ok {
			return found(s)
		}
		return parseFailed[string]("payload.%s has unexpected value %v", key, v)
	}}
}

func payloadFloat(key string) strategy[float64] {
	return strategy[float64]{name: "payload." + key, run: func(pg *page) Result[float64] {
		if pg.payloadErr != nil {
			return parseFailed[float64]("%v", pg.payloadErr)
		}
		v, ok := lookup(pg.payload, key)
		if !ok {
			return absent[float64]()
		}
		if f, ok := jsonFloat(v); ok {
			return found(f)
		}
		return parseFailed[float64]("payload.%s is not numeric: %v", key, v)
	}}
}

func businessString(path ...string) strategy[string] {
	name := "ld+json." + strings.Join(path, ".")
	return strategy[string]{name: name, run: func(pg *page) Result[string] {
		if pg.business == nil {
			if pg.businessErr != nil {
				return parseFailed[string]("%v", pg.businessErr)
			}
			return absent[string]()
		}
		v, ok := lookup(pg.business, path...)
		if !ok {
			return absent[string]()
		}
		if s, ok := jsonString(v); ok {
			return found(s)
		}
		return parseFailed[string]("%s has unexpected value %v", name, v)
	}}
}

func businessFloat(path ...string) strategy[float64] {
	name := "ld+json." + strings.Join(path, ".")
	return strategy[float64]{name: name, run: func(pg *page) Result[float64] {
		if pg.business == nil {
			if pg.businessErr != nil {
				return parseFailed[float64]("%v", pg.businessErr)
			}
			return absent[float64]()
		}
		v, ok := lookup(pg.business, path...)
		if !ok {
			return absent[float64]()
		}
		if f, ok := jsonFloat(v); ok {
			return found(f)
		}
		return parseFailed[float64]("%s is not numeric: %v", name, v)
	}}
}
