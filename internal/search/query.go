package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Query    string
	Types    []DocType
	Category string
	Limit    int
	Offset   int
}

type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

type Hit struct {
	Type       DocType           `json:"type"`
	ID         uint              `json:"id"`
	BookID     uint              `json:"book_id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Category   string            `json:"category,omitempty"`
	Username   string            `json:"username,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// ParseTypes maps the "type" query parameter onto document types. Unknown
// values are ignored; an empty result searches everything.
func ParseTypes(raw string) []DocType {
	var types []DocType
	for _, part := range strings.Split(raw, ",") {
		switch DocType(strings.TrimSpace(strings.ToLower(part))) {
		case DocTypeBook:
			types = append(types, DocTypeBook)
		case DocTypeThread:
			types = append(types, DocTypeThread)
		}
	}
	return types
}

func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	params.Limit = min(params.Limit, MaxLimit)
	params.Offset = max(params.Offset, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"type", "entity_id", "book_id", "name", "author", "category", "username"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("name")
	req.Highlight.AddField("author")
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"-created_at"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["type"].(string); ok {
			hit.Type = DocType(v)
		}
		if v, ok := h.Fields["entity_id"].(float64); ok {
			hit.ID = uint(v)
		}
		if v, ok := h.Fields["book_id"].(float64); ok {
			hit.BookID = uint(v)
		}
		hit.Title, _ = h.Fields["name"].(string)
		hit.Author, _ = h.Fields["author"].(string)
		hit.Category, _ = h.Fields["category"].(string)
		hit.Username, _ = h.Fields["username"].(string)

		for field, fragments := range h.Fragments {
			if len(fragments) == 0 {
				continue
			}
			if hit.Highlights == nil {
				hit.Highlights = make(map[string]string)
			}
			hit.Highlights[field] = fragments[0]
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// IDsOf returns the entity ids of hits of type t, in rank order.
func (r *Result) IDsOf(t DocType) []uint {
	ids := make([]uint, 0, len(r.Hits))
	for _, h := range r.Hits {
		if h.Type == t {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

func buildQuery(params Params) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		name := bleve.NewMatchQuery(q)
		name.SetField("name")
		name.SetBoost(3.0)

		author := bleve.NewMatchQuery(q)
		author.SetField("author")
		author.SetBoost(2.0)

		body := bleve.NewMatchQuery(q)
		body.SetField("body")

		info := bleve.NewMatchQuery(q)
		info.SetField("author_info")
		info.SetBoost(0.5)

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)

		text := []query.Query{name, author, body, info, fuzzy}
		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(string(t))
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	if params.Category != "" {
		cq := bleve.NewTermQuery(params.Category)
		cq.SetField("category")
		queries = append(queries, cq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
