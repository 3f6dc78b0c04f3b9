package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a catalog search.
type Params struct {
	Query string // User's search text; empty matches everything

	// Filters
	Genres   []string // Exact canonical genre match, OR across values
	Subgenre string   // Exact subgenre match
	Language string   // Exact language code match
	MinYear  int
	MaxYear  int

	// Pagination
	Limit  int
	Offset int

	// Options
	IncludeFacets bool // Include genre facet counts
	Highlight     bool // Include match highlighting
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		IncludeFacets: true,
		Highlight:     true,
	}
}

// Result is the outcome of one search.
type Result struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []Hit        `json:"hits"`
	Genres []FacetCount `json:"genres,omitempty"`
}

// Hit is a single search result.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Genres     []string          `json:"genres,omitempty"`
	Subgenre   string            `json:"subgenre,omitempty"`
	Year       int               `json:"year,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// FacetCount is one facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a catalog search.
func (s *SearchIndex) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	if params.Query == "" {
		// Browsing without a query: stable title order beats score order.
		searchRequest.SortBy([]string{"title"})
	}

	if params.IncludeFacets {
		searchRequest.AddFacet("genres", bleve.NewFacetRequest("genres", 36))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{"id", "title", "author", "genres", "subgenre", "year"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if a, ok := hit.Fields["author"].(string); ok {
			h.Author = a
		}
		if sg, ok := hit.Fields["subgenre"].(string); ok {
			h.Subgenre = sg
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			h.Year = int(y)
		}
		// A stored multi-value field comes back as a string for one
		// value and []interface{} for several.
		switch g := hit.Fields["genres"].(type) {
		case string:
			h.Genres = []string{g}
		case []interface{}:
			for _, v := range g {
				if gs, ok := v.(string); ok {
					h.Genres = append(h.Genres, gs)
				}
			}
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		if facet, ok := searchResult.Facets["genres"]; ok {
			for _, term := range facet.Terms.Terms() {
				result.Genres = append(result.Genres, FacetCount{
					Value: term.Term,
					Count: term.Count,
				})
			}
		}
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		// Title match with highest boost.
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		// Description and archive subjects, lower weight.
		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)
		textQueries = append(textQueries, descMatch)

		subjectsMatch := bleve.NewMatchQuery(params.Query)
		subjectsMatch.SetField("subjects")
		textQueries = append(textQueries, subjectsMatch)

		// Fuzzy matching for typo tolerance on title.
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars).
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Genres) > 0 {
		genreQueries := make([]query.Query, len(params.Genres))
		for i, g := range params.Genres {
			gq := bleve.NewTermQuery(g)
			gq.SetField("genres")
			genreQueries[i] = gq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(genreQueries...))
	}

	if params.Subgenre != "" {
		sq := bleve.NewTermQuery(params.Subgenre)
		sq.SetField("subgenre")
		queries = append(queries, sq)
	}

	if params.Language != "" {
		lq := bleve.NewTermQuery(params.Language)
		lq.SetField("language")
		queries = append(queries, lq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		min := float64(params.MinYear)
		max := float64(params.MaxYear)
		if params.MaxYear == 0 {
			max = 3000
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("year")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
