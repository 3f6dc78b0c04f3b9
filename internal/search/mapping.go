package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
// Priorities:
//  1. Full-text search on titles and authors with English stemming
//  2. Exact keyword matching for genre filters and facets
//  3. Numeric range queries on publication year
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Subjects - the archive's free-form keywords
	subjectsFieldMapping := bleve.NewTextFieldMapping()
	subjectsFieldMapping.Analyzer = en.AnalyzerName
	subjectsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("subjects", subjectsFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Genres - canonical taxonomy strings for faceting
	genresFieldMapping := bleve.NewTextFieldMapping()
	genresFieldMapping.Analyzer = keyword.Name
	genresFieldMapping.Store = true
	genresFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("genres", genresFieldMapping)

	genreSlugsFieldMapping := bleve.NewTextFieldMapping()
	genreSlugsFieldMapping.Analyzer = keyword.Name
	genreSlugsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("genre_slugs", genreSlugsFieldMapping)

	subgenreFieldMapping := bleve.NewTextFieldMapping()
	subgenreFieldMapping.Analyzer = keyword.Name
	subgenreFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("subgenre", subgenreFieldMapping)

	languageFieldMapping := bleve.NewTextFieldMapping()
	languageFieldMapping.Analyzer = keyword.Name
	languageFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("language", languageFieldMapping)

	// --- Numeric fields ---

	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("year", yearFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
