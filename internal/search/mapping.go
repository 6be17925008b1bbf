package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	text := func(field string, store bool) {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		fm.Store = store
		fm.IncludeTermVectors = store
		doc.AddFieldMappingsAt(field, fm)
	}
	text("name", true)
	text("author", true)
	text("body", false)
	text("author_info", false)

	for _, field := range []string{"type", "category", "username"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		doc.AddFieldMappingsAt(field, fm)
	}

	for _, field := range []string{"entity_id", "book_id", "created_at"} {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		doc.AddFieldMappingsAt(field, fm)
	}

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
