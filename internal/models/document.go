package models

// Presentation modes for a granted document
const (
	PresentationPaginated  = "paginated"
	PresentationStructured = "structured"
)

// Document is a read-only projection of edition metadata written by the
// publishing workflow. The core hands out StorageKey as an opaque reference;
// it never returns file bytes.
type Document struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	StorageKey string        `json:"storage_key"`
	PageCount  int           `json:"page_count"`
	Articles   []ArticleZone `json:"articles,omitempty"`
}

// ArticleZone is a structured-article region extracted from an edition page
type ArticleZone struct {
	Page     int     `json:"page"`
	Headline string  `json:"headline"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// DocumentPresentation is the tagged variant resolved once at validation time
// and threaded through the viewer: either plain paginated pages or a set of
// structured article zones.
type DocumentPresentation struct {
	Mode     string        `json:"mode"` // paginated | structured
	Articles []ArticleZone `json:"articles,omitempty"`
}

// Presentation resolves the variant for this document
func (d *Document) Presentation() DocumentPresentation {
	if len(d.Articles) > 0 {
		return DocumentPresentation{Mode: PresentationStructured, Articles: d.Articles}
	}
	return DocumentPresentation{Mode: PresentationPaginated}
}
