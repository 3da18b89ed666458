package domain

// Document is a paper held by the backend.
type Document struct {
	// ID is the backend's identifier for the paper.
	ID string

	// Title is the human-readable title.
	Title string

	// URL locates the PDF.
	URL string

	// PageCount is the number of pages, zero if unknown.
	PageCount int
}

// DocumentSnapshot is everything needed to render a document's overlay.
// It is fetched once when the document is opened.
type DocumentSnapshot struct {
	Document    Document
	Highlights  []Highlight
	Annotations []Annotation
}
