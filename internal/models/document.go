package models

// Document is a pre-authored policy document offered for signature.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`
}

// DocumentSummary is the catalog listing entry for a document.
type DocumentSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{ID: d.ID, Name: d.Name, Title: d.Title}
}
