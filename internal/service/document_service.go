package service

import (
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSign/internal/documents"
	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

type DocumentService struct {
	docs *documents.Catalog
}

func NewDocumentService(docs *documents.Catalog) *DocumentService {
	return &DocumentService{docs: docs}
}

func (s *DocumentService) List() []models.DocumentSummary {
	return s.docs.List()
}

func (s *DocumentService) Get(id string) (*models.Document, error) {
	if !documents.ValidID(id) {
		return nil, invalid("document id %q must match ^[a-z_]+$", id)
	}
	doc, err := s.docs.Get(id)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}
