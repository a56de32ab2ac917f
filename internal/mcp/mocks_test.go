package mcp

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/services/publication"
)

type mockPublicationService struct {
	mock.Mock
}

func (m *mockPublicationService) Ingest(ctx context.Context, fields models.PublicationFields) (models.PublicationRef, error) {
	args := m.Called(ctx, fields)
	return args.Get(0).(models.PublicationRef), args.Error(1)
}

func (m *mockPublicationService) Answer(ctx context.Context, query string, topK int) (*publication.AnswerResult, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publication.AnswerResult), args.Error(1)
}
