package mcp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/providers"
	"github.com/upb/publication-rag/services/publication"
	"go.uber.org/zap/zaptest"
)

func addInput() AddPublicationInput {
	return AddPublicationInput{
		Title:              "Backend Engineer",
		Description:        "Build APIs",
		Summary:            "Go services",
		CompanyDescription: "Fintech",
		Brand:              "Acme",
		Function:           "Engineering",
		EmploymentLevel:    "Senior",
		EducationLevel:     "Bachelor",
		CompanyName:        "Acme GmbH",
		City:               "Berlin",
		SalaryMinimum:      60000,
		SalaryMaximum:      80000,
		MinimumWeeklyHours: 35,
		MaximumWeeklyHours: 40,
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func newTestServer(t *testing.T, svc PublicationService) *Server {
	t.Helper()
	s, err := NewServer(svc, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestServer_handleAddPublication(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the new id", func(t *testing.T) {
		svc := new(mockPublicationService)
		id := uuid.New()
		in := addInput()
		benefits := "Remote budget"
		in.Benefits = &benefits

		svc.On("Ingest", ctx, mock.MatchedBy(func(f models.PublicationFields) bool {
			return f.Title == "Backend Engineer" && f.Benefits != nil && *f.Benefits == benefits && f.Requirements == nil
		})).Return(models.PublicationRef{ID: id, Title: in.Title}, nil)

		res, out, err := newTestServer(t, svc).handleAddPublication(ctx, nil, in)
		require.NoError(t, err)
		assert.Nil(t, out)
		assert.False(t, res.IsError)
		assert.Equal(t, "Successfully added publication 'Backend Engineer' with ID: "+id.String(), textOf(t, res))
		svc.AssertExpectations(t)
	})

	t.Run("validation failure is a tool error", func(t *testing.T) {
		svc := new(mockPublicationService)
		verr := services.NewValidationError("invalid publication", map[string]string{"title": "title is required"})
		svc.On("Ingest", ctx, mock.Anything).Return(models.PublicationRef{}, verr)

		res, _, err := newTestServer(t, svc).handleAddPublication(ctx, nil, AddPublicationInput{})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "invalid publication")
		assert.Contains(t, textOf(t, res), "title: title is required")
	})
}

func TestServer_handleQueryPublications(t *testing.T) {
	ctx := context.Background()

	t.Run("renders answer and results", func(t *testing.T) {
		svc := new(mockPublicationService)
		result := &publication.AnswerResult{
			Answer: "Acme is hiring.",
			Publications: []models.RankedResult{
				{
					Publication: models.Publication{PublicationFields: addInput().fields()},
					Distance:    0.123456,
				},
			},
		}
		svc.On("Answer", ctx, "go jobs", 3).Return(result, nil)

		res, _, err := newTestServer(t, svc).handleQueryPublications(ctx, nil, QueryPublicationsInput{Query: "go jobs", TopK: 3})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, "Acme is hiring.\n\n"+
			"Found 1 matching publications:\n\n"+
			"- Backend Engineer at Acme GmbH (Berlin)\n"+
			"  Salary: 60000.00 - 80000.00\n"+
			"  Match Distance: 0.1235\n\n", textOf(t, res))
	})

	t.Run("zero topK defers to the service default", func(t *testing.T) {
		svc := new(mockPublicationService)
		svc.On("Answer", ctx, "go jobs", 0).Return(&publication.AnswerResult{Answer: "none"}, nil)

		res, _, err := newTestServer(t, svc).handleQueryPublications(ctx, nil, QueryPublicationsInput{Query: "go jobs"})
		require.NoError(t, err)
		assert.Equal(t, "none\n\nFound 0 matching publications:\n\n", textOf(t, res))
		svc.AssertExpectations(t)
	})

	t.Run("topK out of range never reaches the service", func(t *testing.T) {
		svc := new(mockPublicationService)

		for _, k := range []int{-1, 11} {
			res, _, err := newTestServer(t, svc).handleQueryPublications(ctx, nil, QueryPublicationsInput{Query: "go", TopK: k})
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), "topK")
		}
		svc.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider failure is a tool error", func(t *testing.T) {
		svc := new(mockPublicationService)
		provErr := providers.NewProviderError("openai", "rate_limited", "too many requests", 429, true, nil)
		svc.On("Answer", ctx, "go jobs", 0).Return(nil, services.WrapExternal("failed to generate answer", provErr))

		res, _, err := newTestServer(t, svc).handleQueryPublications(ctx, nil, QueryPublicationsInput{Query: "go jobs"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "failed to generate answer")
	})
}
