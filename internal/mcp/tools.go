package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/publication"
	"github.com/upb/publication-rag/utils"
	"go.uber.org/zap"
)

// AddPublicationInput is the input schema for the add_publication tool.
type AddPublicationInput struct {
	Title              string  `json:"title" jsonschema:"the job title"`
	Description        string  `json:"description" jsonschema:"the job description"`
	Summary            string  `json:"summary" jsonschema:"a brief summary of the job"`
	CompanyDescription string  `json:"companyDescription" jsonschema:"description of the company"`
	Brand              string  `json:"brand" jsonschema:"company brand"`
	Function           string  `json:"function" jsonschema:"job function or category"`
	EmploymentLevel    string  `json:"employmentLevel" jsonschema:"employment level, e.g. Junior or Senior"`
	EducationLevel     string  `json:"educationLevel" jsonschema:"required education level"`
	CompanyName        string  `json:"companyName" jsonschema:"name of the company"`
	City               string  `json:"city" jsonschema:"job location city"`
	SalaryMinimum      float64 `json:"salaryMinimum" jsonschema:"minimum salary"`
	SalaryMaximum      float64 `json:"salaryMaximum" jsonschema:"maximum salary"`
	MinimumWeeklyHours int     `json:"minimumWeeklyHours" jsonschema:"minimum weekly hours"`
	MaximumWeeklyHours int     `json:"maximumWeeklyHours" jsonschema:"maximum weekly hours"`
	Requirements       *string `json:"requirements,omitempty" jsonschema:"job requirements"`
	Benefits           *string `json:"benefits,omitempty" jsonschema:"job benefits"`
}

// QueryPublicationsInput is the input schema for the query_publications tool.
type QueryPublicationsInput struct {
	Query string `json:"query" jsonschema:"the search query in natural language"`
	TopK  int    `json:"topK,omitempty" jsonschema:"number of top results to return, server default when omitted"`
}

func (in AddPublicationInput) fields() models.PublicationFields {
	return models.PublicationFields{
		Title:              in.Title,
		Description:        in.Description,
		Summary:            in.Summary,
		Requirements:       in.Requirements,
		Benefits:           in.Benefits,
		CompanyDescription: in.CompanyDescription,
		Brand:              in.Brand,
		Function:           in.Function,
		EmploymentLevel:    in.EmploymentLevel,
		EducationLevel:     in.EducationLevel,
		CompanyName:        in.CompanyName,
		City:               in.City,
		SalaryMinimum:      in.SalaryMinimum,
		SalaryMaximum:      in.SalaryMaximum,
		MinimumWeeklyHours: in.MinimumWeeklyHours,
		MaximumWeeklyHours: in.MaximumWeeklyHours,
	}
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_publication",
		Description: "Add a new job publication to the database",
	}, s.handleAddPublication)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_publications",
		Description: "Search and query job publications using natural language",
	}, s.handleQueryPublications)
}

func (s *Server) handleAddPublication(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddPublicationInput,
) (*mcp.CallToolResult, any, error) {
	ref, err := s.service.Ingest(ctx, input.fields())
	if err != nil {
		return s.toolError("add_publication", err), nil, nil
	}

	return textResult(fmt.Sprintf("Successfully added publication '%s' with ID: %s", ref.Title, ref.ID)), nil, nil
}

func (s *Server) handleQueryPublications(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryPublicationsInput,
) (*mcp.CallToolResult, any, error) {
	// zero is passed through so the ranker applies its configured default
	if input.TopK != 0 {
		if err := utils.ValidateIntRange(input.TopK, "topK", 1, s.maxTopK); err != nil {
			return s.toolError("query_publications",
				services.NewValidationError(services.ErrInvalidTopK.Message, map[string]string{"topK": err.Error()})), nil, nil
		}
	}

	result, err := s.service.Answer(ctx, input.Query, input.TopK)
	if err != nil {
		return s.toolError("query_publications", err), nil, nil
	}

	return textResult(RenderAnswer(result)), nil, nil
}

// RenderAnswer formats a query result as the text body of a tool reply
func RenderAnswer(result *publication.AnswerResult) string {
	var b strings.Builder
	b.WriteString(result.Answer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Found %d matching publications:\n\n", len(result.Publications))

	for _, p := range result.Publications {
		fmt.Fprintf(&b, "- %s at %s (%s)\n", p.Title, p.CompanyName, p.City)
		fmt.Fprintf(&b, "  Salary: %.2f - %.2f\n", p.SalaryMinimum, p.SalaryMaximum)
		fmt.Fprintf(&b, "  Match Distance: %.4f\n\n", p.Distance)
	}

	return b.String()
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed",
		zap.String("tool", tool),
		zap.String("error_type", string(services.GetErrorType(err))),
		zap.Error(err))

	msg := err.Error()
	if details := services.GetErrorDetails(err); len(details) > 0 {
		parts := make([]string, 0, len(details))
		for k, v := range details {
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(parts)
		msg += " (" + strings.Join(parts, "; ") + ")"
	}

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
