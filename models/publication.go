package models

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimensions is the vector length produced by text-embedding-3-small
const EmbeddingDimensions = 1536

// PublicationFields holds the caller-supplied attributes of a job publication.
// It is the payload accepted by ingestion; identity, timestamp and embedding
// are assigned by the pipeline.
type PublicationFields struct {
	Title              string   `json:"title" yaml:"title" validate:"required,notblank,max=500"`
	Description        string   `json:"description" yaml:"description" validate:"required,notblank"`
	Summary            string   `json:"summary" yaml:"summary" validate:"required,notblank"`
	Requirements       *string  `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Benefits           *string  `json:"benefits,omitempty" yaml:"benefits,omitempty"`
	CompanyDescription string   `json:"companyDescription" yaml:"companyDescription" validate:"required,notblank"`
	Brand              string   `json:"brand" yaml:"brand" validate:"required,notblank,max=255"`
	Function           string   `json:"function" yaml:"function" validate:"required,notblank,max=255"`
	EmploymentLevel    string   `json:"employmentLevel" yaml:"employmentLevel" validate:"required,notblank,max=255"`
	EducationLevel     string   `json:"educationLevel" yaml:"educationLevel" validate:"required,notblank,max=255"`
	CompanyName        string   `json:"companyName" yaml:"companyName" validate:"required,notblank,max=255"`
	City               string   `json:"city" yaml:"city" validate:"required,notblank,max=255"`
	SalaryMinimum      float64  `json:"salaryMinimum" yaml:"salaryMinimum" validate:"gte=0"`
	SalaryMaximum      float64  `json:"salaryMaximum" yaml:"salaryMaximum" validate:"gte=0,gtefield=SalaryMinimum"`
	MinimumWeeklyHours int      `json:"minimumWeeklyHours" yaml:"minimumWeeklyHours" validate:"gte=0"`
	MaximumWeeklyHours int      `json:"maximumWeeklyHours" yaml:"maximumWeeklyHours" validate:"gte=0,gtefield=MinimumWeeklyHours"`
}

// Publication is a persisted job publication together with its embedding
type Publication struct {
	ID uuid.UUID `json:"id" db:"id"`
	PublicationFields
	PublishedDate time.Time `json:"publishedDate" db:"published_date"`
	Embedding     []float32 `json:"-" db:"embedding"` // Never expose in JSON
}

// TableName returns the table name for the Publication model
func (Publication) TableName() string {
	return "publications"
}

// NewPublication builds a new persisted-record value from the supplied fields.
// The fields and the embedding are copied, so later changes by the caller
// do not alias into the returned publication.
func NewPublication(fields PublicationFields, embedding []float32, publishedAt time.Time) *Publication {
	p := &Publication{
		ID:                uuid.New(),
		PublicationFields: fields.Clone(),
		PublishedDate:     publishedAt.UTC(),
		Embedding:         make([]float32, len(embedding)),
	}
	copy(p.Embedding, embedding)
	return p
}

// Clone returns a deep copy of the fields, including the optional text pointers
func (f PublicationFields) Clone() PublicationFields {
	out := f
	if f.Requirements != nil {
		v := *f.Requirements
		out.Requirements = &v
	}
	if f.Benefits != nil {
		v := *f.Benefits
		out.Benefits = &v
	}
	return out
}

// WithoutEmbedding returns a copy of the publication with the vector dropped
func (p Publication) WithoutEmbedding() Publication {
	p.PublicationFields = p.PublicationFields.Clone()
	p.Embedding = nil
	return p
}

// RankedResult is a publication returned by a similarity query together with
// the cosine distance that ranked it. It is never persisted.
type RankedResult struct {
	Publication
	Distance float64 `json:"distance"`
}

// PublicationRef identifies a freshly ingested publication
type PublicationRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
