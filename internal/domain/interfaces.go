package domain

import (
	"context"
)

// VCFIngestor parses raw VCF text into pharmacogenomic variant records
type VCFIngestor interface {
	// Parse ingests VCF v4.x text. It never fails outright: malformed lines
	// are accumulated in ParseResult.ParseErrors and parsing continues.
	Parse(text string) *ParseResult
}

// RiskResolver maps ingested variants to per-drug risk assessments
type RiskResolver interface {
	// ResolveDiplotype builds a diplotype string from one gene's variants
	ResolveDiplotype(variants []Variant) string

	// LookupPhenotype resolves a gene/diplotype pair to a phenotype class
	LookupPhenotype(gene, diplotype string) Phenotype

	// AssessRisk resolves a (drug, phenotype) pair to a risk assessment
	AssessRisk(drug string, phenotype Phenotype) RiskAssessment

	// RunAssessment runs the full per-drug assessment over a parse result
	RunAssessment(parsed *ParseResult, drugs []string) []RiskAssessment
}

// Explainer generates clinical narratives for risk assessments
type Explainer interface {
	// Explain produces a narrative for the assessment. Failures degrade to
	// a static template explanation, never an error.
	Explain(ctx context.Context, assessment *RiskAssessment) Explanation
}
