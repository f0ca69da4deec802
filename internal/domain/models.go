package domain

import (
	"time"
)

// Core Enums and Types

// RiskLabel represents the dosing risk category for a drug/phenotype pair
type RiskLabel string

const (
	RiskSafe         RiskLabel = "Safe"
	RiskAdjustDosage RiskLabel = "Adjust Dosage"
	RiskToxic        RiskLabel = "Toxic"
	RiskIneffective  RiskLabel = "Ineffective"
	RiskUnknown      RiskLabel = "Unknown"
)

// Severity represents the clinical severity of a risk assessment
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities from benign to critical
var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityModerate: 2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity, 0 for unknown values
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the more severe of two severities
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Zygosity represents whether a variant is carried on one or both chromosome copies
type Zygosity string

const (
	Heterozygous Zygosity = "heterozygous"
	Homozygous   Zygosity = "homozygous"
)

// Phenotype represents a metabolizer or transporter-function class.
// CYP genes use PM/IM/NM/RM/URM; SLCO1B1 uses transporter-function strings.
type Phenotype = string

const (
	PhenotypePM      = "PM"
	PhenotypeIM      = "IM"
	PhenotypeNM      = "NM"
	PhenotypeRM      = "RM"
	PhenotypeURM     = "URM"
	PhenotypeUnknown = "Unknown"
)

// Variant Models

// Variant represents one qualifying genotype call from a VCF file.
// A Variant exists only for target pharmacogenes where the patient carries
// at least one non-reference allele.
type Variant struct {
	Chrom            string            `json:"chrom"`
	Pos              string            `json:"pos"`
	RSID             string            `json:"rsid"`
	Ref              string            `json:"ref"`
	Alt              string            `json:"alt"`
	Gene             string            `json:"gene"`
	StarAllele       string            `json:"star_allele,omitempty"`
	FunctionalStatus string            `json:"functional_status"`
	Genotype         string            `json:"genotype,omitempty"`
	Zygosity         Zygosity          `json:"zygosity"`
	Quality          string            `json:"quality,omitempty"`
	Filter           string            `json:"filter,omitempty"`
	Info             map[string]string `json:"info,omitempty"`
}

// ParseResult represents the complete output of VCF ingestion
type ParseResult struct {
	Variants       []Variant            `json:"variants"`
	VariantsByGene map[string][]Variant `json:"variants_by_gene"`
	DetectedGenes  []string             `json:"detected_genes"`
	Metadata       map[string]string    `json:"metadata"`
	ParseErrors    []string             `json:"parse_errors"`
	TotalVariants  int                  `json:"total_variants"`
	ParsingSuccess bool                 `json:"parsing_success"`
}

// Risk Models

// RiskAssessment represents the resolved risk for one (patient, drug) pair
type RiskAssessment struct {
	Drug               string    `json:"drug"`
	PrimaryGene        string    `json:"primary_gene"`
	Diplotype          string    `json:"diplotype"`
	Phenotype          Phenotype `json:"phenotype"`
	RiskLabel          RiskLabel `json:"risk_label"`
	Severity           Severity  `json:"severity"`
	ConfidenceScore    float64   `json:"confidence_score"`
	ClinicalNote       string    `json:"clinical_note"`
	CPICRecommendation string    `json:"cpic_recommendation"`
	DetectedVariants   []Variant `json:"detected_variants"`
	Supported          bool      `json:"supported"`
}

// Explanation represents the LLM-generated clinical narrative for one assessment
type Explanation struct {
	Summary              string `json:"summary"`
	BiologicalMechanism  string `json:"biological_mechanism"`
	VariantSignificance  string `json:"variant_significance"`
	ClinicalImplications string `json:"clinical_implications"`
	ModelUsed            string `json:"model_used"`
	Generated            bool   `json:"generated"`
}

// Interaction Models

// InteractionType classifies how a drug-drug interaction was detected
type InteractionType string

const (
	InteractionSharedGene InteractionType = "shared_gene"
	InteractionKnownCombo InteractionType = "known_interaction"
	InteractionInhibitor  InteractionType = "inhibitor_effect"
)

// Interaction represents a single detected drug-drug interaction
type Interaction struct {
	Type               InteractionType `json:"type"`
	Gene               string          `json:"gene,omitempty"`
	DrugsInvolved      []string        `json:"drugs_involved"`
	Phenotype          Phenotype       `json:"phenotype,omitempty"`
	InhibitorDrug      string          `json:"inhibitor_drug,omitempty"`
	InhibitionStrength string          `json:"inhibition_strength,omitempty"`
	Severity           Severity        `json:"severity"`
	Mechanism          string          `json:"mechanism,omitempty"`
	Message            string          `json:"message"`
	Recommendation     string          `json:"recommendation"`
}

// InteractionAnalysis aggregates all interactions found for a drug list
type InteractionAnalysis struct {
	InteractionsFound bool          `json:"interactions_found"`
	TotalInteractions int           `json:"total_interactions"`
	OverallSeverity   Severity      `json:"overall_severity"`
	SharedGeneRisks   []Interaction `json:"shared_gene_risks"`
	KnownInteractions []Interaction `json:"known_interactions"`
	InhibitorEffects  []Interaction `json:"inhibitor_effects"`
}

// Report Models
// DrugReport is the per-drug output schema consumed by rendering and export.

// ReportVariant is the reduced variant shape embedded in reports
type ReportVariant struct {
	RSID             string `json:"rsid"`
	Chrom            string `json:"chrom,omitempty"`
	Pos              string `json:"pos,omitempty"`
	Ref              string `json:"ref,omitempty"`
	Alt              string `json:"alt,omitempty"`
	Gene             string `json:"gene,omitempty"`
	StarAllele       string `json:"star_allele,omitempty"`
	FunctionalStatus string `json:"functional_status"`
}

// ReportRisk summarizes the resolved risk for the report
type ReportRisk struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        Severity  `json:"severity"`
}

// PharmacogenomicProfile describes the genetic basis of the assessment
type PharmacogenomicProfile struct {
	PrimaryGene       string          `json:"primary_gene"`
	Diplotype         string          `json:"diplotype"`
	Phenotype         Phenotype       `json:"phenotype"`
	DetectedVariants  []ReportVariant `json:"detected_variants"`
	CPICEvidenceLevel string          `json:"cpic_evidence_level"`
}

// ClinicalRecommendation carries CPIC dosing guidance
type ClinicalRecommendation struct {
	CPICGuideline        string   `json:"cpic_guideline"`
	DosingRecommendation string   `json:"dosing_recommendation"`
	AlternativeDrugs     []string `json:"alternative_drugs"`
	MonitoringRequired   string   `json:"monitoring_required"`
	Contraindicated      bool     `json:"contraindicated"`
}

// QualityMetrics reports parsing and explanation quality for the run
type QualityMetrics struct {
	VCFParsingSuccess    bool     `json:"vcf_parsing_success"`
	VariantsDetected     int      `json:"variants_detected"`
	GenesAnalyzed        []string `json:"genes_analyzed"`
	ParseErrors          []string `json:"parse_errors"`
	ExplanationGenerated bool     `json:"explanation_generated"`
}

// DrugReport is the complete per-drug analysis output
type DrugReport struct {
	PatientID               string                 `json:"patient_id"`
	Drug                    string                 `json:"drug"`
	Timestamp               string                 `json:"timestamp"`
	RiskAssessment          ReportRisk             `json:"risk_assessment"`
	PharmacogenomicProfile  PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	ClinicalRecommendation  ClinicalRecommendation `json:"clinical_recommendation"`
	LLMGeneratedExplanation Explanation            `json:"llm_generated_explanation"`
	QualityMetrics          QualityMetrics         `json:"quality_metrics"`
}

// Analysis Models

// AnalysisRequest represents an incoming analysis request
type AnalysisRequest struct {
	PatientID string   `json:"patient_id,omitempty"`
	VCFText   string   `json:"vcf_text"`
	Drugs     []string `json:"drugs"`
}

// AnalysisResult represents one complete analysis run
type AnalysisResult struct {
	ID              string               `json:"id"`
	PatientID       string               `json:"patient_id"`
	Drugs           []string             `json:"drugs"`
	Reports         []DrugReport         `json:"reports"`
	Interactions    *InteractionAnalysis `json:"interactions,omitempty"`
	OverallSeverity Severity             `json:"overall_severity"`
	CreatedAt       time.Time            `json:"created_at"`
}
