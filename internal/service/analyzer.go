package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// defaultMaxConcurrent bounds parallel explanation generation per analysis
const defaultMaxConcurrent = 4

// AnalyzerService orchestrates the full analysis pipeline: VCF ingestion,
// per-drug risk assessment, LLM explanation, interaction checking and report
// assembly.
type AnalyzerService struct {
	ingestor      domain.VCFIngestor
	resolver      domain.RiskResolver
	explainer     domain.Explainer
	interactions  *InteractionService
	logger        *logrus.Logger
	maxConcurrent int
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(
	ingestor domain.VCFIngestor,
	resolver domain.RiskResolver,
	explainer domain.Explainer,
	interactions *InteractionService,
	logger *logrus.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		ingestor:      ingestor,
		resolver:      resolver,
		explainer:     explainer,
		interactions:  interactions,
		logger:        logger,
		maxConcurrent: defaultMaxConcurrent,
	}
}

// Analyze runs one complete analysis for a patient. Explanations for the
// requested drugs are generated concurrently under a bounded semaphore;
// report order always matches the request's drug order.
func (s *AnalyzerService) Analyze(ctx context.Context, request *domain.AnalysisRequest) *domain.AnalysisResult {
	patientID := request.PatientID
	if patientID == "" {
		patientID = "PATIENT_" + strings.ToUpper(uuid.New().String()[:8])
	}

	parsed := s.ingestor.Parse(request.VCFText)
	assessments := s.resolver.RunAssessment(parsed, request.Drugs)

	timestamp := time.Now().UTC()
	reports := make([]domain.DrugReport, len(assessments))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.maxConcurrent)

	for i := range assessments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			assessment := &assessments[i]
			explanation := s.explainer.Explain(ctx, assessment)
			reports[i] = s.buildReport(patientID, assessment, explanation, parsed, timestamp)
		}(i)
	}
	wg.Wait()

	result := &domain.AnalysisResult{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		Drugs:           normalizeDrugs(request.Drugs),
		Reports:         reports,
		OverallSeverity: OverallSeverity(assessments),
		CreatedAt:       timestamp,
	}

	if len(request.Drugs) > 1 {
		result.Interactions = s.interactions.Analyze(request.Drugs, assessments)
		result.OverallSeverity = domain.MaxSeverity(result.OverallSeverity, result.Interactions.OverallSeverity)
	}

	s.logger.WithFields(logrus.Fields{
		"analysis_id":      result.ID,
		"patient_id":       patientID,
		"drugs":            result.Drugs,
		"overall_severity": result.OverallSeverity,
	}).Info("Completed analysis")

	return result
}

// buildReport assembles the per-drug output schema from the pipeline stages
func (s *AnalyzerService) buildReport(
	patientID string,
	assessment *domain.RiskAssessment,
	explanation domain.Explanation,
	parsed *domain.ParseResult,
	timestamp time.Time,
) domain.DrugReport {
	reportVariants := make([]domain.ReportVariant, 0, len(assessment.DetectedVariants))
	for _, variant := range assessment.DetectedVariants {
		reportVariants = append(reportVariants, domain.ReportVariant{
			RSID:             variant.RSID,
			Chrom:            variant.Chrom,
			Pos:              variant.Pos,
			Ref:              variant.Ref,
			Alt:              variant.Alt,
			Gene:             variant.Gene,
			StarAllele:       variant.StarAllele,
			FunctionalStatus: variant.FunctionalStatus,
		})
	}

	alternatives := AlternativesFor(assessment.Drug, assessment.Phenotype)

	return domain.DrugReport{
		PatientID: patientID,
		Drug:      assessment.Drug,
		Timestamp: timestamp.Format(time.RFC3339),
		RiskAssessment: domain.ReportRisk{
			RiskLabel:       assessment.RiskLabel,
			ConfidenceScore: assessment.ConfidenceScore,
			Severity:        assessment.Severity,
		},
		PharmacogenomicProfile: domain.PharmacogenomicProfile{
			PrimaryGene:       assessment.PrimaryGene,
			Diplotype:         assessment.Diplotype,
			Phenotype:         assessment.Phenotype,
			DetectedVariants:  reportVariants,
			CPICEvidenceLevel: evidenceLevel(assessment),
		},
		ClinicalRecommendation: domain.ClinicalRecommendation{
			CPICGuideline:        cpicGuidelineName(assessment),
			DosingRecommendation: assessment.CPICRecommendation,
			AlternativeDrugs:     alternatives,
			MonitoringRequired:   MonitoringFor(assessment.Drug),
			Contraindicated:      Contraindicated(assessment),
		},
		LLMGeneratedExplanation: explanation,
		QualityMetrics: domain.QualityMetrics{
			VCFParsingSuccess:    parsed.ParsingSuccess,
			VariantsDetected:     parsed.TotalVariants,
			GenesAnalyzed:        parsed.DetectedGenes,
			ParseErrors:          parsed.ParseErrors,
			ExplanationGenerated: explanation.Generated,
		},
	}
}

// evidenceLevel returns the CPIC evidence level for an assessment
func evidenceLevel(assessment *domain.RiskAssessment) string {
	if !assessment.Supported {
		return "N/A"
	}
	return cpicEvidenceLevel
}

// cpicGuidelineName names the applicable CPIC guideline for a supported drug
func cpicGuidelineName(assessment *domain.RiskAssessment) string {
	if !assessment.Supported {
		return "None"
	}
	return "CPIC Guideline for " + assessment.PrimaryGene + " and " + titleCase(assessment.Drug)
}

// titleCase renders a drug name with a leading capital
func titleCase(drug string) string {
	if drug == "" {
		return drug
	}
	lower := strings.ToLower(drug)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// normalizeDrugs uppercases and trims the requested drug list
func normalizeDrugs(drugs []string) []string {
	normalized := make([]string, 0, len(drugs))
	for _, drug := range drugs {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(drug)))
	}
	return normalized
}
