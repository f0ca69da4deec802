package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// stubExplainer returns canned explanations and records concurrency
type stubExplainer struct {
	mu    sync.Mutex
	calls int
}

func (s *stubExplainer) Explain(ctx context.Context, assessment *domain.RiskAssessment) domain.Explanation {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return domain.Explanation{
		Summary:   "Explanation for " + assessment.Drug,
		ModelUsed: "llama-3.3-70b-versatile",
		Generated: true,
	}
}

func newTestAnalyzer() (*AnalyzerService, *stubExplainer) {
	logger := testLogger()
	explainer := &stubExplainer{}
	return NewAnalyzerService(
		NewIngestorService(logger),
		NewRiskEngineService(logger),
		explainer,
		NewInteractionService(logger),
		logger,
	), explainer
}

func TestAnalyzer_SingleDrugEndToEnd(t *testing.T) {
	analyzer, explainer := newTestAnalyzer()

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		PatientID: "PATIENT_TEST",
		VCFText:   SampleVCF(),
		Drugs:     []string{"CLOPIDOGREL"},
	})

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "PATIENT_TEST", result.PatientID)
	require.Len(t, result.Reports, 1)
	assert.Nil(t, result.Interactions, "single drug request runs no interaction analysis")
	assert.Equal(t, 1, explainer.calls)

	report := result.Reports[0]
	assert.Equal(t, "CLOPIDOGREL", report.Drug)
	assert.Equal(t, domain.RiskIneffective, report.RiskAssessment.RiskLabel)
	assert.Equal(t, "*2/*3", report.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, "PM", report.PharmacogenomicProfile.Phenotype)
	assert.Equal(t, "Level A", report.PharmacogenomicProfile.CPICEvidenceLevel)
	require.Len(t, report.PharmacogenomicProfile.DetectedVariants, 2)
	assert.Equal(t, []string{"Prasugrel", "Ticagrelor"}, report.ClinicalRecommendation.AlternativeDrugs)
	assert.False(t, report.ClinicalRecommendation.Contraindicated)
	assert.True(t, report.QualityMetrics.VCFParsingSuccess)
	assert.Equal(t, 6, report.QualityMetrics.VariantsDetected)
	assert.True(t, report.QualityMetrics.ExplanationGenerated)
	assert.Equal(t, "Explanation for CLOPIDOGREL", report.LLMGeneratedExplanation.Summary)
}

func TestAnalyzer_GeneratesPatientID(t *testing.T) {
	analyzer, _ := newTestAnalyzer()

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: SampleVCF(),
		Drugs:   []string{"CODEINE"},
	})

	assert.True(t, strings.HasPrefix(result.PatientID, "PATIENT_"))
	assert.Len(t, result.PatientID, len("PATIENT_")+8)
	assert.Equal(t, result.PatientID, result.Reports[0].PatientID)
}

func TestAnalyzer_ReportOrderMatchesRequest(t *testing.T) {
	analyzer, explainer := newTestAnalyzer()

	drugs := []string{"WARFARIN", "CODEINE", "SIMVASTATIN", "AZATHIOPRINE"}
	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: SampleVCF(),
		Drugs:   drugs,
	})

	require.Len(t, result.Reports, 4)
	for i, drug := range drugs {
		assert.Equal(t, drug, result.Reports[i].Drug)
	}
	assert.Equal(t, 4, explainer.calls)
}

func TestAnalyzer_MultiDrugRunsInteractions(t *testing.T) {
	analyzer, _ := newTestAnalyzer()

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: SampleVCF(),
		Drugs:   []string{"AZATHIOPRINE", "MERCAPTOPURINE"},
	})

	require.NotNil(t, result.Interactions)
	assert.True(t, result.Interactions.InteractionsFound)
	// The critical known combo dominates the overall severity.
	assert.Equal(t, domain.SeverityCritical, result.OverallSeverity)
}

func TestAnalyzer_UnsupportedDrugDegrades(t *testing.T) {
	analyzer, _ := newTestAnalyzer()

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: SampleVCF(),
		Drugs:   []string{"ASPIRIN"},
	})

	require.Len(t, result.Reports, 1)
	report := result.Reports[0]
	assert.Equal(t, domain.RiskUnknown, report.RiskAssessment.RiskLabel)
	assert.Equal(t, 0.0, report.RiskAssessment.ConfidenceScore)
	assert.Equal(t, "N/A", report.PharmacogenomicProfile.CPICEvidenceLevel)
	assert.Equal(t, "None", report.ClinicalRecommendation.CPICGuideline)
}

func TestAnalyzer_ContraindicatedFlag(t *testing.T) {
	analyzer, _ := newTestAnalyzer()

	// Homozygous DPYD *2A yields a PM phenotype and a Toxic/critical call.
	vcf := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE1\n" +
		"chr1\t97915614\trs3918290\tC\tT\t97\tPASS\tGENE=DPYD;STAR=*2A;FUNCTION=no_function\tGT\t1/1\n"

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: vcf,
		Drugs:   []string{"FLUOROURACIL"},
	})

	require.Len(t, result.Reports, 1)
	report := result.Reports[0]
	assert.Equal(t, "*2A/*2A", report.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, domain.RiskToxic, report.RiskAssessment.RiskLabel)
	assert.Equal(t, domain.SeverityCritical, report.RiskAssessment.Severity)
	assert.True(t, report.ClinicalRecommendation.Contraindicated)
	assert.Equal(t, domain.SeverityCritical, result.OverallSeverity)
}

func TestAnalyzer_MalformedVCFStillReports(t *testing.T) {
	analyzer, _ := newTestAnalyzer()

	result := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		VCFText: "garbage input",
		Drugs:   []string{"WARFARIN"},
	})

	require.Len(t, result.Reports, 1)
	report := result.Reports[0]
	assert.False(t, report.QualityMetrics.VCFParsingSuccess)
	assert.NotEmpty(t, report.QualityMetrics.ParseErrors)
	// No variants means reference diplotype and a Safe call.
	assert.Equal(t, "*1/*1", report.PharmacogenomicProfile.Diplotype)
	assert.Equal(t, domain.RiskSafe, report.RiskAssessment.RiskLabel)
}
