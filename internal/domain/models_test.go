package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Rank(t *testing.T) {
	tests := []struct {
		severity Severity
		rank     int
	}{
		{SeverityNone, 0},
		{SeverityLow, 1},
		{SeverityModerate, 2},
		{SeverityHigh, 3},
		{SeverityCritical, 4},
		{Severity("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.rank, tt.severity.Rank())
		})
	}
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityLow, SeverityCritical))
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityCritical, SeverityModerate))
	assert.Equal(t, SeverityNone, MaxSeverity(SeverityNone, SeverityNone))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, Severity("bogus")))
}

func TestDrugReport_JSONShape(t *testing.T) {
	report := DrugReport{
		PatientID: "PATIENT_1234",
		Drug:      "CLOPIDOGREL",
		Timestamp: "2026-01-01T00:00:00Z",
		RiskAssessment: ReportRisk{
			RiskLabel:       RiskIneffective,
			ConfidenceScore: 0.94,
			Severity:        SeverityHigh,
		},
		PharmacogenomicProfile: PharmacogenomicProfile{
			PrimaryGene: "CYP2C19",
			Diplotype:   "*2/*3",
			Phenotype:   PhenotypePM,
			DetectedVariants: []ReportVariant{
				{RSID: "rs4244285", Gene: "CYP2C19", StarAllele: "*2", FunctionalStatus: "no_function"},
			},
			CPICEvidenceLevel: "Level A",
		},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// The export schema keys are load-bearing for downstream consumers.
	for _, key := range []string{
		"patient_id", "drug", "timestamp", "risk_assessment",
		"pharmacogenomic_profile", "clinical_recommendation",
		"llm_generated_explanation", "quality_metrics",
	} {
		assert.Contains(t, decoded, key)
	}

	profile := decoded["pharmacogenomic_profile"].(map[string]interface{})
	assert.Equal(t, "*2/*3", profile["diplotype"])
	assert.Contains(t, profile, "cpic_evidence_level")
}
