package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// fakeCompleter scripts LLM responses for explainer tests
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeCompleter) Model() string { return "llama-3.3-70b-versatile" }

func newTestExplainer(t *testing.T, client ChatCompleter) *ExplainerService {
	t.Helper()
	svc, err := NewExplainerService(client, domain.CacheConfig{MaxMemorySize: 16}, domain.LLMConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, testLogger())
	require.NoError(t, err)
	return svc
}

func sampleAssessment() *domain.RiskAssessment {
	return &domain.RiskAssessment{
		Drug:        "CLOPIDOGREL",
		PrimaryGene: "CYP2C19",
		Diplotype:   "*2/*3",
		Phenotype:   "PM",
		RiskLabel:   domain.RiskIneffective,
		Severity:    domain.SeverityHigh,
		DetectedVariants: []domain.Variant{
			{RSID: "rs4244285", Ref: "G", Alt: "A", StarAllele: "*2", FunctionalStatus: "no_function"},
		},
		ClinicalNote:       "Poor Metabolizers cannot activate clopidogrel.",
		CPICRecommendation: "Use alternative antiplatelet.",
	}
}

const sectionedResponse = `SUMMARY:
The patient cannot activate clopidogrel.
Risk of cardiovascular events is elevated.

BIOLOGICAL_MECHANISM:
CYP2C19 loss-of-function alleles abolish prodrug activation.

VARIANT_SIGNIFICANCE:
rs4244285 defines the *2 no-function allele.

CLINICAL_IMPLICATIONS:
Switch to prasugrel or ticagrelor.`

func TestExplainer_ParsesSections(t *testing.T) {
	client := &fakeCompleter{responses: []string{sectionedResponse}}
	svc := newTestExplainer(t, client)

	got := svc.Explain(context.Background(), sampleAssessment())
	assert.Equal(t, "The patient cannot activate clopidogrel. Risk of cardiovascular events is elevated.", got.Summary)
	assert.Equal(t, "CYP2C19 loss-of-function alleles abolish prodrug activation.", got.BiologicalMechanism)
	assert.Equal(t, "rs4244285 defines the *2 no-function allele.", got.VariantSignificance)
	assert.Equal(t, "Switch to prasugrel or ticagrelor.", got.ClinicalImplications)
	assert.Equal(t, "llama-3.3-70b-versatile", got.ModelUsed)
	assert.True(t, got.Generated)
}

func TestExplainer_UnstructuredResponseBecomesSummary(t *testing.T) {
	client := &fakeCompleter{responses: []string{"Free-form text without headers."}}
	svc := newTestExplainer(t, client)

	got := svc.Explain(context.Background(), sampleAssessment())
	assert.Equal(t, "Free-form text without headers.", got.Summary)
	assert.Empty(t, got.BiologicalMechanism)
}

func TestExplainer_InlineSectionValues(t *testing.T) {
	client := &fakeCompleter{responses: []string{"SUMMARY: Inline value.\nCLINICAL_IMPLICATIONS: Do the thing."}}
	svc := newTestExplainer(t, client)

	got := svc.Explain(context.Background(), sampleAssessment())
	assert.Equal(t, "Inline value.", got.Summary)
	assert.Equal(t, "Do the thing.", got.ClinicalImplications)
}

func TestExplainer_RetriesThenSucceeds(t *testing.T) {
	client := &fakeCompleter{
		errs:      []error{errors.New("transient"), errors.New("transient"), nil},
		responses: []string{"", "", sectionedResponse},
	}
	svc := newTestExplainer(t, client)

	got := svc.Explain(context.Background(), sampleAssessment())
	assert.True(t, got.Generated)
	assert.Equal(t, 3, client.calls)
}

func TestExplainer_FallbackAfterExhaustedRetries(t *testing.T) {
	client := &fakeCompleter{
		errs: []error{errors.New("down"), errors.New("down"), errors.New("down")},
	}
	svc := newTestExplainer(t, client)

	got := svc.Explain(context.Background(), sampleAssessment())
	assert.False(t, got.Generated)
	assert.Contains(t, got.Summary, "CLOPIDOGREL")
	assert.Contains(t, got.VariantSignificance, "rs4244285")
	assert.Equal(t, "Use alternative antiplatelet.", got.ClinicalImplications)
	assert.Equal(t, 3, client.calls)
}

func TestExplainer_FallbackWithoutVariants(t *testing.T) {
	client := &fakeCompleter{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	svc := newTestExplainer(t, client)

	assessment := sampleAssessment()
	assessment.DetectedVariants = nil
	got := svc.Explain(context.Background(), assessment)
	assert.Contains(t, got.VariantSignificance, "wild-type")
}

func TestExplainer_CachesByDrugPhenotypeDiplotype(t *testing.T) {
	client := &fakeCompleter{responses: []string{sectionedResponse}}
	svc := newTestExplainer(t, client)

	first := svc.Explain(context.Background(), sampleAssessment())
	second := svc.Explain(context.Background(), sampleAssessment())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls, "second call must hit the cache")

	// A different diplotype misses the cache.
	other := sampleAssessment()
	other.Diplotype = "*1/*2"
	svc.Explain(context.Background(), other)
	assert.Equal(t, 2, client.calls)
}

func TestExplainer_FallbackNotCached(t *testing.T) {
	client := &fakeCompleter{
		errs:      []error{errors.New("down"), errors.New("down"), errors.New("down"), nil},
		responses: []string{"", "", "", sectionedResponse},
	}
	svc := newTestExplainer(t, client)

	first := svc.Explain(context.Background(), sampleAssessment())
	assert.False(t, first.Generated)

	// Once the backend recovers the next call generates for real.
	second := svc.Explain(context.Background(), sampleAssessment())
	assert.True(t, second.Generated)
}

func TestBuildClinicalPrompt(t *testing.T) {
	prompt := buildClinicalPrompt(sampleAssessment())
	assert.Contains(t, prompt, "Drug: CLOPIDOGREL")
	assert.Contains(t, prompt, "Diplotype: *2/*3")
	assert.Contains(t, prompt, "rs4244285 | G>A | Star: *2 | Function: no_function")
	assert.Contains(t, prompt, "SUMMARY:")
	assert.Contains(t, prompt, "CLINICAL_IMPLICATIONS:")
}

func TestBuildClinicalPrompt_NoVariants(t *testing.T) {
	assessment := sampleAssessment()
	assessment.DetectedVariants = nil
	prompt := buildClinicalPrompt(assessment)
	assert.Contains(t, prompt, "No variants detected (wild-type assumed)")
}
