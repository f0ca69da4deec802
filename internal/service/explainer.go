package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
	"github.com/pharmaguard-pgx-server/pkg/external"
)

// ChatCompleter abstracts the LLM backend so the explainer can be tested
// without network access
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
	Model() string
}

// ChatMessage mirrors the wire-level chat message shape
type ChatMessage = external.ChatMessage

const explainerSystemPrompt = "You are a board-certified clinical pharmacologist and pharmacogenomics specialist. Provide accurate, evidence-based clinical explanations. Be concise and specific."

// ExplainerService implements domain.Explainer. Generated narratives are
// cached in a two-tier cache (in-memory LRU, optional Redis) keyed by the
// assessment's drug, phenotype and diplotype. LLM failures degrade to a
// static template explanation, never an error.
type ExplainerService struct {
	client     ChatCompleter
	logger     *logrus.Logger
	maxRetries int
	retryDelay time.Duration

	memCache    *lru.Cache[string, domain.Explanation]
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewExplainerService creates a new explainer service
func NewExplainerService(client ChatCompleter, cacheConfig domain.CacheConfig, llmConfig domain.LLMConfig, logger *logrus.Logger) (*ExplainerService, error) {
	size := cacheConfig.MaxMemorySize
	if size <= 0 {
		size = 512
	}
	memCache, err := lru.New[string, domain.Explanation](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create explanation cache: %w", err)
	}

	maxRetries := llmConfig.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := llmConfig.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	ttl := cacheConfig.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	svc := &ExplainerService{
		client:     client,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		memCache:   memCache,
		cacheTTL:   ttl,
	}

	if cacheConfig.RedisEnabled && cacheConfig.RedisURL != "" {
		opts, err := redis.ParseURL(cacheConfig.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		svc.redisClient = redis.NewClient(opts)
	}

	return svc, nil
}

// Explain produces a clinical narrative for the assessment. The cache is
// consulted first; on a miss the LLM is called with bounded retries, and any
// terminal failure yields the static fallback explanation.
func (s *ExplainerService) Explain(ctx context.Context, assessment *domain.RiskAssessment) domain.Explanation {
	key := explanationCacheKey(assessment)

	if cached, ok := s.memCache.Get(key); ok {
		return cached
	}
	if cached, ok := s.redisGet(ctx, key); ok {
		s.memCache.Add(key, cached)
		return cached
	}

	explanation, err := s.generate(ctx, assessment)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"drug":      assessment.Drug,
			"phenotype": assessment.Phenotype,
			"error":     err.Error(),
		}).Warn("LLM explanation failed, using fallback")
		return s.fallbackExplanation(assessment)
	}

	s.memCache.Add(key, explanation)
	s.redisSet(ctx, key, explanation)
	return explanation
}

// generate calls the LLM with retries and parses the sectioned response
func (s *ExplainerService) generate(ctx context.Context, assessment *domain.RiskAssessment) (domain.Explanation, error) {
	messages := []ChatMessage{
		{Role: "system", Content: explainerSystemPrompt},
		{Role: "user", Content: buildClinicalPrompt(assessment)},
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		raw, err := s.client.ChatCompletion(ctx, messages)
		if err == nil {
			explanation := parseExplanation(raw)
			explanation.ModelUsed = s.client.Model()
			explanation.Generated = true
			return explanation, nil
		}

		lastErr = err
		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return domain.Explanation{}, ctx.Err()
			}
		}
	}

	return domain.Explanation{}, fmt.Errorf("explanation failed after %d attempts: %w", s.maxRetries, lastErr)
}

// fallbackExplanation builds a deterministic template explanation from the
// assessment's table-derived fields
func (s *ExplainerService) fallbackExplanation(assessment *domain.RiskAssessment) domain.Explanation {
	return domain.Explanation{
		Summary: fmt.Sprintf("%s phenotype %s for gene %s results in a %s risk classification for %s. %s",
			assessment.Diplotype, assessment.Phenotype, assessment.PrimaryGene,
			assessment.RiskLabel, assessment.Drug, assessment.ClinicalNote),
		BiologicalMechanism:  fmt.Sprintf("The %s diplotype determines %s enzyme activity, which governs the metabolism or transport of %s.", assessment.Diplotype, assessment.PrimaryGene, assessment.Drug),
		VariantSignificance:  variantSummary(assessment.DetectedVariants),
		ClinicalImplications: assessment.CPICRecommendation,
		ModelUsed:            s.client.Model(),
		Generated:            false,
	}
}

// variantSummary renders detected variants into one fallback sentence
func variantSummary(variants []domain.Variant) string {
	if len(variants) == 0 {
		return "No variants were detected in this gene; wild-type function is assumed."
	}
	parts := make([]string, 0, len(variants))
	for _, variant := range variants {
		if variant.StarAllele != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", variant.RSID, variant.StarAllele))
		} else {
			parts = append(parts, variant.RSID)
		}
	}
	return fmt.Sprintf("Detected variants: %s.", strings.Join(parts, ", "))
}

// buildClinicalPrompt assembles the sectioned prompt sent to the LLM
func buildClinicalPrompt(assessment *domain.RiskAssessment) string {
	var variantDetails strings.Builder
	if len(assessment.DetectedVariants) == 0 {
		variantDetails.WriteString("  - No variants detected (wild-type assumed)\n")
	} else {
		limit := len(assessment.DetectedVariants)
		if limit > 5 {
			limit = 5
		}
		for _, variant := range assessment.DetectedVariants[:limit] {
			star := variant.StarAllele
			if star == "" {
				star = "N/A"
			}
			fmt.Fprintf(&variantDetails, "  - %s | %s>%s | Star: %s | Function: %s\n",
				variant.RSID, variant.Ref, variant.Alt, star, variant.FunctionalStatus)
		}
	}

	return fmt.Sprintf(`You are a clinical pharmacogenomics expert. Generate a concise, accurate clinical explanation for the following patient pharmacogenomic risk assessment.

PATIENT DATA:
- Drug: %s
- Gene: %s
- Diplotype: %s
- Phenotype: %s
- Risk Assessment: %s (Severity: %s)
- Detected Variants:
%s
Generate a clinical explanation with these EXACT sections:

SUMMARY:
Write 2-3 sentences summarizing the overall risk and key clinical implication for this patient.

BIOLOGICAL_MECHANISM:
Explain in 2-3 sentences the biological mechanism: how the genetic variants affect the enzyme/protein, and how that impacts drug metabolism or response.

VARIANT_SIGNIFICANCE:
Explain the significance of the specific variants detected. Reference the rsIDs and star alleles. Keep to 2-3 sentences.

CLINICAL_IMPLICATIONS:
State the specific clinical implications for prescribing %s to this patient. What should the clinician do? 2-3 sentences.

Be precise, cite the specific variants (rsIDs), use correct pharmacological terminology. Do not add disclaimers or preambles.`,
		assessment.Drug, assessment.PrimaryGene, assessment.Diplotype, assessment.Phenotype,
		assessment.RiskLabel, assessment.Severity, variantDetails.String(), assessment.Drug)
}

// sectionHeaders maps response headers to explanation fields in scan order
var sectionHeaders = []struct {
	Header string
	Assign func(*domain.Explanation, string)
}{
	{"SUMMARY:", func(e *domain.Explanation, v string) { e.Summary = v }},
	{"BIOLOGICAL_MECHANISM:", func(e *domain.Explanation, v string) { e.BiologicalMechanism = v }},
	{"VARIANT_SIGNIFICANCE:", func(e *domain.Explanation, v string) { e.VariantSignificance = v }},
	{"CLINICAL_IMPLICATIONS:", func(e *domain.Explanation, v string) { e.ClinicalImplications = v }},
}

// parseExplanation splits a sectioned LLM response into an Explanation.
// When no section headers are present the whole response becomes the summary.
func parseExplanation(raw string) domain.Explanation {
	var explanation domain.Explanation

	var assign func(*domain.Explanation, string)
	var current []string

	flush := func() {
		if assign != nil {
			assign(&explanation, strings.TrimSpace(strings.Join(current, " ")))
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		matched := false
		for _, section := range sectionHeaders {
			if strings.HasPrefix(line, section.Header) {
				flush()
				assign = section.Assign
				if remainder := strings.TrimSpace(line[len(section.Header):]); remainder != "" {
					current = append(current, remainder)
				}
				matched = true
				break
			}
		}
		if !matched && assign != nil && line != "" {
			current = append(current, line)
		}
	}
	flush()

	if explanation.Summary == "" && explanation.BiologicalMechanism == "" &&
		explanation.VariantSignificance == "" && explanation.ClinicalImplications == "" {
		explanation.Summary = strings.TrimSpace(raw)
	}

	return explanation
}

// explanationCacheKey derives the cache key for an assessment. Diplotype is
// included so re-analysis after new variant data invalidates naturally.
func explanationCacheKey(assessment *domain.RiskAssessment) string {
	return fmt.Sprintf("explanation:%s:%s:%s", assessment.Drug, assessment.Phenotype, assessment.Diplotype)
}

// redisGet reads an explanation from the Redis tier, best effort
func (s *ExplainerService) redisGet(ctx context.Context, key string) (domain.Explanation, bool) {
	if s.redisClient == nil {
		return domain.Explanation{}, false
	}
	data, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Explanation{}, false
	}
	var explanation domain.Explanation
	if err := json.Unmarshal(data, &explanation); err != nil {
		return domain.Explanation{}, false
	}
	return explanation, true
}

// redisSet writes an explanation to the Redis tier, best effort
func (s *ExplainerService) redisSet(ctx context.Context, key string, explanation domain.Explanation) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(explanation)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.WithField("key", key).Debug("Failed to cache explanation in redis")
	}
}

// Close releases the Redis connection if one was opened
func (s *ExplainerService) Close() error {
	if s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}
