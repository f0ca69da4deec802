package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// RiskEngineService implements domain.RiskResolver on top of the static CPIC
// lookup tables. All resolution is deterministic table lookup; no scoring
// heuristics are involved.
type RiskEngineService struct {
	logger *logrus.Logger
}

// NewRiskEngineService creates a new risk engine service
func NewRiskEngineService(logger *logrus.Logger) *RiskEngineService {
	return &RiskEngineService{logger: logger}
}

// SupportedDrugs returns the sorted drug panel this engine can assess
func SupportedDrugs() []string {
	drugs := make([]string, 0, len(drugRiskTable))
	for drug := range drugRiskTable {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)
	return drugs
}

// PrimaryGene returns the gene whose phenotype drives risk for a drug, or ""
// when the drug is not in the panel
func PrimaryGene(drug string) string {
	entry, ok := drugRiskTable[strings.ToUpper(drug)]
	if !ok {
		return ""
	}
	return entry.Gene
}

// ResolveDiplotype builds a diplotype string from one gene's variants.
// Homozygous variants contribute their star allele twice. With two or more
// allele slots the first two are joined; a single slot pairs with the *1
// reference; none at all yields the reference diplotype.
func (s *RiskEngineService) ResolveDiplotype(variants []domain.Variant) string {
	var alleles []string
	for _, variant := range variants {
		if variant.StarAllele == "" {
			continue
		}
		alleles = append(alleles, variant.StarAllele)
		if variant.Zygosity == domain.Homozygous {
			alleles = append(alleles, variant.StarAllele)
		}
	}

	switch {
	case len(alleles) >= 2:
		return alleles[0] + "/" + alleles[1]
	case len(alleles) == 1:
		return alleles[0] + "/*1"
	default:
		return "*1/*1"
	}
}

// LookupPhenotype resolves a gene/diplotype pair to a phenotype class.
// Lookup is allele-order insensitive: the exact diplotype is tried first,
// then its reversed form. Misses resolve to Unknown.
func (s *RiskEngineService) LookupPhenotype(gene, diplotype string) domain.Phenotype {
	table, ok := diplotypePhenotype[gene]
	if !ok {
		return domain.PhenotypeUnknown
	}

	if phenotype, ok := table[diplotype]; ok {
		return phenotype
	}
	if reversed := reverseDiplotype(diplotype); reversed != diplotype {
		if phenotype, ok := table[reversed]; ok {
			return phenotype
		}
	}
	return domain.PhenotypeUnknown
}

// reverseDiplotype swaps the two halves of an "a/b" diplotype
func reverseDiplotype(diplotype string) string {
	left, right, found := strings.Cut(diplotype, "/")
	if !found {
		return diplotype
	}
	return right + "/" + left
}

// AssessRisk resolves a (drug, phenotype) pair to a risk assessment. Unknown
// drugs degrade to an Unknown assessment naming the supported panel; unknown
// phenotypes use the drug's Unknown entry.
func (s *RiskEngineService) AssessRisk(drug string, phenotype domain.Phenotype) domain.RiskAssessment {
	drug = strings.ToUpper(strings.TrimSpace(drug))

	entry, ok := drugRiskTable[drug]
	if !ok {
		return domain.RiskAssessment{
			Drug:               drug,
			Phenotype:          phenotype,
			RiskLabel:          domain.RiskUnknown,
			Severity:           domain.SeverityNone,
			ConfidenceScore:    0.0,
			ClinicalNote:       fmt.Sprintf("Drug %s is not in the supported panel. Supported drugs: %s.", drug, strings.Join(SupportedDrugs(), ", ")),
			CPICRecommendation: defaultCPICRecommendation,
			Supported:          false,
		}
	}

	risk, ok := entry.Risks[phenotype]
	if !ok {
		risk = entry.Risks[domain.PhenotypeUnknown]
	}

	return domain.RiskAssessment{
		Drug:               drug,
		PrimaryGene:        entry.Gene,
		Phenotype:          phenotype,
		RiskLabel:          risk.Label,
		Severity:           risk.Severity,
		ConfidenceScore:    risk.Confidence,
		ClinicalNote:       risk.Note,
		CPICRecommendation: cpicRecommendation(drug, phenotype),
		Supported:          true,
	}
}

// RunAssessment runs the full per-drug assessment pipeline over a parse
// result: resolve the primary gene's diplotype, look up its phenotype, then
// assess the drug against that phenotype.
func (s *RiskEngineService) RunAssessment(parsed *domain.ParseResult, drugs []string) []domain.RiskAssessment {
	assessments := make([]domain.RiskAssessment, 0, len(drugs))

	for _, drug := range drugs {
		normalized := strings.ToUpper(strings.TrimSpace(drug))
		gene := PrimaryGene(normalized)

		if gene == "" {
			assessments = append(assessments, s.AssessRisk(normalized, domain.PhenotypeUnknown))
			continue
		}

		variants := parsed.VariantsByGene[gene]
		diplotype := s.ResolveDiplotype(variants)
		phenotype := s.LookupPhenotype(gene, diplotype)

		assessment := s.AssessRisk(normalized, phenotype)
		assessment.Diplotype = diplotype
		assessment.DetectedVariants = variants

		s.logger.WithFields(logrus.Fields{
			"drug":      normalized,
			"gene":      gene,
			"diplotype": diplotype,
			"phenotype": phenotype,
			"risk":      assessment.RiskLabel,
			"severity":  assessment.Severity,
		}).Info("Completed risk assessment")

		assessments = append(assessments, assessment)
	}

	return assessments
}

// cpicRecommendation resolves CPIC dosing guidance for a (drug, phenotype)
// pair, falling back to the generic guideline pointer
func cpicRecommendation(drug string, phenotype domain.Phenotype) string {
	if text, ok := cpicRecommendations[drugPhenotype{drug, phenotype}]; ok {
		return text
	}
	return defaultCPICRecommendation
}

// AlternativesFor returns substitute drugs for a (drug, phenotype) scenario
func AlternativesFor(drug string, phenotype domain.Phenotype) []string {
	if alts, ok := alternativeDrugs[drugPhenotype{strings.ToUpper(drug), phenotype}]; ok {
		return alts
	}
	return []string{}
}

// MonitoringFor returns the monitoring guidance for a drug
func MonitoringFor(drug string) string {
	if text, ok := monitoringRecommendations[strings.ToUpper(drug)]; ok {
		return text
	}
	return defaultMonitoring
}

// Contraindicated reports whether an assessment rises to a contraindication.
// Only the Toxic/critical combination qualifies.
func Contraindicated(assessment *domain.RiskAssessment) bool {
	return assessment.RiskLabel == domain.RiskToxic && assessment.Severity == domain.SeverityCritical
}

// OverallSeverity returns the highest severity across a set of assessments
func OverallSeverity(assessments []domain.RiskAssessment) domain.Severity {
	overall := domain.SeverityNone
	for _, assessment := range assessments {
		overall = domain.MaxSeverity(overall, assessment.Severity)
	}
	return overall
}
