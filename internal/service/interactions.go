package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// geneDrugMap lists substrate drugs per pharmacogene. Substrates beyond the
// assessed panel are included so co-prescription risks surface even for drugs
// the risk engine cannot assess directly.
var geneDrugMap = map[string][]string{
	"CYP2D6":  {"CODEINE", "TRAMADOL", "OXYCODONE", "METOPROLOL", "PAROXETINE", "FLUOXETINE", "HALOPERIDOL"},
	"CYP2C19": {"CLOPIDOGREL", "OMEPRAZOLE", "ESCITALOPRAM", "DIAZEPAM", "VORICONAZOLE"},
	"CYP2C9":  {"WARFARIN", "PHENYTOIN", "IBUPROFEN", "CELECOXIB", "FLUVASTATIN"},
	"SLCO1B1": {"SIMVASTATIN", "ATORVASTATIN", "PRAVASTATIN", "ROSUVASTATIN", "METHOTREXATE"},
	"TPMT":    {"AZATHIOPRINE", "MERCAPTOPURINE", "THIOGUANINE"},
	"DPYD":    {"FLUOROURACIL", "CAPECITABINE", "TEGAFUR"},
}

// interactionGeneOrder fixes iteration order over geneDrugMap
var interactionGeneOrder = []string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"}

// cypInhibitors maps inhibitor drugs to the genes they inhibit and how strongly
var cypInhibitors = map[string]map[string]string{
	"FLUOXETINE":   {"CYP2D6": "strong"},
	"PAROXETINE":   {"CYP2D6": "strong"},
	"OMEPRAZOLE":   {"CYP2C19": "moderate"},
	"VORICONAZOLE": {"CYP2C19": "strong", "CYP2C9": "strong"},
	"FLUVASTATIN":  {"CYP2C9": "moderate"},
}

// knownCombo is one documented dangerous drug pair
type knownCombo struct {
	Drugs          [2]string
	Severity       domain.Severity
	Mechanism      string
	Recommendation string
}

var dangerousCombos = []knownCombo{
	{
		Drugs:          [2]string{"CODEINE", "FLUOXETINE"},
		Severity:       domain.SeverityHigh,
		Mechanism:      "Fluoxetine strongly inhibits CYP2D6, reducing codeine-to-morphine conversion. Risk of inefficacy and unpredictable opioid levels.",
		Recommendation: "Avoid combination. Use non-CYP2D6-dependent opioid.",
	},
	{
		Drugs:          [2]string{"CODEINE", "PAROXETINE"},
		Severity:       domain.SeverityHigh,
		Mechanism:      "Paroxetine is a potent CYP2D6 inhibitor. Combined with codeine, creates phenocopying of poor metabolizer status.",
		Recommendation: "Contraindicated. Switch to morphine or hydromorphone.",
	},
	{
		Drugs:          [2]string{"WARFARIN", "FLUOXETINE"},
		Severity:       domain.SeverityModerate,
		Mechanism:      "Fluoxetine inhibits CYP2C9 moderately, increasing warfarin plasma levels and bleeding risk.",
		Recommendation: "Increase INR monitoring frequency. Consider dose reduction.",
	},
	{
		Drugs:          [2]string{"SIMVASTATIN", "ATORVASTATIN"},
		Severity:       domain.SeverityModerate,
		Mechanism:      "Both statins compete for SLCO1B1-mediated hepatic uptake. Combined use amplifies myopathy risk.",
		Recommendation: "Avoid combination. Use single statin at appropriate dose.",
	},
	{
		Drugs:          [2]string{"AZATHIOPRINE", "MERCAPTOPURINE"},
		Severity:       domain.SeverityCritical,
		Mechanism:      "Both are TPMT substrates. Combination causes compounding myelosuppression risk.",
		Recommendation: "CONTRAINDICATED. Never combine.",
	},
	{
		Drugs:          [2]string{"FLUOROURACIL", "CAPECITABINE"},
		Severity:       domain.SeverityCritical,
		Mechanism:      "Both are DPYD substrates. Combination massively increases fluoropyrimidine toxicity.",
		Recommendation: "CONTRAINDICATED. Use only one fluoropyrimidine at a time.",
	},
	{
		Drugs:          [2]string{"CLOPIDOGREL", "OMEPRAZOLE"},
		Severity:       domain.SeverityHigh,
		Mechanism:      "Omeprazole inhibits CYP2C19, reducing clopidogrel activation by up to 45%. Increased risk of cardiovascular events.",
		Recommendation: "Use pantoprazole instead of omeprazole. Pantoprazole has minimal CYP2C19 inhibition.",
	},
}

// InteractionService detects drug-drug interactions across a prescription
// list, informed by the patient's per-gene phenotypes.
type InteractionService struct {
	logger *logrus.Logger
}

// NewInteractionService creates a new interaction service
func NewInteractionService(logger *logrus.Logger) *InteractionService {
	return &InteractionService{logger: logger}
}

// Analyze runs all three interaction checks over the drug list and summarizes
// the findings with an overall severity.
func (s *InteractionService) Analyze(drugs []string, assessments []domain.RiskAssessment) *domain.InteractionAnalysis {
	phenotypes := make(map[string]domain.Phenotype)
	for _, assessment := range assessments {
		if assessment.PrimaryGene != "" {
			phenotypes[assessment.PrimaryGene] = assessment.Phenotype
		}
	}

	normalized := make([]string, 0, len(drugs))
	for _, drug := range drugs {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(drug)))
	}

	analysis := &domain.InteractionAnalysis{
		SharedGeneRisks:   s.checkSharedGeneRisk(normalized, phenotypes),
		KnownInteractions: s.checkKnownInteractions(normalized),
		InhibitorEffects:  s.checkInhibitorEffects(normalized),
	}

	analysis.TotalInteractions = len(analysis.SharedGeneRisks) + len(analysis.KnownInteractions) + len(analysis.InhibitorEffects)
	analysis.InteractionsFound = analysis.TotalInteractions > 0

	analysis.OverallSeverity = domain.SeverityNone
	for _, group := range [][]domain.Interaction{analysis.SharedGeneRisks, analysis.KnownInteractions, analysis.InhibitorEffects} {
		for _, interaction := range group {
			analysis.OverallSeverity = domain.MaxSeverity(analysis.OverallSeverity, interaction.Severity)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"drugs":              normalized,
		"total_interactions": analysis.TotalInteractions,
		"overall_severity":   analysis.OverallSeverity,
	}).Info("Completed interaction analysis")

	return analysis
}

// checkSharedGeneRisk flags gene pathways that two or more selected drugs
// depend on, weighted by the patient's phenotype for that gene
func (s *InteractionService) checkSharedGeneRisk(drugs []string, phenotypes map[string]domain.Phenotype) []domain.Interaction {
	var interactions []domain.Interaction

	for _, gene := range interactionGeneOrder {
		substrates := geneDrugMap[gene]
		var shared []string
		for _, drug := range drugs {
			if containsDrug(substrates, drug) {
				shared = append(shared, drug)
			}
		}
		if len(shared) < 2 {
			continue
		}

		phenotype, ok := phenotypes[gene]
		if !ok {
			phenotype = domain.PhenotypeUnknown
		}

		var severity domain.Severity
		var message string
		joined := strings.Join(shared, ", ")

		switch phenotype {
		case domain.PhenotypePM:
			severity = domain.SeverityCritical
			message = fmt.Sprintf("COMPOUND RISK: Patient is a Poor Metabolizer for %s. Multiple drugs (%s) depend on this pathway. Risk of compounding toxicity or inefficacy is CRITICAL.", gene, joined)
		case domain.PhenotypeIM:
			severity = domain.SeverityHigh
			message = fmt.Sprintf("ELEVATED RISK: Patient is an Intermediate Metabolizer for %s. Multiple drugs (%s) use this pathway. Monitor closely for cumulative adverse effects.", gene, joined)
		case domain.PhenotypeURM:
			severity = domain.SeverityHigh
			message = fmt.Sprintf("ULTRARAPID METABOLIZER RISK: %s URM with multiple substrates (%s). All drugs may be rapidly cleared with risk of inefficacy.", gene, joined)
		case domain.PhenotypeNM:
			severity = domain.SeverityLow
			message = fmt.Sprintf("Low risk: Normal %s activity with multiple substrates (%s). Standard monitoring recommended.", gene, joined)
		default:
			// Unknown phenotype on a shared pathway produces no finding.
			continue
		}

		interactions = append(interactions, domain.Interaction{
			Type:           domain.InteractionSharedGene,
			Gene:           gene,
			DrugsInvolved:  shared,
			Phenotype:      phenotype,
			Severity:       severity,
			Message:        message,
			Recommendation: fmt.Sprintf("Consider sequencing or spacing %s substrate drugs. Consult CPIC.", gene),
		})
	}

	return interactions
}

// checkKnownInteractions flags documented dangerous drug pairs present in the
// prescription list
func (s *InteractionService) checkKnownInteractions(drugs []string) []domain.Interaction {
	var interactions []domain.Interaction

	for _, combo := range dangerousCombos {
		if !containsDrug(drugs, combo.Drugs[0]) || !containsDrug(drugs, combo.Drugs[1]) {
			continue
		}
		interactions = append(interactions, domain.Interaction{
			Type:           domain.InteractionKnownCombo,
			DrugsInvolved:  []string{combo.Drugs[0], combo.Drugs[1]},
			Severity:       combo.Severity,
			Mechanism:      combo.Mechanism,
			Message:        fmt.Sprintf("Known interaction between %s + %s: %s", combo.Drugs[0], combo.Drugs[1], combo.Mechanism),
			Recommendation: combo.Recommendation,
		})
	}

	return interactions
}

// checkInhibitorEffects flags prescribed CYP inhibitors that would phenocopy
// a poor metabolizer for co-prescribed substrates
func (s *InteractionService) checkInhibitorEffects(drugs []string) []domain.Interaction {
	var interactions []domain.Interaction

	for _, inhibitor := range drugs {
		strengths, ok := cypInhibitors[inhibitor]
		if !ok {
			continue
		}
		for _, gene := range interactionGeneOrder {
			strength, ok := strengths[gene]
			if !ok {
				continue
			}
			var affected []string
			for _, drug := range drugs {
				if drug != inhibitor && containsDrug(geneDrugMap[gene], drug) {
					affected = append(affected, drug)
				}
			}
			if len(affected) == 0 {
				continue
			}

			severity := domain.SeverityModerate
			if strength == "strong" {
				severity = domain.SeverityHigh
			}

			interactions = append(interactions, domain.Interaction{
				Type:               domain.InteractionInhibitor,
				Gene:               gene,
				InhibitorDrug:      inhibitor,
				InhibitionStrength: strength,
				DrugsInvolved:      affected,
				Severity:           severity,
				Message:            fmt.Sprintf("%s is a %s %s inhibitor. This may phenocopy a Poor Metabolizer for: %s.", inhibitor, strength, gene, strings.Join(affected, ", ")),
				Recommendation:     fmt.Sprintf("Review %s substrate doses when co-prescribed with %s.", gene, inhibitor),
			})
		}
	}

	return interactions
}

// containsDrug reports whether a drug list contains the given drug
func containsDrug(drugs []string, drug string) bool {
	for _, candidate := range drugs {
		if candidate == drug {
			return true
		}
	}
	return false
}
