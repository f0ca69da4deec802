package service

import (
	"github.com/pharmaguard-pgx-server/internal/domain"
)

// Static CPIC-derived lookup tables. These are read-only after process start;
// nothing writes to them at runtime.

// diplotypePhenotype maps gene -> diplotype -> phenotype class.
// CYP genes use metabolizer classes (PM/IM/NM/RM/URM); SLCO1B1 uses
// transporter-function classes.
var diplotypePhenotype = map[string]map[string]domain.Phenotype{
	"CYP2D6": {
		"*1/*1": "NM", "*1/*2": "NM", "*2/*2": "NM",
		"*1/*4": "IM", "*1/*5": "IM", "*1/*6": "IM",
		"*4/*4": "PM", "*4/*5": "PM", "*5/*5": "PM",
		"*4/*6": "PM", "*3/*4": "PM", "*3/*5": "PM",
		"*1/*1xN": "URM", "*2xN/*2xN": "URM",
		"*10/*10": "IM", "*41/*41": "IM",
		"*1/*41": "IM", "*2/*41": "IM",
		"*4/*41": "PM",
	},
	"CYP2C19": {
		"*1/*1": "NM", "*1/*2": "IM", "*1/*3": "IM",
		"*2/*2": "PM", "*2/*3": "PM", "*3/*3": "PM",
		"*1/*17": "RM", "*17/*17": "URM",
		"*2/*17": "IM", "*1/*4": "IM",
		"*4/*4": "PM",
	},
	"CYP2C9": {
		"*1/*1": "NM", "*1/*2": "IM", "*1/*3": "IM",
		"*2/*2": "IM", "*2/*3": "PM", "*3/*3": "PM",
		"*1/*5": "IM", "*1/*6": "IM",
		"*5/*5": "PM", "*6/*6": "PM",
	},
	"SLCO1B1": {
		"*1/*1":   "Normal Function",
		"*1/*5":   "Decreased Function",
		"*5/*5":   "Poor Function",
		"*1/*15":  "Decreased Function",
		"*15/*15": "Poor Function",
		"*1/*1b":  "Normal Function",
	},
	"TPMT": {
		"*1/*1": "NM", "*1/*2": "IM", "*1/*3A": "IM",
		"*1/*3B": "IM", "*1/*3C": "IM",
		"*2/*3A": "PM", "*3A/*3A": "PM", "*3C/*3C": "PM",
		"*2/*2": "PM",
	},
	"DPYD": {
		"*1/*1":       "NM",
		"*1/*2A":      "IM",
		"*2A/*2A":     "PM",
		"*1/*13":      "IM",
		"*13/*13":     "PM",
		"*1/HapB3":    "IM",
		"HapB3/HapB3": "PM",
	},
}

// riskEntry is one (risk, severity, confidence, clinical note) tuple
type riskEntry struct {
	Label      domain.RiskLabel
	Severity   domain.Severity
	Confidence float64
	Note       string
}

// drugRisk binds a drug to its primary gene and per-phenotype risk entries
type drugRisk struct {
	Gene  string
	Risks map[domain.Phenotype]riskEntry
}

// drugRiskTable maps drug -> primary gene and phenotype-keyed risk entries
var drugRiskTable = map[string]drugRisk{
	"CODEINE": {
		Gene: "CYP2D6",
		Risks: map[domain.Phenotype]riskEntry{
			"PM":      {domain.RiskIneffective, domain.SeverityModerate, 0.92, "CYP2D6 Poor Metabolizers cannot convert codeine to morphine. Pain relief will be absent. Consider alternative opioid."},
			"IM":      {domain.RiskAdjustDosage, domain.SeverityLow, 0.85, "Reduced conversion to morphine. Lower efficacy expected. Monitor pain control closely."},
			"NM":      {domain.RiskSafe, domain.SeverityNone, 0.95, "Normal codeine metabolism expected. Standard dosing appropriate."},
			"RM":      {domain.RiskAdjustDosage, domain.SeverityModerate, 0.88, "Higher-than-normal morphine levels possible. Monitor for side effects."},
			"URM":     {domain.RiskToxic, domain.SeverityCritical, 0.97, "Ultra-rapid metabolizers convert codeine to morphine dangerously fast. Risk of respiratory depression and death. CONTRAINDICATED."},
			"Unknown": {domain.RiskUnknown, domain.SeverityLow, 0.50, "Insufficient variant data. Genetic testing recommended before prescribing."},
		},
	},
	"WARFARIN": {
		Gene: "CYP2C9",
		Risks: map[domain.Phenotype]riskEntry{
			"NM":      {domain.RiskSafe, domain.SeverityNone, 0.93, "Normal warfarin metabolism. Standard dosing per INR monitoring."},
			"IM":      {domain.RiskAdjustDosage, domain.SeverityModerate, 0.91, "Reduced warfarin metabolism. Start with 25-50% lower dose. Frequent INR monitoring required."},
			"PM":      {domain.RiskAdjustDosage, domain.SeverityHigh, 0.95, "Severely reduced metabolism. Very high bleeding risk at standard doses. Start with 50-75% dose reduction."},
			"Unknown": {domain.RiskUnknown, domain.SeverityLow, 0.50, "Phenotype unknown. Use standard clinical monitoring protocols."},
		},
	},
	"CLOPIDOGREL": {
		Gene: "CYP2C19",
		Risks: map[domain.Phenotype]riskEntry{
			"PM":      {domain.RiskIneffective, domain.SeverityHigh, 0.94, "Poor Metabolizers cannot activate clopidogrel. Platelet inhibition severely reduced. High risk of cardiovascular events. Use prasugrel or ticagrelor."},
			"IM":      {domain.RiskAdjustDosage, domain.SeverityModerate, 0.87, "Reduced activation. Suboptimal platelet inhibition. Consider alternative antiplatelet therapy."},
			"NM":      {domain.RiskSafe, domain.SeverityNone, 0.95, "Normal activation of clopidogrel. Standard dosing appropriate."},
			"RM":      {domain.RiskSafe, domain.SeverityNone, 0.90, "Slightly enhanced activation. Standard dosing appropriate."},
			"URM":     {domain.RiskAdjustDosage, domain.SeverityLow, 0.82, "Possibly enhanced activation. Monitor for bleeding risk."},
			"Unknown": {domain.RiskUnknown, domain.SeverityLow, 0.50, "Phenotype unknown. Genetic testing recommended for high-risk patients."},
		},
	},
	"SIMVASTATIN": {
		Gene: "SLCO1B1",
		Risks: map[domain.Phenotype]riskEntry{
			"Normal Function":    {domain.RiskSafe, domain.SeverityNone, 0.93, "Normal hepatic uptake of simvastatin. Standard dosing appropriate."},
			"Decreased Function": {domain.RiskAdjustDosage, domain.SeverityModerate, 0.90, "Reduced hepatic uptake leads to higher plasma simvastatin. Increased myopathy risk. Limit dose to 20mg or consider alternative statin."},
			"Poor Function":      {domain.RiskToxic, domain.SeverityHigh, 0.95, "Severely impaired hepatic uptake. Very high risk of myopathy and rhabdomyolysis. Avoid simvastatin. Use pravastatin or rosuvastatin."},
			"Unknown":            {domain.RiskUnknown, domain.SeverityLow, 0.50, "Phenotype unknown. Monitor for muscle pain and weakness."},
		},
	},
	"AZATHIOPRINE": {
		Gene: "TPMT",
		Risks: map[domain.Phenotype]riskEntry{
			"NM":      {domain.RiskSafe, domain.SeverityNone, 0.94, "Normal TPMT activity. Standard azathioprine dosing appropriate. Routine monitoring."},
			"IM":      {domain.RiskAdjustDosage, domain.SeverityModerate, 0.91, "Reduced TPMT activity. Start at 30-70% of standard dose. Monitor for myelosuppression."},
			"PM":      {domain.RiskToxic, domain.SeverityCritical, 0.97, "Absent TPMT activity. Standard doses cause life-threatening myelosuppression. Reduce dose by 90% or use alternative immunosuppressant."},
			"Unknown": {domain.RiskUnknown, domain.SeverityLow, 0.50, "Phenotype unknown. TPMT testing strongly recommended before initiating therapy."},
		},
	},
	"FLUOROURACIL": {
		Gene: "DPYD",
		Risks: map[domain.Phenotype]riskEntry{
			"NM":      {domain.RiskSafe, domain.SeverityNone, 0.93, "Normal DPD activity. Standard fluorouracil dosing appropriate."},
			"IM":      {domain.RiskAdjustDosage, domain.SeverityHigh, 0.92, "Reduced DPD activity. Start at 50% dose reduction. Titrate based on toxicity. Life-threatening toxicity risk at standard doses."},
			"PM":      {domain.RiskToxic, domain.SeverityCritical, 0.98, "Absent DPD activity. Standard doses cause severe, potentially fatal toxicity. Fluorouracil is CONTRAINDICATED. Use alternative chemotherapy."},
			"Unknown": {domain.RiskUnknown, domain.SeverityLow, 0.50, "Phenotype unknown. DPYD genotyping strongly recommended before fluorouracil-based chemotherapy."},
		},
	},
}

// drugPhenotype keys the CPIC recommendation and alternative-drug tables
type drugPhenotype struct {
	Drug      string
	Phenotype domain.Phenotype
}

// cpicRecommendations holds CPIC dosing recommendation text per (drug, phenotype)
var cpicRecommendations = map[drugPhenotype]string{
	{"CODEINE", "PM"}:  "Avoid codeine. Use non-opioid analgesics or opioids not metabolized by CYP2D6 (e.g., morphine, hydromorphone).",
	{"CODEINE", "IM"}:  "Use codeine with caution. Consider lower starting dose. Monitor for inadequate analgesia.",
	{"CODEINE", "NM"}:  "Use label-recommended dosing.",
	{"CODEINE", "URM"}: "Avoid codeine. Life-threatening respiratory depression risk. Use non-opioid or alternative opioid.",
	{"CODEINE", "RM"}:  "Use label-recommended dosing. Monitor for opioid side effects.",

	{"WARFARIN", "NM"}: "Use standard ACCP/CPIC dosing algorithm. Target INR 2.0-3.0.",
	{"WARFARIN", "IM"}: "Initiate at 25-50% lower dose. Increase INR monitoring frequency. Use clinical decision support tools.",
	{"WARFARIN", "PM"}: "Initiate at 50-75% lower dose. Very frequent INR monitoring. Consider hematology consult.",

	{"CLOPIDOGREL", "PM"}:  "Use alternative antiplatelet: prasugrel (if no contraindication) or ticagrelor.",
	{"CLOPIDOGREL", "IM"}:  "Consider alternative antiplatelet therapy, especially for high-risk ACS/PCI patients.",
	{"CLOPIDOGREL", "NM"}:  "Use label-recommended dosing (75mg/day maintenance).",
	{"CLOPIDOGREL", "URM"}: "Use label-recommended dosing. Monitor for bleeding.",

	{"SIMVASTATIN", "Normal Function"}:    "Use label-recommended dosing. Max 40mg/day.",
	{"SIMVASTATIN", "Decreased Function"}: "Limit dose to 20mg/day. Consider switching to pravastatin, rosuvastatin, or fluvastatin.",
	{"SIMVASTATIN", "Poor Function"}:      "Avoid simvastatin. Use pravastatin 40mg or rosuvastatin 20mg.",

	{"AZATHIOPRINE", "NM"}: "Use standard dosing (2-3 mg/kg/day). Monitor CBC monthly.",
	{"AZATHIOPRINE", "IM"}: "Reduce dose by 30-70%. Monitor CBC every 2 weeks for first 3 months.",
	{"AZATHIOPRINE", "PM"}: "Reduce dose by 90% or use alternative. Weekly CBC monitoring mandatory.",

	{"FLUOROURACIL", "NM"}: "Use label-recommended dosing.",
	{"FLUOROURACIL", "IM"}: "Reduce starting dose by 50%. Escalate based on tolerance. Monitor for severe toxicity.",
	{"FLUOROURACIL", "PM"}: "Avoid fluorouracil and capecitabine. Use alternative chemotherapy regimen.",
}

// defaultCPICRecommendation is returned when no entry matches
const defaultCPICRecommendation = "Consult CPIC guidelines at cpicpgx.org for specific dosing recommendations."

// alternativeDrugs suggests substitutes per risk scenario
var alternativeDrugs = map[drugPhenotype][]string{
	{"CODEINE", "PM"}:                     {"Morphine", "Hydromorphone", "Oxycodone", "Acetaminophen"},
	{"CODEINE", "URM"}:                    {"Morphine", "Hydromorphone", "Non-opioid analgesics"},
	{"CLOPIDOGREL", "PM"}:                 {"Prasugrel", "Ticagrelor"},
	{"CLOPIDOGREL", "IM"}:                 {"Prasugrel", "Ticagrelor"},
	{"SIMVASTATIN", "Poor Function"}:      {"Pravastatin", "Rosuvastatin", "Fluvastatin"},
	{"SIMVASTATIN", "Decreased Function"}: {"Pravastatin 40mg", "Rosuvastatin 20mg"},
	{"AZATHIOPRINE", "PM"}:                {"Mycophenolate mofetil", "Cyclosporine"},
	{"FLUOROURACIL", "PM"}:                {"Gemcitabine", "Oxaliplatin-based regimens"},
	{"FLUOROURACIL", "IM"}:                {"Reduced dose fluorouracil", "Capecitabine with dose reduction"},
}

// monitoringRecommendations holds drug-specific monitoring guidance
var monitoringRecommendations = map[string]string{
	"WARFARIN":     "INR monitoring every 3-5 days until stable, then monthly",
	"AZATHIOPRINE": "CBC with differential every 1-2 weeks for first 3 months",
	"SIMVASTATIN":  "CK levels at baseline and if muscle symptoms develop",
	"FLUOROURACIL": "CBC before each cycle, monitor for mucositis, diarrhea, hand-foot syndrome",
	"CLOPIDOGREL":  "Platelet function testing if available; monitor for ischemic events",
	"CODEINE":      "Pain scores, respiratory rate, sedation levels",
}

// defaultMonitoring is used for drugs without a specific monitoring entry
const defaultMonitoring = "Standard clinical monitoring"

// All six drug-gene pairs in the panel carry CPIC level A evidence
const cpicEvidenceLevel = "Level A"
