// Package triage implements rule based symptom assessment. Rules live in a
// declarative table that can be loaded from a TOML file so clinical staff can
// tune keywords and risk levels without a code change.
package triage

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/validate"
)

// RiskLevel orders assessment severity from low to critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskModerate: 1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// MoreSevere reports whether r outranks other.
func (r RiskLevel) MoreSevere(other RiskLevel) bool {
	return riskRank[r] > riskRank[other]
}

// Urgency is the recommended response time for an assessment.
type Urgency string

const (
	UrgencyRoutine   Urgency = "ROUTINE"
	UrgencySoon      Urgency = "SOON"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyEmergency Urgency = "EMERGENCY"
)

var urgencyForRisk = map[RiskLevel]Urgency{
	RiskLow:      UrgencyRoutine,
	RiskModerate: UrgencySoon,
	RiskHigh:     UrgencyUrgent,
	RiskCritical: UrgencyEmergency,
}

// Rule matches symptom text against keywords and assigns a risk level.
type Rule struct {
	Name     string    `toml:"name"`
	Keywords []string  `toml:"keywords"`
	Risk     RiskLevel `toml:"risk"`
	Advice   string    `toml:"advice"`
}

// RuleSet is the full declarative rule table.
type RuleSet struct {
	Rules []Rule `toml:"rule"`
}

// Assessment is the outcome of evaluating symptom text. Confidence grows
// with the number of rules that matched, in [0, 1].
type Assessment struct {
	Risk         RiskLevel `json:"risk_level"`
	Urgency      Urgency   `json:"urgency"`
	MatchedRules []string  `json:"matched_rules,omitempty"`
	Advice       []string  `json:"advice,omitempty"`
	Confidence   float64   `json:"confidence"`
	Fallback     bool      `json:"fallback,omitempty"`
}

// lowRiskFallback is returned whenever evaluation cannot complete. Failing
// open at a higher risk would page emergency services on a parser bug,
// failing silent would hide the outage, so the assessment is pinned low with
// advice to contact a clinic directly.
var lowRiskFallback = &Assessment{
	Risk:     RiskLow,
	Urgency:  UrgencyRoutine,
	Advice:   []string{"Assessment is temporarily unavailable. Contact your clinic or dial 10177 if this is an emergency."},
	Fallback: true,
}

// DefaultRules is the compiled in rule table used when no TOML file is
// configured. Chest pain style presentations must always map to CRITICAL.
var DefaultRules = RuleSet{
	Rules: []Rule{
		{
			Name:     "cardiac",
			Keywords: []string{"chest pain", "chest tightness", "heart attack", "crushing pain"},
			Risk:     RiskCritical,
			Advice:   "Call an ambulance on 10177 immediately. Do not drive yourself.",
		},
		{
			Name:     "breathing",
			Keywords: []string{"difficulty breathing", "shortness of breath", "cannot breathe", "struggling to breathe"},
			Risk:     RiskCritical,
			Advice:   "Call an ambulance on 10177 immediately.",
		},
		{
			Name:     "stroke",
			Keywords: []string{"face drooping", "slurred speech", "one side weak", "sudden numbness"},
			Risk:     RiskCritical,
			Advice:   "Possible stroke. Call an ambulance on 10177 immediately.",
		},
		{
			Name:     "severe-bleeding",
			Keywords: []string{"heavy bleeding", "bleeding badly", "blood loss"},
			Risk:     RiskHigh,
			Advice:   "Apply firm pressure to the wound and get to an emergency unit now.",
		},
		{
			Name:     "high-fever",
			Keywords: []string{"high fever", "fever above", "very hot", "temperature above"},
			Risk:     RiskHigh,
			Advice:   "See a clinician today, especially for children and the elderly.",
		},
		{
			Name:     "dehydration",
			Keywords: []string{"vomiting", "diarrhoea", "diarrhea", "cannot keep fluids"},
			Risk:     RiskModerate,
			Advice:   "Take oral rehydration solution and see a clinic within 24 hours if it persists.",
		},
		{
			Name:     "persistent-pain",
			Keywords: []string{"persistent headache", "stomach pain", "abdominal pain", "back pain"},
			Risk:     RiskModerate,
			Advice:   "Book a clinic visit within the next day or two.",
		},
		{
			Name:     "mild",
			Keywords: []string{"runny nose", "sore throat", "mild cough", "sneezing", "blocked nose"},
			Risk:     RiskLow,
			Advice:   "Rest, fluids, and over the counter remedies. See a clinic if it lasts more than a week.",
		},
	},
}

// Engine evaluates symptom text against a rule set.
type Engine struct {
	rules RuleSet
}

// NewEngine returns an engine for the provided rules. An empty rule set is
// rejected since every assessment would fall back.
func NewEngine(rules RuleSet) (*Engine, error) {
	if len(rules.Rules) == 0 {
		return nil, errors.New("triage: empty rule set")
	}
	for _, r := range rules.Rules {
		if r.Name == "" || len(r.Keywords) == 0 {
			return nil, errors.Errorf("triage: rule %q missing name or keywords", r.Name)
		}
		if _, ok := riskRank[r.Risk]; !ok {
			return nil, errors.Errorf("triage: rule %q has unknown risk level %q", r.Name, r.Risk)
		}
	}
	return &Engine{rules: rules}, nil
}

// LoadRules decodes a TOML rule table from the file at path.
func LoadRules(path string) (RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, errors.Trace(err)
	}
	var rules RuleSet
	if _, err := toml.Decode(string(b), &rules); err != nil {
		return RuleSet{}, errors.Trace(err)
	}
	return rules, nil
}

// Assess evaluates free form symptom text. It never returns an error: any
// failure produces the constant low risk fallback so the client always has
// something safe to show.
func (e *Engine) Assess(symptoms string) (a *Assessment) {
	defer func() {
		if r := recover(); r != nil {
			golog.Errorf("Recovered from panic during triage assessment: %v", r)
			a = lowRiskFallback
		}
	}()

	text := strings.ToLower(validate.SanitizeText(symptoms, 2000))
	if text == "" {
		return lowRiskFallback
	}

	result := &Assessment{Risk: RiskLow}
	for _, rule := range e.rules.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				result.MatchedRules = append(result.MatchedRules, rule.Name)
				if rule.Advice != "" {
					result.Advice = append(result.Advice, rule.Advice)
				}
				if rule.Risk.MoreSevere(result.Risk) {
					result.Risk = rule.Risk
				}
				break
			}
		}
	}
	if len(result.MatchedRules) == 0 {
		result.Advice = []string{"No urgent symptoms recognised. Monitor and book a routine clinic visit if symptoms persist."}
	}
	result.Urgency = urgencyForRisk[result.Risk]
	result.Confidence = confidence(len(result.MatchedRules))
	sort.Strings(result.MatchedRules)
	return result
}

// confidence maps the number of matched rules to [0, 1]. Keyword matching is
// coarse so even a strong match never reports full certainty.
func confidence(matched int) float64 {
	c := 0.4 + 0.2*float64(matched)
	if c > 0.9 {
		return 0.9
	}
	return c
}

// Fallback returns the constant low risk assessment used when evaluation is
// unavailable.
func Fallback() *Assessment {
	return lowRiskFallback
}
