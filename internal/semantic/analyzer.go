// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package semantic maps a free-text objective to a discrete analysis tuple
// and a multi-label embedding, using a priority-ordered keyword-rule
// cascade grounded on the teacher's internal/planner.PlanParser idiom of
// ordered regex checks over lowercased lines.
package semantic

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// rule is one weighted keyword/regex match contributing to a label's score.
type rule struct {
	pattern *regexp.Regexp
	weight  float64
}

func mustRules(weight float64, terms ...string) []rule {
	rules := make([]rule, 0, len(terms))
	for _, t := range terms {
		rules = append(rules, rule{pattern: regexp.MustCompile(`\b` + t + `\b`), weight: weight})
	}
	return rules
}

// intentOrder is the mandatory priority cascade: deploy is checked before
// create_new so "setup infrastructure" routes to deploy, not creation.
var intentOrder = []model.Intent{
	model.IntentDeploy,
	model.IntentCreateNew,
	model.IntentInvestigate,
	model.IntentValidate,
	model.IntentFixIssue,
	model.IntentModifyExisting,
	model.IntentDocument,
	model.IntentOptimize,
	model.IntentDesign,
}

var intentRules = map[model.Intent][]rule{
	model.IntentDeploy: mustRules(1.0,
		"deploy", "setup", "provision", "release", "ship", "rollout", "cluster", "orchestrat\\w*"),
	model.IntentCreateNew: mustRules(1.0,
		"create", "build", "write", "implement", "add", "new", "generate", "scaffold"),
	model.IntentInvestigate: mustRules(1.0,
		"investigate", "research", "explore", "understand", "analyze", "why"),
	model.IntentValidate: mustRules(1.0,
		"validate", "verify", "check", "test", "confirm", "audit"),
	model.IntentFixIssue: mustRules(1.0,
		"fix", "bug", "broken", "crash", "error", "fail\\w*"),
	model.IntentModifyExisting: mustRules(1.0,
		"modify", "update", "change", "refactor", "rename", "migrate"),
	model.IntentDocument: mustRules(1.0,
		"document", "readme", "docs?", "comment", "explain"),
	model.IntentOptimize: mustRules(1.0,
		"optimize", "speed up", "performance", "latency", "faster", "reduce cost"),
	model.IntentDesign: mustRules(1.0,
		"design", "architect\\w*", "plan out", "draft"),
}

// domainOrder is the mandatory priority cascade: creative runs first so
// "poem/story/art" is never misclassified as code or infrastructure.
var domainOrder = []model.Domain{
	model.DomainCreative,
	model.DomainSecurity,
	model.DomainInfrastructure,
	model.DomainTesting,
	model.DomainUIUX,
	model.DomainData,
	model.DomainDocumentation,
	model.DomainArchitecture,
	model.DomainResearch,
	model.DomainCode,
}

var domainRules = map[model.Domain][]rule{
	model.DomainCreative: mustRules(1.0,
		"poem", "haiku", "story", "art", "creative", "lyric\\w*", "narrative"),
	model.DomainSecurity: mustRules(1.0,
		"security", "vulnerabilit\\w*", "auth\\w*", "encrypt\\w*", "exploit", "credential\\w*"),
	model.DomainInfrastructure: mustRules(1.0,
		"infrastructure", "deploy", "cluster", "kubernetes", "k8s", "cloud", "aws", "terraform", "container\\w*"),
	model.DomainTesting: mustRules(1.0,
		"test\\w*", "coverage", "assertion\\w*", "regression"),
	model.DomainUIUX: mustRules(1.0,
		"dashboard", "visuali[sz]\\w*", "ui", "ux", "frontend", "interface", "design system"),
	model.DomainData: mustRules(1.0,
		"data", "database", "schema", "query", "pipeline", "etl"),
	model.DomainDocumentation: mustRules(1.0,
		"document", "readme", "docs?", "guide", "manual"),
	model.DomainArchitecture: mustRules(1.0,
		"architect\\w*", "system design", "component\\w*", "module\\w*"),
	model.DomainResearch: mustRules(1.0,
		"research", "investigate", "explore", "survey", "literature"),
	model.DomainCode: mustRules(1.0,
		"code", "function", "class", "implement\\w*", "typescript", "javascript", "golang", "python"),
}

// orchestrationContainerVocab disambiguates "orchestration" toward
// infrastructure only when container/cluster vocabulary co-occurs.
var orchestrationContainerVocab = regexp.MustCompile(`\b(container\w*|cluster\w*|kubernetes|k8s|docker|pod\w*|node\w*)\b`)

// orchestrationDashboardVocab disambiguates "orchestration" toward ui_ux
// when dashboard/visualization vocabulary co-occurs instead.
var orchestrationDashboardVocab = regexp.MustCompile(`\b(dashboard\w*|visuali[sz]\w*|chart\w*|graph\w*)\b`)

var orchestrationWord = regexp.MustCompile(`\borchestrat\w*\b`)

var complexityMarkers = regexp.MustCompile(`\b(entire|multiple|integrate|end-to-end|cross-cutting|whole)\b`)

// Analyzer is the stateless SemanticAnalyzer. It carries no external
// dependencies: embedding provider wiring lives in internal/external and is
// merged by the caller (internal/core), per spec §4.1's "no external calls
// are required" clause.
type Analyzer struct {
	calMu       sync.Mutex
	calTotal    int
	calCorrect  int
}

// New constructs a SemanticAnalyzer. Analysis itself is stateless; the
// only mutable state is the running calibration counters FeedbackLoop
// updates (§4.11 step 6).
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze maps a free-text objective to a discrete ObjectiveAnalysis tuple.
// Deterministic, keyword-rule based; never returns an error, matching the
// "no exceptions raised" failure mode.
func (a *Analyzer) Analyze(objective string) model.ObjectiveAnalysis {
	embedding := a.Embed(objective)

	trimmed := strings.TrimSpace(objective)
	if trimmed == "" {
		return model.ObjectiveAnalysis{
			Intent:     model.IntentInvestigate,
			Domain:     model.DomainResearch,
			TaskType:   model.TaskTypeAnalytical,
			Complexity: model.ComplexitySimple,
			Confidence: 0.3,
			Rationale:  "empty objective: defaulting to investigate/research",
		}
	}

	lower := strings.ToLower(trimmed)

	intent := topLabel(intentOrder, embedding.IntentScores, model.IntentInvestigate)
	domain := topDomain(lower, embedding.DomainScores)
	taskType := deriveTaskType(intent, domain)
	complexity := deriveComplexity(trimmed)

	return model.ObjectiveAnalysis{
		Intent:     intent,
		Domain:     domain,
		TaskType:   taskType,
		Complexity: complexity,
		Confidence: embedding.Confidence,
		Rationale:  rationale(intent, domain, taskType, complexity),
	}
}

// Embed produces the multi-label SemanticEmbedding for an objective using
// the keyword fallback (confidence 0.5 ceiling per rule-count, per §4.1).
// When an EmbeddingProvider result is available the caller (internal/core)
// merges it; this method never performs I/O.
func (a *Analyzer) Embed(objective string) model.SemanticEmbedding {
	lower := strings.ToLower(strings.TrimSpace(objective))
	if lower == "" {
		return model.SemanticEmbedding{
			IntentScores:    map[model.Intent]float64{model.IntentInvestigate: 1.0},
			DomainScores:    map[model.Domain]float64{model.DomainResearch: 1.0},
			ComplexityScore: 0,
			Confidence:      0.3,
		}
	}

	intentScores := scoreCascade(lower, intentOrder, intentRules, model.IntentInvestigate)
	domainScores := scoreDomainCascade(lower)

	return model.SemanticEmbedding{
		IntentScores:    intentScores,
		DomainScores:    domainScores,
		ComplexityScore: complexityScore(lower),
		Confidence:      math.Min(margin(intentScores), 0.5),
	}
}

// scoreCascade counts weighted rule matches per label and normalizes so
// scores sum to 1. Labels with no matches at all fall back to defaultLabel's
// prior so downstream consumers never divide by a true zero vector; the
// default is an explicit parameter rather than the last cascade entry
// because priority order and "what a zero-match objective defaults to" are
// independent choices (intent's default, investigate, sits third in its
// priority order, not last).
func scoreCascade[L comparable](lower string, order []L, rules map[L][]rule, defaultLabel L) map[L]float64 {
	raw := make(map[L]float64, len(order))
	var total float64
	for _, label := range order {
		var score float64
		for _, r := range rules[label] {
			if r.pattern.MatchString(lower) {
				score += r.weight
			}
		}
		raw[label] = score
		total += score
	}
	if total == 0 {
		raw[defaultLabel] = 1.0
		return raw
	}
	for label, score := range raw {
		raw[label] = score / total
	}
	return raw
}

// scoreDomainCascade applies the domain rule cascade plus the mandatory
// "orchestration" contextual disambiguation.
func scoreDomainCascade(lower string) map[model.Domain]float64 {
	scores := scoreCascade(lower, domainOrder, domainRules, model.DomainCode)

	if orchestrationWord.MatchString(lower) {
		switch {
		case orchestrationContainerVocab.MatchString(lower):
			scores[model.DomainInfrastructure] += 1.0
		case orchestrationDashboardVocab.MatchString(lower):
			scores[model.DomainUIUX] += 1.0
		}
		var total float64
		for _, v := range scores {
			total += v
		}
		if total > 0 {
			for d, v := range scores {
				scores[d] = v / total
			}
		}
	}

	return scores
}

// topLabel returns the cascade's top-scoring label; on a tie the first
// label in priority order wins, which a stable iteration over `order`
// guarantees. def is returned only when order is empty.
func topLabel(order []model.Intent, scores map[model.Intent]float64, def model.Intent) model.Intent {
	best := def
	bestScore := -1.0
	for _, label := range order {
		if s := scores[label]; s > bestScore {
			bestScore = s
			best = label
		}
	}
	return best
}

// topDomain mirrors topLabel for domains, with the orchestration
// disambiguation cascade already folded into the score map.
func topDomain(lower string, scores map[model.Domain]float64) model.Domain {
	best := model.DomainCode
	bestScore := -1.0
	for _, label := range domainOrder {
		if s := scores[label]; s > bestScore {
			bestScore = s
			best = label
		}
	}
	return best
}

// margin is the confidence signal: the gap between the top score and the
// runner-up, clamped to [0,1].
func margin[L comparable](scores map[L]float64) float64 {
	top, second := -1.0, -1.0
	for _, s := range scores {
		switch {
		case s > top:
			second = top
			top = s
		case s > second:
			second = s
		}
	}
	if second < 0 {
		second = 0
	}
	m := top - second
	if m > 1 {
		m = 1
	}
	if m < 0 {
		m = 0
	}
	return m
}

func complexityScore(lower string) float64 {
	score := math.Min(float64(len(strings.Fields(lower)))/40.0, 1.0)
	if complexityMarkers.MatchString(lower) {
		score = math.Min(score+0.3, 1.0)
	}
	return score
}

func deriveComplexity(objective string) model.Complexity {
	score := complexityScore(strings.ToLower(objective))
	switch {
	case score >= 0.7:
		return model.ComplexityComplex
	case score >= 0.35:
		return model.ComplexityModerate
	default:
		return model.ComplexitySimple
	}
}

// deriveTaskType maps intent+domain onto the five task-type buckets.
func deriveTaskType(intent model.Intent, domain model.Domain) model.TaskType {
	switch {
	case domain == model.DomainCreative:
		return model.TaskTypeCreative
	case domain == model.DomainDocumentation || intent == model.IntentDocument:
		return model.TaskTypeCommunicative
	case intent == model.IntentInvestigate || intent == model.IntentValidate:
		return model.TaskTypeAnalytical
	case intent == model.IntentDeploy:
		return model.TaskTypeOperational
	default:
		return model.TaskTypeTechnical
	}
}

// RequiredCapabilities maps a domain+intent pair to the capability tags the
// Planner uses to query AgentRegistry.selectByCapabilities (step 6b). This
// keeps SemanticAnalyzer free of any AgentId knowledge while still driving
// the mandatory-agent rules of §4.9e (e.g. domain=infrastructure always
// requires the "devops" capability, domain=creative requires
// "creative_writing").
func RequiredCapabilities(domain model.Domain, intent model.Intent) []string {
	caps := []string{}
	switch domain {
	case model.DomainCreative:
		caps = append(caps, "creative_writing")
	case model.DomainSecurity:
		caps = append(caps, "security_review")
	case model.DomainInfrastructure:
		caps = append(caps, "devops")
	case model.DomainTesting:
		caps = append(caps, "verification")
	case model.DomainUIUX:
		caps = append(caps, "design")
	case model.DomainData:
		caps = append(caps, "data_engineering")
	case model.DomainDocumentation:
		caps = append(caps, "technical_writing")
	case model.DomainArchitecture:
		caps = append(caps, "architecture")
	case model.DomainResearch:
		caps = append(caps, "research")
	case model.DomainCode:
		caps = append(caps, "implementation")
	}

	switch intent {
	case model.IntentDeploy:
		caps = append(caps, "devops")
	case model.IntentValidate:
		caps = append(caps, "verification")
	case model.IntentDocument:
		caps = append(caps, "technical_writing")
	}

	return dedupe(caps)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func rationale(intent model.Intent, domain model.Domain, taskType model.TaskType, complexity model.Complexity) string {
	var b strings.Builder
	b.WriteString("intent=")
	b.WriteString(string(intent))
	b.WriteString(" domain=")
	b.WriteString(string(domain))
	b.WriteString(" task_type=")
	b.WriteString(string(taskType))
	b.WriteString(" complexity=")
	b.WriteString(string(complexity))
	return b.String()
}
