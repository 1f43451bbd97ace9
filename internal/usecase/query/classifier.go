package query

import "regexp"

// MaxRiskScore caps the accumulated risk of a query.
const MaxRiskScore = 10.0

// DefaultRiskThreshold rejects a query whose accumulated risk reaches it.
const DefaultRiskThreshold = 5.0

type patternGroup struct {
	category string
	severity float64
	patterns []*regexp.Regexp
}

// Patterns run against the raw query before any sanitization so that
// attack payloads cannot hide behind normalization.
var threatGroups = []patternGroup{
	{
		category: "sql_injection",
		severity: 4.0,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
			regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+table\b`),
			regexp.MustCompile(`(?i)\binsert\s+into\b`),
			regexp.MustCompile(`(?i)\bdelete\s+from\b`),
			regexp.MustCompile(`(?i)'\s*or\s+'?\d+'?\s*=\s*'?\d+`),
			regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|truncate|alter|create)\b`),
			regexp.MustCompile(`(?i);\s*--`),
		},
	},
	{
		category: "xss",
		severity: 4.0,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<\s*script\b`),
			regexp.MustCompile(`(?i)javascript\s*:`),
			regexp.MustCompile(`(?i)\bon(error|load|click|mouseover)\s*=`),
			regexp.MustCompile(`(?i)<\s*iframe\b`),
		},
	},
	{
		category: "command_injection",
		severity: 5.0,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)[;&|]\s*(rm|cat|wget|curl|bash|sh|nc|chmod)\b`),
			regexp.MustCompile("`[^`]+`"),
			regexp.MustCompile(`\$\([^)]+\)`),
			regexp.MustCompile(`(?i)\.\./\.\./`),
		},
	},
}

// Verdict is the classifier output for one query.
type Verdict struct {
	// Category of the highest-severity matched group, empty when clean.
	Category string
	// RiskScore accumulates severities across matched groups, capped at
	// MaxRiskScore.
	RiskScore float64
}

// Classifier scores raw queries against the known threat patterns.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a classifier with the given rejection threshold.
// Zero or negative means DefaultRiskThreshold.
func NewClassifier(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultRiskThreshold
	}
	return &Classifier{threshold: threshold}
}

// Classify matches the raw query against every pattern group. Each matched
// pattern adds its group's severity, so stacked payloads cross the threshold
// even when every group alone would pass.
func (c *Classifier) Classify(raw string) Verdict {
	var v Verdict
	var worst float64
	for _, g := range threatGroups {
		for _, p := range g.patterns {
			if p.MatchString(raw) {
				v.RiskScore += g.severity
				if g.severity > worst {
					worst = g.severity
					v.Category = g.category
				}
			}
		}
	}
	if v.RiskScore > MaxRiskScore {
		v.RiskScore = MaxRiskScore
	}
	return v
}

// Rejects reports whether the verdict crosses the rejection threshold.
func (c *Classifier) Rejects(v Verdict) bool {
	return v.RiskScore >= c.threshold
}
