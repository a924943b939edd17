package decision

import (
	"regexp"
	"unicode/utf8"

	"github.com/poluce/clawdbot-feishu/internal/config"
)

// Hard rule names reported in traces.
const (
	RuleCodeBlock     = "code_block"
	RuleInlineCode    = "inline_code"
	RuleTable         = "table"
	RuleMaxLength     = "max_length"
	RuleTechnical     = "technical_keywords"
	RuleExplicitVoice = "explicit_mode_voice"
	RuleExplicitText  = "explicit_mode_text"
)

var (
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")
	tableRowPattern   = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	technicalPattern  = regexp.MustCompile(`(?i)(https?://|\b(api|sdk|json|yaml|xml|sql|regex|npm|git|docker|kubernetes|k8s|stack ?trace|traceback|segfault|localhost|stdout|stderr)\b|\b[a-z_][a-z0-9_]*\([^)\n]*\)|\b[a-z]+_[a-z0-9_]+\b|\w\.(go|py|js|ts|json|yaml|yml|sh)\b)`)
)

// ContentRule is one content-shape veto. Rules run in slice order and the
// first that applies forces text.
type ContentRule struct {
	Name    string
	Enabled func(config.ForceTextConfig) bool
	Applies func(cfg config.ForceTextConfig, text string) bool
}

// ContentRules is the ordered content-shape veto list.
var ContentRules = []ContentRule{
	{
		Name:    RuleCodeBlock,
		Enabled: func(c config.ForceTextConfig) bool { return c.CodeBlock },
		Applies: func(_ config.ForceTextConfig, text string) bool { return fencedCodePattern.MatchString(text) },
	},
	{
		Name:    RuleInlineCode,
		Enabled: func(c config.ForceTextConfig) bool { return c.InlineCode },
		Applies: func(_ config.ForceTextConfig, text string) bool {
			return len(inlineCodePattern.FindAllStringIndex(text, 3)) > 2
		},
	},
	{
		Name:    RuleTable,
		Enabled: func(c config.ForceTextConfig) bool { return c.Table },
		Applies: func(_ config.ForceTextConfig, text string) bool { return tableRowPattern.MatchString(text) },
	},
	{
		Name:    RuleMaxLength,
		Enabled: func(c config.ForceTextConfig) bool { return c.MaxLength > 0 },
		Applies: func(c config.ForceTextConfig, text string) bool { return utf8.RuneCountInString(text) > c.MaxLength },
	},
	{
		Name:    RuleTechnical,
		Enabled: func(c config.ForceTextConfig) bool { return c.TechnicalKeywords },
		Applies: func(_ config.ForceTextConfig, text string) bool { return technicalPattern.MatchString(text) },
	},
}

// CheckContent returns the first enabled content rule that fires.
func CheckContent(cfg config.ForceTextConfig, text string) (string, bool) {
	for _, rule := range ContentRules {
		if !rule.Enabled(cfg) {
			continue
		}
		if rule.Applies(cfg, text) {
			return rule.Name, true
		}
	}
	return "", false
}
