// Package prompt classifies the tail of a terminal output stream as a pending
// interactive prompt (password request, yes/no confirmation) or nothing.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// Kind is the kind of input a prompt waits for.
type Kind int

const (
	// Password is a privilege password request; typed text must be hidden.
	Password Kind = iota
	// Confirmation is a yes/no question.
	Confirmation
)

func (k Kind) String() string {
	switch k {
	case Password:
		return "password"
	case Confirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Prompt is a detected blocking request.
type Prompt struct {
	// ID is assigned by the session that raised the prompt. Zero for matcher results.
	ID   uint64
	Kind Kind
	// Mask is true when typed characters must not be displayed.
	Mask bool
	// DefaultHint is the capitalised (default) answer letter, 0 when there is none.
	DefaultHint rune
	// Text is the prompt line with escape sequences removed.
	Text string
	// Rule is the name of the rule that matched.
	Rule string
}

// Hint describes how to answer the prompt, for display next to an input field.
func (p Prompt) Hint() string {
	switch {
	case p.Kind == Password:
		return "Enter password (input hidden)"
	case p.DefaultHint != 0:
		return fmt.Sprintf("Answer y/n, Enter for %c", p.DefaultHint)
	default:
		return "Answer y/n"
	}
}

// Rule is a single classification rule. Pattern is evaluated against the ANSI-stripped
// tail and must be anchored to the end of the text.
type Rule struct {
	Name    string
	Kind    Kind
	Mask    bool
	Pattern *regexp.Regexp
	// Hint derives DefaultHint from the submatches. Optional.
	Hint func(match []string) rune
}

// defaultPasswordPhrases are the request phrases recognised in front of the colon.
// sudo, su, ssh-agent and polkit prompts plus a few common translations.
var defaultPasswordPhrases = []string{
	"password",
	"passphrase",
	"senha",
	"contraseña",
	"passwort",
	"mot de passe",
	"пароль",
}

// confirmationPattern matches "[Y/n]" style suffixes, optionally followed by ':' or
// '?' as dnf and flatpak print them. The left letter is a yes letter in one of the
// supported languages (yes, sim/sí, ja, oui).
var confirmationPattern = regexp.MustCompile(`(?i)\[([ysjo])/(n)\]\s*[:?]?\s*$`)

var confirmationParenPattern = regexp.MustCompile(`(?i)\(([ysjo])/(n)\)\s*[:?]?\s*$`)

// PasswordPattern builds the password rule pattern for the given phrases.
func PasswordPattern(phrases []string) *regexp.Regexp {
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	// A request phrase, anything on the same line, then a colon ending the text.
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)[^\n]*:\s*$`)
}

// capitalHint returns the letter that is upper case when exactly one of the two is.
func capitalHint(match []string) rune {
	if len(match) < 3 {
		return 0
	}
	yes, no := []rune(match[1])[0], []rune(match[2])[0]
	yesUpper, noUpper := unicode.IsUpper(yes), unicode.IsUpper(no)
	switch {
	case yesUpper && !noUpper:
		return yes
	case noUpper && !yesUpper:
		return no
	default:
		return 0
	}
}

// DefaultRules returns the built-in rules in priority order: password first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "password",
			Kind:    Password,
			Mask:    true,
			Pattern: PasswordPattern(defaultPasswordPhrases),
		},
		{
			Name:    "confirmation",
			Kind:    Confirmation,
			Pattern: confirmationPattern,
			Hint:    capitalHint,
		},
		{
			Name:    "confirmation-paren",
			Kind:    Confirmation,
			Pattern: confirmationParenPattern,
			Hint:    capitalHint,
		},
	}
}

// Matcher evaluates an ordered rule list. It holds no per-stream state and is safe for
// concurrent use.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher. Without rules it uses DefaultRules.
func NewMatcher(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

// WithPasswordPhrases returns a matcher whose password rule also recognises the extra
// phrases. Other rules are kept in place.
func (m *Matcher) WithPasswordPhrases(extra []string) *Matcher {
	if len(extra) == 0 {
		return m
	}
	phrases := append(append([]string{}, defaultPasswordPhrases...), extra...)
	rules := make([]Rule, len(m.rules))
	copy(rules, m.rules)
	for i := range rules {
		if rules[i].Kind == Password {
			rules[i].Pattern = PasswordPattern(phrases)
		}
	}
	return &Matcher{rules: rules}
}

// Rules returns a copy of the rule list.
func (m *Matcher) Rules() []Rule {
	rules := make([]Rule, len(m.rules))
	copy(rules, m.rules)
	return rules
}

// Match classifies tail. The first matching rule wins.
func (m *Matcher) Match(tail string) (Prompt, bool) {
	text := Clean(tail)
	if strings.TrimSpace(text) == "" {
		return Prompt{}, false
	}

	for _, rule := range m.rules {
		match := rule.Pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		p := Prompt{
			Kind: rule.Kind,
			Mask: rule.Mask,
			Text: lastLine(text),
			Rule: rule.Name,
		}
		if rule.Hint != nil {
			p.DefaultHint = rule.Hint(match)
		}
		return p, true
	}
	return Prompt{}, false
}

// Clean removes escape sequences and carriage returns so that redrawn lines read as
// plain text.
func Clean(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func lastLine(s string) string {
	s = strings.TrimRight(s, " \t\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
