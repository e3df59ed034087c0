package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Level selects the rule set applied by a Policy.
type Level string

const (
	// LevelBasic requires a minimum length, at least one letter and one digit,
	// and rejects deny-listed passwords.
	LevelBasic Level = "basic"
	// LevelStrict additionally requires an uppercase letter, a lowercase
	// letter and a symbol from Symbols.
	LevelStrict Level = "strict"
)

// MinLength is the minimum number of characters (runes) in a password.
const MinLength = 8

// Symbols is the punctuation set accepted by the strict level.
const Symbols = "!@#$%^&*()-_+=[]"

// Rule names a single policy check.
type Rule string

const (
	RuleMinLength      Rule = "min_length"
	RuleCommonPassword Rule = "common_password"
	RuleLetter         Rule = "letter"
	RuleDigit          Rule = "digit"
	RuleLowercase      Rule = "lowercase"
	RuleUppercase      Rule = "uppercase"
	RuleSymbol         Rule = "symbol"
)

var ruleMessages = map[Rule]string{
	RuleMinLength:      fmt.Sprintf("password must be at least %d characters long", MinLength),
	RuleCommonPassword: "password is too common",
	RuleLetter:         "password must contain at least one letter",
	RuleDigit:          "password must contain at least one digit",
	RuleLowercase:      "password must contain at least one lowercase letter",
	RuleUppercase:      "password must contain at least one uppercase letter",
	RuleSymbol:         "password must contain at least one of " + Symbols,
}

// PolicyViolation reports the first rule a password failed. Its message is
// safe to show to the end user.
type PolicyViolation struct {
	Rule Rule
}

func (v *PolicyViolation) Error() string {
	return ruleMessages[v.Rule]
}

// Is makes errors.Is(err, common.ErrPolicyViolation) match.
func (v *PolicyViolation) Is(target error) bool {
	return target == common.ErrPolicyViolation
}

// DefaultDenyList holds the common passwords rejected when no list is configured.
func DefaultDenyList() []string {
	return []string{"123456", "password", "qwerty", "12345678", "111111", "abc123", "123123"}
}

// ParseLevel converts a configuration value into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "", LevelBasic:
		return LevelBasic, nil
	case LevelStrict:
		return LevelStrict, nil
	default:
		return "", fmt.Errorf("unknown password policy level %q", s)
	}
}

// Policy validates password strength.
type Policy struct {
	level    Level
	denyList map[string]struct{}
}

// NewPolicy builds a Policy for level. Entries of denyList are compared
// case-insensitively; a nil list means DefaultDenyList.
func NewPolicy(level Level, denyList []string) (*Policy, error) {
	if level != LevelBasic && level != LevelStrict {
		return nil, fmt.Errorf("unknown password policy level %q", level)
	}
	if denyList == nil {
		denyList = DefaultDenyList()
	}

	p := &Policy{level: level, denyList: make(map[string]struct{}, len(denyList))}
	for _, entry := range denyList {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			p.denyList[entry] = struct{}{}
		}
	}
	return p, nil
}

// Level reports the configured rule set.
func (p *Policy) Level() Level {
	return p.level
}

// Validate returns nil when password satisfies the policy, or a
// *PolicyViolation naming the first failing rule.
func (p *Policy) Validate(password string) error {
	if utf8.RuneCountInString(password) < MinLength {
		return &PolicyViolation{Rule: RuleMinLength}
	}
	if _, denied := p.denyList[strings.ToLower(password)]; denied {
		return &PolicyViolation{Rule: RuleCommonPassword}
	}

	var letter, digit, lower, upper, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
			lower = lower || unicode.IsLower(r)
			upper = upper || unicode.IsUpper(r)
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}

	if p.level == LevelStrict {
		switch {
		case !digit:
			return &PolicyViolation{Rule: RuleDigit}
		case !lower:
			return &PolicyViolation{Rule: RuleLowercase}
		case !upper:
			return &PolicyViolation{Rule: RuleUppercase}
		case !symbol:
			return &PolicyViolation{Rule: RuleSymbol}
		}
		return nil
	}

	if !letter {
		return &PolicyViolation{Rule: RuleLetter}
	}
	if !digit {
		return &PolicyViolation{Rule: RuleDigit}
	}
	return nil
}
