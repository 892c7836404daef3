package approval

import (
	"regexp"
	"strings"
)

// Action categories assigned by the classification tables.
const (
	CategoryFileDelete       = "FILE_DELETE"
	CategoryFileOverwrite    = "FILE_OVERWRITE"
	CategoryShellDestructive = "SHELL_DESTRUCTIVE"
	CategoryShellPrivileged  = "SHELL_PRIVILEGED"
	CategoryShellNetwork     = "SHELL_NETWORK"
	CategoryPackageInstall   = "PACKAGE_INSTALL"
	CategoryGitForcePush     = "GIT_FORCE_PUSH"
	CategoryGitDestructive   = "GIT_DESTRUCTIVE"
	CategoryDBDestructive    = "DB_DESTRUCTIVE"
	CategoryIntegration      = "INTEGRATION_WRITE"
	CategoryPayment          = "PAYMENT"
	CategoryCodeExecution    = "CODE_EXECUTION"
	CategorySkillMutation    = "SKILL_MUTATION"
	CategorySecurityConfig   = "SECURITY_CONFIG"
	CategorySafe             = "SAFE"
)

// ActionPattern is one classification rule. Tables of patterns are
// ordered; the first matching rule wins.
type ActionPattern struct {
	// Matcher tests the raw action descriptor.
	Matcher *regexp.Regexp

	// Category labels the matched action.
	Category string

	// RiskLevel grades the matched action.
	RiskLevel RiskLevel

	// RequiresApproval forces the approval workflow for this rule even
	// when gating flags would not.
	RequiresApproval bool

	// Description is a human explanation for audit and approval prompts.
	Description string
}

// Classification is the result of matching an action descriptor
// against a pattern table.
type Classification struct {
	Action           string    `json:"action"`
	Category         string    `json:"category"`
	RiskLevel        RiskLevel `json:"risk_level"`
	RequiresApproval bool      `json:"requires_approval"`
	Description      string    `json:"description"`
}

func rule(expr, category string, risk RiskLevel, requires bool, desc string) ActionPattern {
	return ActionPattern{
		Matcher:          regexp.MustCompile(expr),
		Category:         category,
		RiskLevel:        risk,
		RequiresApproval: requires,
		Description:      desc,
	}
}

// commandPatterns classifies raw shell commands. Order matters: the
// most specific destructive rules come before broad ones.
var commandPatterns = []ActionPattern{
	rule(`(?i)\brm\s+(-[a-z]*\s+)*(/|~|\*|\$HOME)`, CategoryShellDestructive, RiskHigh, true, "recursive or rooted file removal"),
	rule(`(?i)\b(mkfs|fdisk|parted)\b`, CategoryShellDestructive, RiskHigh, true, "disk formatting or partitioning"),
	rule(`(?i)\bdd\s+.*of=/dev/`, CategoryShellDestructive, RiskHigh, true, "raw device write"),
	rule(`(?i)\b(shutdown|reboot|halt|poweroff)\b`, CategoryShellDestructive, RiskHigh, true, "host power control"),
	rule(`(?i)\bkill\s+-9\s+1\b`, CategoryShellDestructive, RiskHigh, true, "killing init"),
	rule(`(?i)\bgit\s+push\s+.*(--force|-f)\b`, CategoryGitForcePush, RiskHigh, true, "forced git push rewrites remote history"),
	rule(`(?i)\bgit\s+(reset\s+--hard|clean\s+-[a-z]*f|branch\s+-D)\b`, CategoryGitDestructive, RiskMedium, true, "destructive local git operation"),
	rule(`(?i)\bgit\s+push\b`, CategoryGitForcePush, RiskMedium, false, "git push to a remote"),
	rule(`(?i)\b(drop|truncate)\s+(table|database|schema)\b`, CategoryDBDestructive, RiskHigh, true, "destructive database statement"),
	rule(`(?i)\bdelete\s+from\s+\w+\s*(;|$)`, CategoryDBDestructive, RiskHigh, true, "unqualified SQL delete"),
	rule(`(?i)\bsudo\b`, CategoryShellPrivileged, RiskHigh, true, "privilege escalation"),
	rule(`(?i)\b(chmod|chown)\s+(-[a-z]+\s+)*777\b`, CategoryShellPrivileged, RiskMedium, true, "world-writable permission change"),
	rule(`(?i)\b(useradd|userdel|passwd|visudo)\b`, CategorySecurityConfig, RiskHigh, true, "account or sudoers change"),
	rule(`(?i)\b(iptables|ufw|firewall-cmd)\b`, CategorySecurityConfig, RiskHigh, true, "firewall change"),
	rule(`(?i)\bssh-keygen\b|authorized_keys`, CategorySecurityConfig, RiskHigh, true, "SSH key material change"),
	rule(`(?i)\b(npm|yarn|pnpm)\s+(install|add|i)\b`, CategoryPackageInstall, RiskMedium, false, "Node package install"),
	rule(`(?i)\bpip3?\s+install\b`, CategoryPackageInstall, RiskMedium, false, "Python package install"),
	rule(`(?i)\b(apt(-get)?|yum|dnf|brew|apk)\s+(install|add)\b`, CategoryPackageInstall, RiskMedium, false, "system package install"),
	rule(`(?i)\bgo\s+(install|get)\b`, CategoryPackageInstall, RiskMedium, false, "Go package install"),
	rule(`(?i)\b(curl|wget)\s+[^|]*\|\s*(ba)?sh\b`, CategoryShellDestructive, RiskHigh, true, "piping a download into a shell"),
	rule(`(?i)\b(curl|wget|nc|ncat|telnet)\b`, CategoryShellNetwork, RiskMedium, false, "outbound network command"),
	rule(`(?i)\b(eval|exec)\s`, CategoryCodeExecution, RiskMedium, true, "dynamic code execution"),
}

// fileOperationPatterns classifies "op:path" descriptors produced by
// the filesystem enforcement path.
var fileOperationPatterns = []ActionPattern{
	rule(`(?i)^delete:.*(\.env|\.pem|\.key|id_rsa|credentials)`, CategorySecurityConfig, RiskHigh, true, "deleting credential material"),
	rule(`(?i)^delete:(/etc/|/usr/|/bin/|/boot/)`, CategoryFileDelete, RiskHigh, true, "deleting system files"),
	rule(`(?i)^delete:`, CategoryFileDelete, RiskMedium, true, "file deletion"),
	rule(`(?i)^write:.*(\.env|\.pem|\.key|id_rsa|credentials|authorized_keys)`, CategorySecurityConfig, RiskHigh, true, "writing credential material"),
	rule(`(?i)^write:(/etc/|/usr/|/bin/|/boot/)`, CategoryFileOverwrite, RiskHigh, true, "overwriting system files"),
	rule(`(?i)^write:.*(\.github/workflows|Dockerfile|Makefile)`, CategoryFileOverwrite, RiskMedium, true, "overwriting build or CI configuration"),
	rule(`(?i)^write:`, CategoryFileOverwrite, RiskLow, false, "file write"),
}

// gitOperationPatterns classifies "verb:args" git descriptors.
var gitOperationPatterns = []ActionPattern{
	rule(`(?i)^push:.*(--force|-f)\b`, CategoryGitForcePush, RiskHigh, true, "forced push rewrites remote history"),
	rule(`(?i)^push:.*(main|master|release)`, CategoryGitForcePush, RiskMedium, true, "push to a protected branch"),
	rule(`(?i)^push:`, CategoryGitForcePush, RiskMedium, false, "push to a remote"),
	rule(`(?i)^(reset:--hard|clean:|branch:-D)`, CategoryGitDestructive, RiskMedium, true, "destructive local git operation"),
}

func classify(action string, table []ActionPattern) Classification {
	for _, p := range table {
		if p.Matcher.MatchString(action) {
			return Classification{
				Action:           action,
				Category:         p.Category,
				RiskLevel:        p.RiskLevel,
				RequiresApproval: p.RequiresApproval,
				Description:      p.Description,
			}
		}
	}
	return Classification{
		Action:    action,
		Category:  CategorySafe,
		RiskLevel: RiskLow,
	}
}

// ClassifyCommand classifies a raw shell command.
func ClassifyCommand(command string) Classification {
	return classify(command, commandPatterns)
}

// ClassifyFileOperation classifies a filesystem operation. op is
// "read", "write", or "delete".
func ClassifyFileOperation(op, path string) Classification {
	return classify(op+":"+path, fileOperationPatterns)
}

// ClassifyGitOperation classifies a git operation such as
// ("push", "--force origin main").
func ClassifyGitOperation(verb, args string) Classification {
	return classify(verb+":"+args, gitOperationPatterns)
}

// mediumRiskAlwaysPrefixes are medium-risk action prefixes that require
// approval regardless of classification or gating flags.
var mediumRiskAlwaysPrefixes = []string{
	"skill.activate",
	"skill.update",
	"integration.delete",
	"browser.write",
	"sandbox.execute",
	"budget.override",
}

// RequiresApproval reports whether an action at the given risk level
// must go through the approval workflow. Every high-risk action
// requires approval; a fixed set of medium-risk action prefixes always
// does too.
func RequiresApproval(action string, risk RiskLevel) bool {
	if risk == RiskHigh {
		return true
	}
	if risk == RiskMedium {
		for _, prefix := range mediumRiskAlwaysPrefixes {
			if strings.HasPrefix(action, prefix) {
				return true
			}
		}
	}
	return false
}
