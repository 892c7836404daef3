package approval

import (
	"context"
	"testing"
	"time"
)

func TestCheckApprovalGateHighRiskNeverAutoApproved(t *testing.T) {
	w, _ := newTestWorkflow(t)

	decision := w.CheckApprovalGate(GateContext{
		UserID:         "alice",
		Action:         "git.push",
		Classification: ClassifyCommand("git push --force origin main"),
		Privileged:     true,
	})

	if !decision.RequiresApproval {
		t.Fatal("high risk must require approval")
	}
	if decision.AutoApprove {
		t.Error("high risk must never be auto-approved, even for privileged callers")
	}
}

func TestCheckApprovalGateSecurityCategoryNeverAutoApproved(t *testing.T) {
	w, _ := newTestWorkflow(t)

	decision := w.CheckApprovalGate(GateContext{
		UserID: "alice",
		Action: "file.write",
		Classification: Classification{
			Action:           "write:/etc/ssh/sshd_config",
			Category:         CategorySecurityConfig,
			RiskLevel:        RiskMedium,
			RequiresApproval: true,
		},
		Privileged: true,
	})

	if decision.AutoApprove {
		t.Error("security category must never be auto-approved")
	}
}

func TestCheckApprovalGateAutoApprovesPrivilegedLowRisk(t *testing.T) {
	w, _ := newTestWorkflow(t)

	cls := Classification{Action: "write:/repo/notes.md", Category: CategoryFileOverwrite,
		RiskLevel: RiskLow, RequiresApproval: true}

	decision := w.CheckApprovalGate(GateContext{
		UserID: "alice", Action: "file.write", Classification: cls, Privileged: true,
	})
	if !decision.AutoApprove {
		t.Errorf("expected auto-approval, got %+v", decision)
	}

	// Same action, unprivileged caller: human approval needed.
	decision = w.CheckApprovalGate(GateContext{
		UserID: "alice", Action: "file.write", Classification: cls, Privileged: false,
	})
	if decision.AutoApprove {
		t.Error("unprivileged caller must not receive auto-approval")
	}
}

func TestCheckApprovalGateDisabledAutoApprove(t *testing.T) {
	w, _ := newTestWorkflow(t)
	w.cfg.AutoApproveLowRisk = false

	decision := w.CheckApprovalGate(GateContext{
		UserID: "alice",
		Action: "file.write",
		Classification: Classification{Category: CategoryFileOverwrite,
			RiskLevel: RiskLow, RequiresApproval: true},
		Privileged: true,
	})
	if decision.AutoApprove {
		t.Error("auto-approval must honor the config switch")
	}
}

func TestCheckApprovalGateNoApprovalNeeded(t *testing.T) {
	w, _ := newTestWorkflow(t)

	decision := w.CheckApprovalGate(GateContext{
		UserID:         "alice",
		Action:         "file.read",
		Classification: ClassifyFileOperation("read", "/repo/main.go"),
	})
	if decision.RequiresApproval {
		t.Errorf("safe action required approval: %+v", decision)
	}
}

func TestRequestApprovalForGatePass(t *testing.T) {
	w, _ := newTestWorkflow(t)

	outcome, err := w.RequestApprovalForGate(context.Background(), GateContext{
		UserID:         "alice",
		Action:         "file.read",
		Classification: ClassifyFileOperation("read", "/repo/main.go"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Allowed || outcome.Request != nil {
		t.Errorf("expected immediate pass, got %+v", outcome)
	}
}

func TestRequestApprovalForGateAutoApprove(t *testing.T) {
	w, _ := newTestWorkflow(t)

	outcome, err := w.RequestApprovalForGate(context.Background(), GateContext{
		UserID: "alice",
		Action: "file.write",
		Classification: Classification{Category: CategoryFileOverwrite,
			RiskLevel: RiskLow, RequiresApproval: true},
		Privileged: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Allowed || !outcome.AutoApproved {
		t.Errorf("expected auto-approval, got %+v", outcome)
	}
}

func TestRequestApprovalForGateWaitTimesOut(t *testing.T) {
	w := NewWorkflow(NewMemoryStore(), testApprovalConfig(), nil)
	w.cfg.WaitTimeout = 30 * time.Millisecond
	w.cfg.PollInterval = 10 * time.Millisecond

	outcome, err := w.RequestApprovalForGate(context.Background(), GateContext{
		UserID:         "alice",
		Action:         "git.push",
		Classification: ClassifyCommand("git push --force origin main"),
		Privileged:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Allowed {
		t.Error("unresolved approval must not allow the action")
	}
	if outcome.Status != StatusPending {
		t.Errorf("status = %s, want pending", outcome.Status)
	}
	if outcome.Request == nil {
		t.Fatal("expected a created approval request")
	}

	// The request survives the timed-out wait and can still be approved.
	resolved, err := w.Resolve(context.Background(), outcome.Request.ID, "bob", DecisionApprove, "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != StatusApproved {
		t.Errorf("post-timeout resolve produced %s", resolved.Status)
	}
}
