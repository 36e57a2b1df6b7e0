package metrics

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/repolens/internal/config"
	"github.com/standardbeagle/repolens/internal/graph"
)

// SmellKind classifies a threshold finding.
type SmellKind string

const (
	SmellLongFunction    SmellKind = "long-function"
	SmellComplexFunction SmellKind = "complex-function"
	SmellManyParams      SmellKind = "many-params"
	SmellHighFanOut      SmellKind = "high-fan-out"
	SmellLargeClass      SmellKind = "large-class"
	SmellPackageCycle    SmellKind = "package-cycle"
)

// SmellFinding is one threshold crossing. Rationale text comes from a fixed
// template per kind; free-text generation belongs to the summarizer.
type SmellFinding struct {
	ID        string    `json:"id"` // "<kind>:<target>", stable across runs
	Kind      SmellKind `json:"kind"`
	Target    string    `json:"target"` // entity qualified name
	Severity  string    `json:"severity"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Rationale string    `json:"rationale"`
	// Members carries the SCC for package-cycle findings.
	Members []string `json:"members,omitempty"`
}

// Analyze computes the full report for a snapshot: metrics plus threshold
// findings, in deterministic order.
func Analyze(snap *graph.Snapshot, cfg *config.Config) *Report {
	r := Compute(snap)
	r.Findings = detectSmells(r, cfg)
	return r
}

func detectSmells(r *Report, cfg *config.Config) []SmellFinding {
	var findings []SmellFinding
	th := cfg.Thresholds

	for _, f := range r.Functions {
		if f.LOC > th.FunctionLines {
			findings = append(findings, newFinding(SmellLongFunction, f.ID, f.LOC, th.FunctionLines,
				"function %s is %d lines long, over the limit of %d"))
		}
		if f.Complexity > th.FunctionComplexity {
			findings = append(findings, newFinding(SmellComplexFunction, f.ID, f.Complexity, th.FunctionComplexity,
				"function %s has cyclomatic complexity %d, over the limit of %d"))
		}
		if f.Params > th.FunctionParams {
			findings = append(findings, newFinding(SmellManyParams, f.ID, f.Params, th.FunctionParams,
				"function %s takes %d parameters, over the limit of %d"))
		}
		if f.FanOut > th.FunctionFanOut {
			findings = append(findings, newFinding(SmellHighFanOut, f.ID, f.FanOut, th.FunctionFanOut,
				"function %s calls %d distinct targets, over the limit of %d"))
		}
	}

	for _, c := range r.Classes {
		if c.Methods > th.ClassMethods {
			findings = append(findings, newFinding(SmellLargeClass, c.ID, c.Methods, th.ClassMethods,
				"class %s has %d methods, over the limit of %d"))
		}
	}

	for _, scc := range r.Cycles {
		target := scc[0]
		findings = append(findings, SmellFinding{
			ID:       string(SmellPackageCycle) + ":" + strings.Join(scc, ","),
			Kind:     SmellPackageCycle,
			Target:   target,
			Severity: "high",
			Value:    float64(len(scc)),
			Rationale: fmt.Sprintf("packages %s import each other in a cycle",
				strings.Join(scc, ", ")),
			Members: scc,
		})
	}

	return findings
}

func newFinding(kind SmellKind, target string, value, threshold int, template string) SmellFinding {
	severity := "medium"
	if value >= 2*threshold {
		severity = "high"
	}
	return SmellFinding{
		ID:        string(kind) + ":" + target,
		Kind:      kind,
		Target:    target,
		Severity:  severity,
		Value:     float64(value),
		Threshold: float64(threshold),
		Rationale: fmt.Sprintf(template, target, value, threshold),
	}
}
