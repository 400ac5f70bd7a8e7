// Package workflow implements the eight-step guided assessment wizard.
// Each session walks a linear sequence of steps, collecting the pieces of
// one or more bowtie pathways; the review step exports them as a scored
// table. Session state is last-write-wins within its own session, matching
// the single-user interaction model.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecorisk/bowtie/pkg/bowtie"
)

// Step identifies one wizard stage.
type Step int

const (
	StepProjectSetup Step = iota
	StepActivities
	StepPressures
	StepPreventiveControls
	StepEscalationFactors
	StepCentralProblem
	StepProtectiveMitigations
	StepReview

	NumSteps = 8
)

// String returns the step's display name.
func (s Step) String() string {
	switch s {
	case StepProjectSetup:
		return "project_setup"
	case StepActivities:
		return "activities"
	case StepPressures:
		return "pressures"
	case StepPreventiveControls:
		return "preventive_controls"
	case StepEscalationFactors:
		return "escalation_factors"
	case StepCentralProblem:
		return "central_problem"
	case StepProtectiveMitigations:
		return "protective_mitigations"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAtFirstStep     = errors.New("already at the first step")
	ErrAtLastStep      = errors.New("already at the last step")
)

// StepError reports why a step cannot be left yet.
type StepError struct {
	Step   Step
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %s", e.Step, e.Reason)
}

// PathwayDraft is one in-progress causal chain. Escalation factor and the
// two barrier fields stay empty until their steps fill them in.
type PathwayDraft struct {
	Activity             string `json:"activity"`
	Pressure             string `json:"pressure"`
	PreventiveControl    string `json:"preventive_control"`
	EscalationFactor     string `json:"escalation_factor"`
	ProtectiveMitigation string `json:"protective_mitigation"`
	Consequence          string `json:"consequence"`
	Likelihood           int    `json:"likelihood"`
	Severity             int    `json:"severity"`
}

// Session is one wizard walkthrough.
type Session struct {
	ID             string         `json:"id"`
	ProjectName    string         `json:"project_name"`
	CentralProblem string         `json:"central_problem"`
	Step           Step           `json:"step"`
	Drafts         []PathwayDraft `json:"drafts"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewSession starts a wizard at the project-setup step.
func NewSession(projectName string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          uuid.NewString(),
		ProjectName: projectName,
		Step:        StepProjectSetup,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddDraft appends a new pathway draft and returns its index.
func (s *Session) AddDraft(d PathwayDraft) int {
	s.Drafts = append(s.Drafts, d)
	s.touch()
	return len(s.Drafts) - 1
}

// UpdateDraft replaces the draft at index i (last write wins).
func (s *Session) UpdateDraft(i int, d PathwayDraft) error {
	if i < 0 || i >= len(s.Drafts) {
		return fmt.Errorf("draft index %d out of range", i)
	}
	s.Drafts[i] = d
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// ValidateStep checks whether the current step's requirements are met.
func (s *Session) ValidateStep() error {
	fail := func(reason string) error {
		return &StepError{Step: s.Step, Reason: reason}
	}

	switch s.Step {
	case StepProjectSetup:
		if strings.TrimSpace(s.ProjectName) == "" {
			return fail("project name is required")
		}
	case StepActivities:
		if len(s.Drafts) == 0 {
			return fail("at least one pathway is required")
		}
		for i, d := range s.Drafts {
			if strings.TrimSpace(d.Activity) == "" {
				return fail(fmt.Sprintf("pathway %d has no activity", i))
			}
		}
	case StepPressures:
		for i, d := range s.Drafts {
			if strings.TrimSpace(d.Pressure) == "" {
				return fail(fmt.Sprintf("pathway %d has no pressure", i))
			}
		}
	case StepPreventiveControls, StepEscalationFactors, StepProtectiveMitigations:
		// Barriers are optional; a pathway without them renders as a
		// direct edge.
	case StepCentralProblem:
		if strings.TrimSpace(s.CentralProblem) == "" {
			return fail("central problem is required")
		}
	case StepReview:
		for i, d := range s.Drafts {
			if strings.TrimSpace(d.Consequence) == "" {
				return fail(fmt.Sprintf("pathway %d has no consequence", i))
			}
		}
	}
	return nil
}

// Advance validates the current step and moves to the next one.
func (s *Session) Advance() error {
	if s.Step >= StepReview {
		return ErrAtLastStep
	}
	if err := s.ValidateStep(); err != nil {
		return err
	}
	s.Step++
	s.touch()
	return nil
}

// Back moves to the previous step. No validation: going back never loses
// entered data.
func (s *Session) Back() error {
	if s.Step <= StepProjectSetup {
		return ErrAtFirstStep
	}
	s.Step--
	s.touch()
	return nil
}

// ExportTable converts the session's drafts into a scored bowtie table.
// Every step up to review must validate first.
func (s *Session) ExportTable() (*bowtie.Table, error) {
	if strings.TrimSpace(s.CentralProblem) == "" {
		return nil, &StepError{Step: StepCentralProblem, Reason: "central problem is required"}
	}

	table := &bowtie.Table{Rows: make([]bowtie.Row, 0, len(s.Drafts))}
	for i, d := range s.Drafts {
		if strings.TrimSpace(d.Activity) == "" || strings.TrimSpace(d.Pressure) == "" ||
			strings.TrimSpace(d.Consequence) == "" {
			return nil, &StepError{
				Step:   StepReview,
				Reason: fmt.Sprintf("pathway %d is incomplete", i),
			}
		}
		row := bowtie.Row{
			Activity:             d.Activity,
			Pressure:             d.Pressure,
			PreventiveControl:    d.PreventiveControl,
			EscalationFactor:     d.EscalationFactor,
			CentralProblem:       s.CentralProblem,
			ProtectiveMitigation: d.ProtectiveMitigation,
			Consequence:          d.Consequence,
			Likelihood:           d.Likelihood,
			Severity:             d.Severity,
		}
		row.Rescore()
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
