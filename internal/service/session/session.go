package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/cv-master/backend/internal/model/chat"
	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
	chatservice "github.com/zhouzirui/cv-master/backend/internal/service/chat"
)

var (
	ErrAwaitingResponse = errors.New("session is awaiting a response")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrInputClosed      = errors.New("answers are not accepted at this step")
	ErrNotTemplateStep  = errors.New("template can only be selected at the template step")
	ErrRetryUnavailable = errors.New("generation can only be retried after a failure")
	ErrNoDocument       = errors.New("document not generated yet")
	ErrSessionReset     = errors.New("session was reset during generation")
)

// Generator produces the CV markup for a completed draft.
type Generator interface {
	Generate(ctx context.Context, draft cv.Draft) (string, error)
}

// Snapshot is a consistent read of the session state.
type Snapshot struct {
	ID          string       `json:"id"`
	Step        cv.Step      `json:"step"`
	StepName    string       `json:"stepName"`
	Progress    int          `json:"progress"`
	Awaiting    bool         `json:"awaiting"`
	Draft       cv.Draft     `json:"draft"`
	Transcript  []chat.Entry `json:"transcript"`
	HasDocument bool         `json:"hasDocument"`
}

// Options tunes a Session.
type Options struct {
	PromptDelay time.Duration
	Scheduler   Scheduler
	// OnChange receives a snapshot after every state change. It runs with the session lock held,
	// so it must not block or call back into the session.
	OnChange func(Snapshot)
}

// Session drives the questionnaire: it records answers into the draft, paces the assistant prompts
// and hands the finished draft to the generator.
type Session struct {
	mu         sync.Mutex
	id         string
	epoch      int
	step       cv.Step
	draft      cv.Draft
	transcript *chatservice.Transcript
	awaiting   bool
	document   string

	generator Generator
	delay     time.Duration
	scheduler Scheduler
	onChange  func(Snapshot)
}

// New creates a session seeded with the welcome message.
func New(generator Generator, opts Options) *Session {
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = timerScheduler{}
	}

	s := &Session{
		generator: generator,
		delay:     opts.PromptDelay,
		scheduler: scheduler,
		onChange:  opts.OnChange,
	}
	s.resetLocked()
	return s
}

// Reset discards all collected answers and starts over at the introduction.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	s.resetLocked()
	snap := s.notifyLocked()
	s.mu.Unlock()

	log.Printf("[session] reset, id=%s", snap.ID)
	return snap
}

func (s *Session) resetLocked() {
	s.epoch++
	s.id = uuid.NewString()
	s.step = cv.StepIntroduction
	s.draft = cv.Draft{}
	s.awaiting = false
	s.document = ""
	s.transcript = chatservice.NewTranscript()
	s.transcript.Append(chat.RoleAssistant, welcomeMessage, false)
}

// SubmitAnswer records a typed answer for the current step.
// An invalid template answer is not an error: it adds a corrective message and leaves the step unchanged.
// When the answer completes the questionnaire, SubmitAnswer blocks until generation resolves.
func (s *Session) SubmitAnswer(ctx context.Context, text string) error {
	s.mu.Lock()

	if s.awaiting {
		s.mu.Unlock()
		return ErrAwaitingResponse
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return ErrEmptyAnswer
	}
	rule, ok := transitions[s.step]
	if !ok {
		s.mu.Unlock()
		return ErrInputClosed
	}

	s.transcript.Append(chat.RoleUser, text, false)

	if err := rule.write(&s.draft, text); err != nil {
		s.rejectTemplateLocked()
		return nil
	}

	if s.step == cv.StepTemplate {
		return s.startGenerationLocked(ctx)
	}

	s.advanceLocked(rule.next)
	return nil
}

// SelectTemplate records a template picked from the catalog and starts generation.
func (s *Session) SelectTemplate(ctx context.Context, id int) error {
	s.mu.Lock()

	if s.step != cv.StepTemplate {
		s.mu.Unlock()
		return ErrNotTemplateStep
	}
	if s.awaiting {
		s.mu.Unlock()
		return ErrAwaitingResponse
	}

	if err := applyTemplate(&s.draft, id); err != nil {
		s.rejectTemplateLocked()
		return nil
	}

	s.transcript.Append(chat.RoleUser, fmt.Sprintf(templateSelectedFormat, id), false)
	return s.startGenerationLocked(ctx)
}

// RetryGeneration re-runs generation with the collected draft after a failure.
func (s *Session) RetryGeneration(ctx context.Context) error {
	s.mu.Lock()

	if s.step != cv.StepGenerating || s.awaiting {
		s.mu.Unlock()
		return ErrRetryUnavailable
	}

	log.Printf("[session] retrying generation, id=%s", s.id)
	return s.runGenerationLocked(ctx)
}

// rejectTemplateLocked appends the corrective message. It releases the lock.
func (s *Session) rejectTemplateLocked() {
	s.transcript.Append(chat.RoleAssistant, invalidTemplateMessage, false)
	s.notifyLocked()
	s.mu.Unlock()
}

// advanceLocked moves to next and schedules its prompt. It releases the lock.
func (s *Session) advanceLocked(next cv.Step) {
	s.step = next
	s.awaiting = true
	epoch := s.epoch
	s.notifyLocked()
	s.mu.Unlock()

	s.scheduler.AfterFunc(s.delay, func() { s.emitPrompt(epoch, next) })
}

func (s *Session) emitPrompt(epoch int, step cv.Step) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.awaiting = false
	if prompt, ok := prompts[step]; ok {
		s.transcript.Append(chat.RoleAssistant, prompt, false)
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// startGenerationLocked enters the generating step and runs the generator. It releases the lock.
func (s *Session) startGenerationLocked(ctx context.Context) error {
	s.step = cv.StepGenerating
	log.Printf("[session] generating, id=%s, template=%s", s.id, s.draft.TemplateChoice)
	return s.runGenerationLocked(ctx)
}

// runGenerationLocked shows a pending entry, calls the generator without holding the lock,
// then records the outcome. It releases the lock.
// The call is detached from ctx cancellation: once issued it runs to completion or failure.
func (s *Session) runGenerationLocked(ctx context.Context) error {
	s.awaiting = true
	pendingID := s.transcript.Append(chat.RoleAssistant, "", true)
	draft := s.draft
	epoch := s.epoch
	s.notifyLocked()
	s.mu.Unlock()

	document, err := s.generator.Generate(context.WithoutCancel(ctx), draft)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionReset
	}

	if err := s.transcript.Remove(pendingID); err != nil {
		log.Printf("[session] pending entry missing, id=%s, entry=%s: %v", s.id, pendingID, err)
	}
	s.awaiting = false

	if err != nil {
		s.transcript.Append(chat.RoleAssistant, generationFailedNotice, false)
		s.notifyLocked()
		s.mu.Unlock()
		return err
	}

	s.document = document
	s.transcript.Append(chat.RoleAssistant, completedMessage, false)
	s.step = cv.StepCompleted
	snap := s.notifyLocked()
	s.mu.Unlock()

	log.Printf("[session] completed, id=%s, length=%d", snap.ID, len(document))
	return nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Document returns the generated markup once the session is completed.
func (s *Session) Document() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != cv.StepCompleted {
		return "", ErrNoDocument
	}
	return s.document, nil
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.id,
		Step:        s.step,
		StepName:    s.step.String(),
		Progress:    s.step.Progress(),
		Awaiting:    s.awaiting,
		Draft:       s.draft,
		Transcript:  s.transcript.Entries(),
		HasDocument: s.step == cv.StepCompleted,
	}
}

func (s *Session) notifyLocked() Snapshot {
	snap := s.snapshotLocked()
	if s.onChange != nil {
		s.onChange(snap)
	}
	return snap
}
