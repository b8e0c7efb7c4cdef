package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/cv-master/backend/internal/config"
	"github.com/zhouzirui/cv-master/backend/internal/model/chat"
	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
	"github.com/zhouzirui/cv-master/backend/internal/service/ai"
)

type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
	m.delays = append(m.delays, d)
}

func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Fire runs every scheduled callback.
func (m *manualScheduler) Fire() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

type fakeGenerator struct {
	doc    string
	err    error
	calls  int
	drafts []cv.Draft
	during func()
}

func (f *fakeGenerator) Generate(_ context.Context, draft cv.Draft) (string, error) {
	f.calls++
	f.drafts = append(f.drafts, draft)
	if f.during != nil {
		f.during()
	}
	return f.doc, f.err
}

func newTestSession(gen Generator) (*Session, *manualScheduler) {
	sched := &manualScheduler{}
	return New(gen, Options{PromptDelay: 600 * time.Millisecond, Scheduler: sched}), sched
}

// answer submits text and lets the prompt delay elapse.
func answer(t *testing.T, s *Session, sched *manualScheduler, text string) {
	t.Helper()
	require.NoError(t, s.SubmitAnswer(context.Background(), text))
	sched.Fire()
}

func advanceToTemplate(t *testing.T, s *Session, sched *manualScheduler) {
	t.Helper()
	for _, text := range []string{
		"да",
		"Jane Doe, 070123456, jane@mail.com, Skopje",
		"Backend Engineer",
		"Acme Inc, Engineer, 2 years, shipped X",
		"BSc CS, FINKI, 2020",
		"Go, SQL, Docker, Python, Linux; teamwork, communication, ownership",
		"SKIP",
	} {
		answer(t, s, sched, text)
	}
	require.Equal(t, cv.StepTemplate, s.Snapshot().Step)
}

func countAssistant(entries []chat.Entry, text string) int {
	n := 0
	for _, e := range entries {
		if e.Role == chat.RoleAssistant && e.Text == text {
			n++
		}
	}
	return n
}

func TestNewSessionStartsWithWelcome(t *testing.T) {
	s, _ := newTestSession(&fakeGenerator{})
	snap := s.Snapshot()

	assert.Equal(t, cv.StepIntroduction, snap.Step)
	assert.Equal(t, cv.Draft{}, snap.Draft)
	assert.False(t, snap.Awaiting)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, chat.RoleAssistant, snap.Transcript[0].Role)
	assert.Equal(t, welcomeMessage, snap.Transcript[0].Text)
	assert.NotEmpty(t, snap.ID)
}

func TestTextStepsWriteOneFieldAndAdvanceAfterDelay(t *testing.T) {
	cases := []struct {
		step  cv.Step
		input string
		field func(cv.Draft) string
	}{
		{cv.StepContact, "Jane Doe", func(d cv.Draft) string { return d.ContactInfo }},
		{cv.StepRole, "  anything goes  ", func(d cv.Draft) string { return d.TargetRole }},
		{cv.StepExperience, "Acme", func(d cv.Draft) string { return d.Experience }},
		{cv.StepEducation, "0", func(d cv.Draft) string { return d.Education }},
		{cv.StepSkills, "Go", func(d cv.Draft) string { return d.Skills }},
		{cv.StepPhoto, "https://example.com/me.jpg", func(d cv.Draft) string { return d.PhotoURL }},
	}

	s, sched := newTestSession(&fakeGenerator{})
	answer(t, s, sched, "hello")

	for _, tc := range cases {
		before := s.Snapshot()
		require.Equal(t, tc.step, before.Step)
		require.Empty(t, tc.field(before.Draft))

		require.NoError(t, s.SubmitAnswer(context.Background(), tc.input))

		mid := s.Snapshot()
		assert.Equal(t, tc.step+1, mid.Step)
		assert.True(t, mid.Awaiting, "awaiting during prompt delay")
		assert.Equal(t, tc.input, tc.field(mid.Draft))
		require.Len(t, mid.Transcript, len(before.Transcript)+1)
		last := mid.Transcript[len(mid.Transcript)-1]
		assert.Equal(t, chat.RoleUser, last.Role)
		assert.Equal(t, tc.input, last.Text)

		sched.Fire()

		after := s.Snapshot()
		assert.False(t, after.Awaiting)
		require.Len(t, after.Transcript, len(before.Transcript)+2)
		prompt := after.Transcript[len(after.Transcript)-1]
		assert.Equal(t, chat.RoleAssistant, prompt.Role)
		assert.Equal(t, prompts[tc.step+1], prompt.Text)
	}

	for _, d := range sched.delays {
		assert.Equal(t, 600*time.Millisecond, d)
	}
}

func TestIntroductionWritesNoField(t *testing.T) {
	s, sched := newTestSession(&fakeGenerator{})
	answer(t, s, sched, "ready")

	snap := s.Snapshot()
	assert.Equal(t, cv.StepContact, snap.Step)
	assert.Equal(t, cv.Draft{}, snap.Draft)
	assert.Equal(t, prompts[cv.StepContact], snap.Transcript[len(snap.Transcript)-1].Text)
}

func TestSubmitWhileAwaitingIsRejected(t *testing.T) {
	s, sched := newTestSession(&fakeGenerator{})
	require.NoError(t, s.SubmitAnswer(context.Background(), "hi"))

	before := s.Snapshot()
	err := s.SubmitAnswer(context.Background(), "Jane")
	assert.ErrorIs(t, err, ErrAwaitingResponse)
	assert.Equal(t, before.Transcript, s.Snapshot().Transcript)

	sched.Fire()
	assert.NoError(t, s.SubmitAnswer(context.Background(), "Jane"))
}

func TestEmptyAnswerIsIgnored(t *testing.T) {
	s, _ := newTestSession(&fakeGenerator{})
	assert.ErrorIs(t, s.SubmitAnswer(context.Background(), "   "), ErrEmptyAnswer)
	assert.Len(t, s.Snapshot().Transcript, 1)
}

func TestPhotoSkipNormalization(t *testing.T) {
	cases := map[string]string{
		"skip":                       cv.PlaceholderPhotoURL,
		"SKIP":                       cv.PlaceholderPhotoURL,
		"  Skip ":                    cv.PlaceholderPhotoURL,
		"https://example.com/me.jpg": "https://example.com/me.jpg",
		"skipping":                   "skipping",
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			s, sched := newTestSession(&fakeGenerator{})
			for _, text := range []string{"hi", "c", "r", "e", "ed", "sk"} {
				answer(t, s, sched, text)
			}
			require.Equal(t, cv.StepPhoto, s.Snapshot().Step)

			answer(t, s, sched, input)
			snap := s.Snapshot()
			assert.Equal(t, want, snap.Draft.PhotoURL)
			assert.Equal(t, cv.StepTemplate, snap.Step)
		})
	}
}

func TestTemplateInvalidAnswersStayOnTemplate(t *testing.T) {
	for _, input := range []string{"0", "6", "abc", "-1", "2.5"} {
		t.Run(input, func(t *testing.T) {
			gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
			s, sched := newTestSession(gen)
			advanceToTemplate(t, s, sched)
			before := s.Snapshot()

			require.NoError(t, s.SubmitAnswer(context.Background(), input))

			after := s.Snapshot()
			assert.Equal(t, cv.StepTemplate, after.Step)
			assert.Empty(t, after.Draft.TemplateChoice)
			assert.False(t, after.Awaiting)
			assert.Zero(t, sched.Pending(), "corrective path has no delay")
			require.Len(t, after.Transcript, len(before.Transcript)+2)
			assert.Equal(t, chat.RoleUser, after.Transcript[len(after.Transcript)-2].Role)
			assert.Equal(t, invalidTemplateMessage, after.Transcript[len(after.Transcript)-1].Text)
			assert.Zero(t, gen.calls)
		})
	}
}

func TestTemplateInvalidAnswerRepeated(t *testing.T) {
	s, sched := newTestSession(&fakeGenerator{})
	advanceToTemplate(t, s, sched)
	draftBefore := s.Snapshot().Draft

	const n = 4
	for i := 0; i < n; i++ {
		require.NoError(t, s.SubmitAnswer(context.Background(), "7"))
	}

	snap := s.Snapshot()
	assert.Equal(t, n, countAssistant(snap.Transcript, invalidTemplateMessage))
	assert.Equal(t, draftBefore, snap.Draft)
	assert.Equal(t, cv.StepTemplate, snap.Step)
}

func TestTemplateValidAnswersStartGeneration(t *testing.T) {
	for _, input := range []string{"1", "2", "3", "4", "5", " 3 "} {
		t.Run(input, func(t *testing.T) {
			gen := &fakeGenerator{doc: "<!DOCTYPE html><html></html>"}
			s, sched := newTestSession(gen)
			advanceToTemplate(t, s, sched)

			require.NoError(t, s.SubmitAnswer(context.Background(), input))

			snap := s.Snapshot()
			require.Equal(t, 1, gen.calls)
			assert.Equal(t, snap.Draft.TemplateChoice, gen.drafts[0].TemplateChoice)
			assert.NotEmpty(t, snap.Draft.TemplateChoice)
			assert.Equal(t, cv.StepCompleted, snap.Step)
		})
	}
}

func TestSelectTemplate(t *testing.T) {
	gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
	s, sched := newTestSession(gen)

	assert.ErrorIs(t, s.SelectTemplate(context.Background(), 1), ErrNotTemplateStep)

	advanceToTemplate(t, s, sched)

	require.NoError(t, s.SelectTemplate(context.Background(), 9))
	snap := s.Snapshot()
	assert.Equal(t, cv.StepTemplate, snap.Step)
	assert.Equal(t, invalidTemplateMessage, snap.Transcript[len(snap.Transcript)-1].Text)
	assert.Zero(t, gen.calls)

	require.NoError(t, s.SelectTemplate(context.Background(), 3))
	snap = s.Snapshot()
	assert.Equal(t, "3", snap.Draft.TemplateChoice)
	assert.Equal(t, cv.StepCompleted, snap.Step)
	assert.Contains(t, entryTexts(snap.Transcript), "Избрав опција бр. 3")
}

func entryTexts(entries []chat.Entry) []string {
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return texts
}

func TestGenerationShowsPendingEntryAndHoldsInput(t *testing.T) {
	gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
	s, sched := newTestSession(gen)
	advanceToTemplate(t, s, sched)

	var during Snapshot
	var submitErr error
	gen.during = func() {
		during = s.Snapshot()
		submitErr = s.SubmitAnswer(context.Background(), "anything")
	}

	require.NoError(t, s.SelectTemplate(context.Background(), 2))

	assert.Equal(t, cv.StepGenerating, during.Step)
	assert.True(t, during.Awaiting)
	last := during.Transcript[len(during.Transcript)-1]
	assert.True(t, last.Pending)
	assert.Equal(t, chat.RoleAssistant, last.Role)
	assert.Error(t, submitErr)

	snap := s.Snapshot()
	assert.False(t, snap.Awaiting)
	for _, e := range snap.Transcript {
		assert.False(t, e.Pending)
	}
	assert.Equal(t, completedMessage, snap.Transcript[len(snap.Transcript)-1].Text)

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html>", doc)
}

func TestGenerationIgnoresCallerCancellation(t *testing.T) {
	var genCtxErr error
	gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
	s, sched := newTestSession(generatorFunc(func(ctx context.Context, d cv.Draft) (string, error) {
		genCtxErr = ctx.Err()
		return gen.Generate(ctx, d)
	}))
	advanceToTemplate(t, s, sched)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.SelectTemplate(ctx, 1))
	assert.NoError(t, genCtxErr)
}

type generatorFunc func(ctx context.Context, d cv.Draft) (string, error)

func (f generatorFunc) Generate(ctx context.Context, d cv.Draft) (string, error) {
	return f(ctx, d)
}

func TestGenerationFailureKeepsDraftAndAllowsRetry(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("dial tcp: connection refused")}, text: "<!DOCTYPE html><p>ok</p>"}
	gen := ai.NewService(provider, config.AIConfig{Provider: config.ProviderGemini, GeminiModel: "m"})
	s, sched := newTestSession(gen)
	advanceToTemplate(t, s, sched)

	assert.ErrorIs(t, s.RetryGeneration(context.Background()), ErrRetryUnavailable)

	err := s.SelectTemplate(context.Background(), 4)
	require.Error(t, err)
	var genErr *ai.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, ai.GenerationFailedMessage, err.Error())

	snap := s.Snapshot()
	assert.Equal(t, cv.StepGenerating, snap.Step)
	assert.False(t, snap.Awaiting)
	assert.Equal(t, "4", snap.Draft.TemplateChoice)
	assert.Equal(t, 1, countAssistant(snap.Transcript, generationFailedNotice))
	assert.Equal(t, generationFailedNotice, snap.Transcript[len(snap.Transcript)-1].Text)
	for _, e := range snap.Transcript {
		assert.False(t, e.Pending, "pending entry must be retracted")
	}
	_, err = s.Document()
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.ErrorIs(t, s.SubmitAnswer(context.Background(), "5"), ErrInputClosed)

	require.NoError(t, s.RetryGeneration(context.Background()))
	snap = s.Snapshot()
	assert.Equal(t, cv.StepCompleted, snap.Step)
	assert.Equal(t, 2, provider.calls)

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><p>ok</p>", doc)
}

type scriptedProvider struct {
	errs  []error
	text  string
	calls int
	last  ai.Request
}

func (p *scriptedProvider) Complete(_ context.Context, req ai.Request) (ai.Response, error) {
	p.calls++
	p.last = req
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return ai.Response{}, err
	}
	return ai.Response{Text: p.text}, nil
}

func TestEmptyGenerationResultCompletesWithApology(t *testing.T) {
	provider := &scriptedProvider{text: ""}
	gen := ai.NewService(provider, config.AIConfig{Provider: config.ProviderGemini, GeminiModel: "m"})
	s, sched := newTestSession(gen)
	advanceToTemplate(t, s, sched)

	require.NoError(t, s.SubmitAnswer(context.Background(), "1"))

	assert.Equal(t, cv.StepCompleted, s.Snapshot().Step)
	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, ai.EmptyResultMessage, doc)
}

func TestResetRestoresInitialState(t *testing.T) {
	gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
	s, sched := newTestSession(gen)
	advanceToTemplate(t, s, sched)
	require.NoError(t, s.SelectTemplate(context.Background(), 5))
	oldID := s.Snapshot().ID

	snap := s.Reset()

	assert.NotEqual(t, oldID, snap.ID)
	assert.Equal(t, cv.StepIntroduction, snap.Step)
	assert.Equal(t, cv.Draft{}, snap.Draft)
	assert.False(t, snap.Awaiting)
	assert.False(t, snap.HasDocument)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, welcomeMessage, snap.Transcript[0].Text)
	_, err := s.Document()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestResetDropsPendingPrompt(t *testing.T) {
	s, sched := newTestSession(&fakeGenerator{})
	answer(t, s, sched, "hi")
	require.NoError(t, s.SubmitAnswer(context.Background(), "Jane"))
	require.Equal(t, 1, sched.Pending())

	s.Reset()
	sched.Fire()

	snap := s.Snapshot()
	require.Len(t, snap.Transcript, 1)
	assert.False(t, snap.Awaiting)
	assert.Equal(t, cv.StepIntroduction, snap.Step)
}

func TestResetDuringGenerationDiscardsResult(t *testing.T) {
	gen := &fakeGenerator{doc: "<!DOCTYPE html>"}
	s, sched := newTestSession(gen)
	advanceToTemplate(t, s, sched)
	gen.during = func() { s.Reset() }

	err := s.SelectTemplate(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSessionReset)

	snap := s.Snapshot()
	assert.Equal(t, cv.StepIntroduction, snap.Step)
	require.Len(t, snap.Transcript, 1)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var snaps []Snapshot
	sched := &manualScheduler{}
	s := New(&fakeGenerator{}, Options{Scheduler: sched, OnChange: func(snap Snapshot) {
		snaps = append(snaps, snap)
	}})

	require.NoError(t, s.SubmitAnswer(context.Background(), "hi"))
	sched.Fire()

	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Awaiting)
	assert.False(t, snaps[1].Awaiting)
	assert.Equal(t, cv.StepContact, snaps[1].Step)
}

func TestEndToEndScenario(t *testing.T) {
	gen := &fakeGenerator{doc: "<!DOCTYPE html><html><body>Jane Doe</body></html>"}
	s, sched := newTestSession(gen)

	answer(t, s, sched, "Да")
	answer(t, s, sched, "Jane Doe, 070123456, jane@mail.com, Skopje")
	answer(t, s, sched, "Backend Engineer")
	answer(t, s, sched, "Acme Inc, Engineer, 2 years — shipped X")
	answer(t, s, sched, "BSc CS, FINKI, 2020")
	answer(t, s, sched, "Go, SQL, Docker, Python, Linux; teamwork, communication, ownership")
	answer(t, s, sched, "SKIP")
	require.NoError(t, s.SubmitAnswer(context.Background(), "2"))

	snap := s.Snapshot()
	assert.Equal(t, "2", snap.Draft.TemplateChoice)
	assert.Equal(t, cv.PlaceholderPhotoURL, snap.Draft.PhotoURL)
	assert.Equal(t, cv.StepCompleted, snap.Step)
	assert.Equal(t, cv.QuestionCount, snap.Progress)
	assert.True(t, snap.HasDocument)

	require.Equal(t, 1, gen.calls)
	sent := gen.drafts[0]
	assert.Equal(t, "Jane Doe, 070123456, jane@mail.com, Skopje", sent.ContactInfo)
	assert.Equal(t, "Backend Engineer", sent.TargetRole)
	assert.Equal(t, "Acme Inc, Engineer, 2 years — shipped X", sent.Experience)
	assert.Equal(t, "BSc CS, FINKI, 2020", sent.Education)
	assert.Equal(t, "Go, SQL, Docker, Python, Linux; teamwork, communication, ownership", sent.Skills)

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, gen.doc, doc)

	assert.ErrorIs(t, s.SubmitAnswer(context.Background(), "more"), ErrInputClosed)
}
