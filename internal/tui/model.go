// Package tui renders a diary session as a Bubble Tea program.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"learning-diary/internal/diary"
	"learning-diary/internal/features"
	"learning-diary/internal/identity"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
)

const (
	msgInitFailed = "초기화 오류가 발생했습니다: %v"
	msgAuthFailed = "사용자 인증에 실패했습니다: %v"
	msgLoadFailed = "데이터를 불러오는 중 오류가 발생했습니다."
)

// Backend is everything the TUI needs from the server.
type Backend interface {
	diary.Backend
	Subscribe(ctx context.Context, date string) (<-chan *models.DailyRecord, func(), error)
}

type Options struct {
	Resolver     *identity.Resolver
	Provider     identity.Provider
	InitialToken string
	Backend      Backend
	Date         string
	StudentName  string
	// SaveName persists the student's name when it is set. Optional.
	SaveName func(name string) error
	// InitErr is a configuration error found before start-up. When set the
	// program only shows the error screen.
	InitErr error
}

type state int

const (
	stateWaiting state = iota
	stateReady
	stateFatal
)

type resolvedMsg struct {
	user *identity.User
	err  error
}

type subscribedMsg struct {
	updates <-chan *models.DailyRecord
	cancel  func()
	err     error
}

type subscriptionClosedMsg struct{}

type targetKind int

const (
	targetName targetKind = iota
	targetChecklist
	targetEmotion
	targetText
	targetFeature
	targetAnswer
	targetReveal
	targetSend
)

// target is one focusable element of the form.
type target struct {
	kind  targetKind
	id    string
	index int
}

func (t target) editable() bool {
	return t.kind == targetName || t.kind == targetText || t.kind == targetAnswer
}

type Model struct {
	opts Options
	ctx  context.Context

	state   state
	fatal   string
	spinner spinner.Model

	user    *identity.User
	session *diary.Session
	updates <-chan *models.DailyRecord
	cancel  func()

	nameInput    textinput.Model
	textInputs   map[string]*textinput.Model
	answerInputs []*textinput.Model

	focus   int
	editing bool
	width   int
}

func New(ctx context.Context, opts Options) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		opts:       opts,
		ctx:        ctx,
		spinner:    sp,
		nameInput:  newInput("이름을 입력하세요"),
		textInputs: make(map[string]*textinput.Model),
	}
	placeholders := map[string]string{
		models.FieldEmotionReason: "왜 그렇게 느꼈나요? (선택 사항)",
		models.FieldDailyThought:  "자유롭게 느낀 점을 기록해보세요.",
		models.FieldStudyContent:  "오늘 배운 내용을 바탕으로 자유롭게 글을 써보세요.",
	}
	for _, field := range diary.TextFields {
		ti := newInput(placeholders[field])
		m.textInputs[field] = &ti
	}
	m.nameInput.SetValue(opts.StudentName)

	if opts.InitErr != nil {
		m.state = stateFatal
		m.fatal = fmt.Sprintf(msgInitFailed, opts.InitErr)
	}
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.Width = 60
	return ti
}

func (m *Model) Init() tea.Cmd {
	if m.state == stateFatal {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.resolve())
}

func (m *Model) resolve() tea.Cmd {
	ctx, opts := m.ctx, m.opts
	return func() tea.Msg {
		user, err := opts.Resolver.Resolve(ctx, opts.Provider, opts.InitialToken)
		return resolvedMsg{user: user, err: err}
	}
}

func (m *Model) subscribe() tea.Cmd {
	ctx, backend, date := m.ctx, m.opts.Backend, m.opts.Date
	return func() tea.Msg {
		updates, cancel, err := backend.Subscribe(ctx, date)
		return subscribedMsg{updates: updates, cancel: cancel, err: err}
	}
}

func waitForSnapshot(updates <-chan *models.DailyRecord) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return diary.SnapshotMsg{Record: rec}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.state != stateWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resolvedMsg:
		if msg.err != nil {
			logger.L.Errorw("identity resolution failed", "error", msg.err)
			m.fail(fmt.Sprintf(msgAuthFailed, msg.err))
			return m, nil
		}
		m.user = msg.user
		m.session = diary.NewSession(m.ctx, m.opts.Backend, m.opts.Date, m.opts.StudentName)
		m.state = stateReady
		logger.L.Infow("session ready", "user_id", msg.user.ID, "date", m.opts.Date)
		return m, tea.Batch(m.subscribe(), m.enter())

	case subscribedMsg:
		if msg.err != nil {
			logger.L.Errorw("subscription failed", "error", msg.err)
			m.fail(msgLoadFailed)
			return m, nil
		}
		m.updates, m.cancel = msg.updates, msg.cancel
		return m, waitForSnapshot(m.updates)

	case diary.SnapshotMsg:
		m.session.Apply(msg)
		m.syncInputs()
		return m, waitForSnapshot(m.updates)

	case subscriptionClosedMsg:
		if m.state == stateReady {
			m.fail(msgLoadFailed)
		}
		return m, nil

	case diary.SavedMsg, diary.FeatureDoneMsg, diary.DispatchDoneMsg:
		if m.session != nil {
			m.session.Apply(msg)
			m.syncInputs()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) fail(message string) {
	m.state = stateFatal
	m.fatal = message
	m.stop()
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		m.stop()
		return m, tea.Quit
	}
	if m.state != stateReady {
		if key.Matches(msg, keys.Quit) || key.Matches(msg, keys.Leave) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.session.Modal() != "" {
		if key.Matches(msg, keys.Activate) || key.Matches(msg, keys.Leave) {
			m.session.DismissModal()
		}
		return m, nil
	}

	t := m.current()
	switch {
	case key.Matches(msg, keys.Next):
		return m, m.move(1)
	case key.Matches(msg, keys.Prev):
		return m, m.move(-1)
	case key.Matches(msg, keys.Leave):
		return m, m.leave()
	}

	if m.editing {
		if t.kind == targetName && msg.Type == tea.KeyEnter {
			m.setName()
			return m, nil
		}
		return m, m.typeInto(t, msg)
	}

	switch {
	case key.Matches(msg, keys.Down):
		return m, m.move(1)
	case key.Matches(msg, keys.Up):
		return m, m.move(-1)
	case key.Matches(msg, keys.Quit):
		m.stop()
		return m, tea.Quit
	case key.Matches(msg, keys.Activate):
		return m, m.activate(t)
	}
	return m, nil
}

func (m *Model) typeInto(t target, msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch t.kind {
	case targetName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case targetText:
		ti := m.textInputs[t.id]
		*ti, cmd = ti.Update(msg)
		m.session.Edit(t.id, ti.Value())
	case targetAnswer:
		ti := m.answerInputs[t.index]
		*ti, cmd = ti.Update(msg)
		m.session.EditAnswer(t.index, ti.Value())
	}
	return cmd
}

func (m *Model) activate(t target) tea.Cmd {
	switch t.kind {
	case targetName, targetText, targetAnswer:
		return m.enter()
	case targetChecklist:
		return m.session.ToggleChecklist(t.id)
	case targetEmotion:
		return m.session.SelectEmotion(t.id)
	case targetFeature:
		return m.session.RequestFeature(features.ID(t.id))
	case targetReveal:
		return m.session.RevealAnswer(t.index)
	case targetSend:
		return m.session.SendDiary()
	}
	return nil
}

func (m *Model) setName() {
	name := m.nameInput.Value()
	m.session.SetStudentName(name)
	if m.opts.SaveName != nil {
		if err := m.opts.SaveName(m.session.StudentName()); err != nil {
			logger.L.Warnw("could not save student name", "error", err)
		}
	}
}

// move leaves the focused element, which blurs a text field, and focuses the
// next one.
func (m *Model) move(delta int) tea.Cmd {
	cmd := m.leave()
	targets := m.targets()
	m.focus = (m.focus + delta + len(targets)) % len(targets)
	return tea.Batch(cmd, m.enter())
}

// enter starts editing when the focused element is a text field.
func (m *Model) enter() tea.Cmd {
	t := m.current()
	if !t.editable() {
		return nil
	}
	m.editing = true
	switch t.kind {
	case targetName:
		m.nameInput.Focus()
	case targetText:
		m.textInputs[t.id].Focus()
	case targetAnswer:
		m.answerInputs[t.index].Focus()
	}
	return textinput.Blink
}

// leave ends editing. Leaving a diary field or a quiz answer writes it.
func (m *Model) leave() tea.Cmd {
	if !m.editing {
		return nil
	}
	m.editing = false
	t := m.current()
	switch t.kind {
	case targetName:
		m.nameInput.Blur()
	case targetText:
		m.textInputs[t.id].Blur()
		return m.session.Blur(t.id)
	case targetAnswer:
		m.answerInputs[t.index].Blur()
		return m.session.BlurAnswer(t.index)
	}
	return nil
}

func (m *Model) current() target {
	targets := m.targets()
	if m.focus >= len(targets) {
		m.focus = len(targets) - 1
	}
	return targets[m.focus]
}

func (m *Model) targets() []target {
	out := []target{{kind: targetName}}
	for _, item := range models.ChecklistItems() {
		out = append(out, target{kind: targetChecklist, id: item.ID})
	}
	for _, e := range models.Emotions() {
		out = append(out, target{kind: targetEmotion, id: e.ID})
	}
	out = append(out,
		target{kind: targetText, id: models.FieldEmotionReason},
		target{kind: targetText, id: models.FieldDailyThought},
		target{kind: targetFeature, id: string(features.LifeFeedback)},
		target{kind: targetText, id: models.FieldStudyContent},
	)
	for _, f := range features.All() {
		if f.ID == features.LifeFeedback {
			continue
		}
		out = append(out, target{kind: targetFeature, id: string(f.ID)})
	}
	for i := range m.answerInputs {
		out = append(out, target{kind: targetAnswer, index: i}, target{kind: targetReveal, index: i})
	}
	return append(out, target{kind: targetSend})
}

// syncInputs copies session state into the inputs that are not being edited.
func (m *Model) syncInputs() {
	rec := m.session.Record()
	cur := m.current()

	for field, ti := range m.textInputs {
		if m.editing && cur.kind == targetText && cur.id == field {
			continue
		}
		ti.SetValue(m.session.Text(field))
	}

	for len(m.answerInputs) < len(rec.AIProblems) {
		ti := newInput("정답을 입력해보세요")
		m.answerInputs = append(m.answerInputs, &ti)
	}
	if len(m.answerInputs) > len(rec.AIProblems) {
		m.answerInputs = m.answerInputs[:len(rec.AIProblems)]
		if m.focus >= len(m.targets()) {
			m.editing = false
			m.focus = len(m.targets()) - 1
		}
	}
	for i, ti := range m.answerInputs {
		if m.editing && cur.kind == targetAnswer && cur.index == i {
			continue
		}
		ti.SetValue(m.session.Answer(i))
	}
}
