// Package dialog keeps the state of linear multi-step conversations per chat.
package dialog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoDialog     = errors.New("no active dialog")
)

// Parser validates and normalizes an answer. The returned value is stored in Result.Data.
type Parser func(text string) (string, error)

type Step struct {
	Key    string
	Prompt string
	// Retry is sent instead of Prompt after invalid input. Prompt is used when empty.
	Retry string
	Parse Parser
}

type Flow struct {
	Name  string
	Steps []Step
}

type Result struct {
	Flow string
	// Prompt is the next question. Empty when the dialog is done.
	Prompt string
	Done   bool
	// Data holds collected answers by step key. Set only when Done.
	Data map[string]string
}

type state struct {
	flow    *Flow
	step    int
	answers map[string]string
}

// Manager holds dialogs of all chats in memory.
type Manager struct {
	mu     sync.Mutex
	states map[int64]*state
}

func NewManager() *Manager {
	return &Manager{states: make(map[int64]*state)}
}

// Start begins flow for the chat, replacing any active dialog, and returns the first prompt.
func (m *Manager) Start(chatID int64, flow *Flow) (string, error) {
	if flow == nil || len(flow.Steps) == 0 {
		return "", fmt.Errorf("flow has no steps")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[chatID] = &state{
		flow:    flow,
		answers: make(map[string]string, len(flow.Steps)),
	}

	return flow.Steps[0].Prompt, nil
}

// Advance records text as the answer to the current step. Invalid input keeps the step and
// returns ErrInvalidInput with the retry prompt in Result.
func (m *Manager) Advance(chatID int64, text string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[chatID]
	if !ok {
		return Result{}, ErrNoDialog
	}

	step := st.flow.Steps[st.step]
	value := strings.TrimSpace(text)
	if step.Parse != nil {
		parsed, err := step.Parse(value)
		if err != nil {
			retry := step.Retry
			if retry == "" {
				retry = step.Prompt
			}
			return Result{Flow: st.flow.Name, Prompt: retry}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, step.Key, err)
		}
		value = parsed
	}

	st.answers[step.Key] = value
	st.step++

	if st.step < len(st.flow.Steps) {
		return Result{Flow: st.flow.Name, Prompt: st.flow.Steps[st.step].Prompt}, nil
	}

	delete(m.states, chatID)
	return Result{Flow: st.flow.Name, Done: true, Data: st.answers}, nil
}

// Active returns the name of the chat's active flow.
func (m *Manager) Active(chatID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[chatID]
	if !ok {
		return "", false
	}
	return st.flow.Name, true
}

// Cancel drops the chat's dialog. Reports whether there was one.
func (m *Manager) Cancel(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.states[chatID]
	delete(m.states, chatID)
	return ok
}
