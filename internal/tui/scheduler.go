package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TrishulMallur/EchoKey/internal/engine"
)

// runMsg carries a timer callback onto the program's event loop.
type runMsg struct {
	fn func()
}

// loopScheduler implements engine.Scheduler for a bubbletea program: timers
// fire on their own goroutine but only post the callback, which Update then
// runs. Session callbacks therefore never race the key handlers.
type loopScheduler struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// attach routes callbacks to send, usually (*tea.Program).Send.
func (s *loopScheduler) attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *loopScheduler) AfterFunc(d time.Duration, fn func()) engine.Task {
	return time.AfterFunc(d, func() {
		s.mu.Lock()
		send := s.send
		s.mu.Unlock()
		if send != nil {
			send(runMsg{fn: fn})
		}
	})
}
