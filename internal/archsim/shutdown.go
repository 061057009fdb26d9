package archsim

import "sync"

// ShutdownHardware simulates the machine-level shutdown primitives: it
// records what was requested instead of actually rebooting or halting the
// process running the test.
type ShutdownHardware struct {
	mu            sync.Mutex
	Rebooted      bool
	Halted        bool
	HardReseted   bool
	OthersHaltedN int
}

// NewShutdownHardware builds a simulated shutdown target.
func NewShutdownHardware() *ShutdownHardware { return &ShutdownHardware{} }

// Reboot implements arch.ShutdownHardware.
func (s *ShutdownHardware) Reboot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Rebooted = true
}

// HaltMachine implements arch.ShutdownHardware.
func (s *ShutdownHardware) HaltMachine() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Halted = true
}

// HaltAllOtherProcessors implements arch.ShutdownHardware.
func (s *ShutdownHardware) HaltAllOtherProcessors() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.OthersHaltedN++
}

// HardReset implements arch.ShutdownHardware.
func (s *ShutdownHardware) HardReset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.HardReseted = true
}
