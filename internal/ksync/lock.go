package ksync

// InterruptGate is the minimal capability Lock needs from the processor: the
// ability to disable interrupts on the current CPU and later restore them to
// whatever state they held before. It is satisfied by arch.Processor without
// ksync importing arch, keeping the dependency order leaves-first per the
// component graph (atomics and locks are lower in the stack than the
// processor capability).
type InterruptGate interface {
	// DisableInterrupts disables interrupts on the current CPU and reports
	// whether they were enabled beforehand.
	DisableInterrupts() (wasEnabled bool)

	// RestoreInterrupts sets the current CPU's interrupt-enable flag back to
	// the state a prior DisableInterrupts call observed.
	RestoreInterrupts(wasEnabled bool)
}

// Lock is a scoped mutual-exclusion primitive. Acquire disables interrupts on
// the current CPU, saving the prior state; Release restores exactly that
// state. Lock is not reentrant: a second Acquire by the same logical holder
// before Release is a programmer bug. On a uniprocessor target interrupt
// masking alone provides exclusion; on a multiprocessor target an atomic
// test-and-set word is layered beneath it.
//
// Do not add recursion support here. The rest of the core assumes a held
// Lock cannot be re-acquired; silently supporting it would hide real
// re-entrancy bugs in interrupt handlers instead of surfacing them.
type Lock struct {
	gate  InterruptGate
	word  Cell
	multi bool
}

// New creates a Lock guarded by gate. Pass multi=true on targets with more
// than one CPU so acquisition also spins on a shared word; a uniprocessor
// target can pass false since interrupt masking alone is sufficient there.
func New(gate InterruptGate, multi bool) *Lock {
	return &Lock{gate: gate, multi: multi}
}

// Token carries the interrupt-enable state observed at Acquire, to be handed
// back to Release. It has no zero-value meaning outside of a matched
// Acquire/Release pair.
type Token struct {
	wasEnabled bool
}

// Acquire disables interrupts and, on multiprocessor targets, spins until the
// shared word is claimed. It returns a Token that must be passed to Release.
func (l *Lock) Acquire() Token {
	wasEnabled := l.gate.DisableInterrupts()

	if l.multi {
		for !l.word.CAS(0, 1) {
			// Spin. Interrupts are already disabled on this CPU so only a
			// peer holding the lock can clear the word.
		}
	}

	return Token{wasEnabled: wasEnabled}
}

// Release hands the lock back, restoring interrupts to the state recorded in
// tok.
func (l *Lock) Release(tok Token) {
	if l.multi {
		l.word.Store(0)
	}

	l.gate.RestoreInterrupts(tok.wasEnabled)
}

// Held reports whether the lock's shared word is currently claimed. It is a
// diagnostic aid only: on a uniprocessor target without the shared word it
// always reports false.
func (l *Lock) Held() bool {
	return l.multi && l.word.Load() == 1
}
