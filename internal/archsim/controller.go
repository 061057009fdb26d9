package archsim

import "sync"

// Controller simulates an interrupt controller: masking state and EOI
// counts, enough for tests and the demo to observe that the dispatcher
// drives it correctly.
type Controller struct {
	mu     sync.Mutex
	inited bool
	masked map[uint8]bool
	eois   map[uint8]int
}

// NewController builds a simulated interrupt controller with every line
// masked, matching real hardware before InitForCurrentCPU runs.
func NewController() *Controller {
	c := &Controller{masked: make(map[uint8]bool), eois: make(map[uint8]int)}
	for irq := 0; irq < 256; irq++ {
		c.masked[uint8(irq)] = true
	}

	return c
}

// InitForCurrentCPU implements arch.InterruptController.
func (c *Controller) InitForCurrentCPU() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inited = true
	for irq := 0; irq < 256; irq++ {
		c.masked[uint8(irq)] = true
	}
}

// Mask implements arch.InterruptController.
func (c *Controller) Mask(irq uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.masked[irq] = true
}

// Unmask implements arch.InterruptController.
func (c *Controller) Unmask(irq uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.masked[irq] = false
}

// EndOfInterrupt implements arch.InterruptController.
func (c *Controller) EndOfInterrupt(irq uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eois[irq]++
}

// Masked reports whether irq is currently masked.
func (c *Controller) Masked(irq uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.masked[irq]
}

// EOICount reports how many times EndOfInterrupt has been called for irq.
func (c *Controller) EOICount(irq uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.eois[irq]
}
