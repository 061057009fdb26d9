package arch

// InterruptController is the capability for the external IRQ controller —
// the APIC or PIC standing between devices and the CPU's interrupt pin.
type InterruptController interface {
	// InitForCurrentCPU programs the controller for the calling CPU,
	// remapping vectors and masking every line until explicitly unmasked.
	InitForCurrentCPU()

	// Mask disables delivery of the given IRQ line.
	Mask(irq uint8)

	// Unmask enables delivery of the given IRQ line.
	Unmask(irq uint8)

	// EndOfInterrupt acknowledges the in-service interrupt, permitting the
	// controller to deliver the next one of equal or lower priority.
	EndOfInterrupt(irq uint8)
}

// ShutdownHardware is the capability the shutdown coordinator uses to carry
// out the actual power transition, once it has decided what to do — it is
// deliberately distinct from Processor, since a shutdown decision is made by
// one elected CPU but must be carried out across all of them (spec §4.3).
type ShutdownHardware interface {
	// Reboot performs a warm reset of the machine. It does not return.
	Reboot()

	// HaltMachine stops the entire machine, including every CPU, pending
	// nothing but a physical reset. It does not return.
	HaltMachine()

	// HaltAllOtherProcessors sends every CPU but the caller a halt
	// directive and waits for them to confirm. It is used by the elected
	// shutdown initiator before it proceeds to Reboot or HaltMachine.
	HaltAllOtherProcessors()

	// HardReset performs an immediate, unconditional machine reset. It is
	// used when the shutdown initiator itself faults while running its own
	// diagnostic path (spec §4.3 step 3) — a graceful Reboot or HaltMachine
	// cannot be trusted once the CPU that was supposed to carry it out has
	// already failed once. It does not return.
	HardReset()
}
