package trapframe

import "fmt"

// exceptionNames are the fixed, architecturally-defined names for the first
// 32 trap vectors, in the traditional x86 order (divide error through
// reserved). Mirrors the original's isr_stub_table/exception_messages pair
// (§12, human-readable vector-to-name decoding).
var exceptionNames = [irqBase]string{
	0:  "divide error",
	1:  "debug",
	2:  "non-maskable interrupt",
	3:  "breakpoint",
	4:  "overflow",
	5:  "bound range exceeded",
	6:  "invalid opcode",
	7:  "device not available",
	8:  "double fault",
	9:  "coprocessor segment overrun",
	10: "invalid tss",
	11: "segment not present",
	12: "stack-segment fault",
	13: "general protection fault",
	14: "page fault",
	15: "reserved",
	16: "x87 floating-point exception",
	17: "alignment check",
	18: "machine check",
	19: "simd floating-point exception",
}

// irqBase is the first vector number an external device interrupt, rather
// than a CPU-raised exception, can occupy once remapped past the
// architecturally-reserved range.
const irqBase = 32

// VectorName returns a human-readable name for vector, for use in failure
// reports and diagnostics. Vectors below irqBase with no fixed name, and
// vectors at or above it, are decoded generically.
func VectorName(vector uint8) string {
	if int(vector) < len(exceptionNames) {
		if name := exceptionNames[vector]; name != "" {
			return name
		}

		return fmt.Sprintf("reserved exception %d", vector)
	}

	if vector == Syscall {
		return "system call"
	}

	return fmt.Sprintf("device irq %d", int(vector)-irqBase)
}

// Syscall is the vector user code traps through to request a kernel
// service, duplicated here (rather than imported from dispatch) to keep
// trapframe a leaf package dispatch itself depends on.
const Syscall uint8 = 0x80
