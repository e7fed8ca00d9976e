package cpu

const (
	MEMORY_SIZE    = 1 << 15                        // Number of words in the address space.
	VALUE_MODULUS  = 1 << 15                        // Modulus for all arithmetic.
	VALUE_MASK     = VALUE_MODULUS - 1              // Mask of the 15 value bits.
	REGISTER_COUNT = 8                              // Number of registers.
	REGISTER_BASE  = VALUE_MODULUS                  // Operand word referring to r0.
	REGISTER_LIMIT = REGISTER_BASE + REGISTER_COUNT // First invalid operand word.
)
