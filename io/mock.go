package io

// Mock is a deterministic sink. Output is collected in Printed, input is
// taken from the front of Input, and Halt only sets a flag.
type Mock struct {
	Printed []rune
	Input   []uint16
	Halted  bool
	Halts   int // Number of calls to Halt.
}

var _ Sink = (*Mock)(nil)

// NewMock creates a mock sink seeded with the characters of input.
func NewMock(input string) (mock *Mock) {
	mock = &Mock{}
	for _, ch := range []byte(input) {
		mock.Input = append(mock.Input, uint16(ch))
	}
	return
}

func (mock *Mock) Print(ch rune) (err error) {
	mock.Printed = append(mock.Printed, ch)
	return
}

// Read pops the next seeded input character. It is an error for the input
// to run dry.
func (mock *Mock) Read() (value uint16, err error) {
	if len(mock.Input) == 0 {
		err = ErrInputEmpty
		return
	}

	value = mock.Input[0]
	mock.Input = mock.Input[1:]
	return
}

func (mock *Mock) Halt() {
	mock.Halted = true
	mock.Halts++
}

// Output returns the printed characters as a string.
func (mock *Mock) Output() string {
	return string(mock.Printed)
}
