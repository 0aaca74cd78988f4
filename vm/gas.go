package vm

import (
	"fmt"

	"github.com/govm-net/counter/core"
)

// Gas prices of the operations a contract performs
const (
	GasCall      int64 = 100
	GasDeploy    int64 = 1000
	GasPerByte   int64 = 1
	GasGetObject int64 = 50
	GasGetField  int64 = 100
	GasSetField  int64 = 500
	GasLog       int64 = 200
)

// GasMeter tracks the gas of one execution. It is not safe for concurrent
// use; every execution gets its own meter.
type GasMeter struct {
	limit int64
	used  int64
}

// NewGasMeter creates a meter allowing limit units of gas
func NewGasMeter(limit int64) *GasMeter {
	return &GasMeter{limit: limit}
}

// Consume charges amount. When the remaining gas is insufficient the meter
// is exhausted and an error wrapping core.ErrOutOfGas is returned.
func (m *GasMeter) Consume(amount int64) error {
	if amount <= 0 {
		return nil
	}
	if m.limit-m.used < amount {
		need := amount
		m.used = m.limit
		return fmt.Errorf("%w: limit=%d, need=%d", core.ErrOutOfGas, m.limit, need)
	}
	m.used += amount
	return nil
}

// Refund returns unused gas
func (m *GasMeter) Refund(amount int64) {
	if amount <= 0 {
		return
	}
	if amount > m.used {
		amount = m.used
	}
	m.used -= amount
}

// Used returns the gas consumed so far
func (m *GasMeter) Used() int64 {
	return m.used
}

// Remaining returns the gas still available
func (m *GasMeter) Remaining() int64 {
	return m.limit - m.used
}
