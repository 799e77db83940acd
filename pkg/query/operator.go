package query

// Operator is a filter comparison operator accepted by the search API.
type Operator string

const (
	OpIs             Operator = "IS"
	OpIsNot          Operator = "IS_NOT"
	OpExists         Operator = "EXISTS"
	OpDoesNotExist   Operator = "DOES_NOT_EXIST"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpLessThan       Operator = "LESS_THAN"
	OpOn             Operator = "ON"
	OpOnOrAfter      Operator = "ON_OR_AFTER"
	OpOnOrBefore     Operator = "ON_OR_BEFORE"
	OpWithinTheLast  Operator = "WITHIN_THE_LAST"
)

// Operators lists every operator the search API accepts.
var Operators = []Operator{
	OpIs,
	OpIsNot,
	OpExists,
	OpDoesNotExist,
	OpGreaterThan,
	OpLessThan,
	OpOn,
	OpOnOrAfter,
	OpOnOrBefore,
	OpWithinTheLast,
}

// Valid reports whether op is a recognized operator.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// NeedsValue reports whether the operator requires a comparison value.
// EXISTS and DOES_NOT_EXIST test only for field presence.
func (op Operator) NeedsValue() bool {
	return op != OpExists && op != OpDoesNotExist
}

// legalFor reports whether the operator may be applied to a field of
// the given kind. The server rejects mismatches too, but validating
// locally keeps bad queries from ever hitting the network.
func (op Operator) legalFor(kind Kind) bool {
	switch kind {
	case KindString:
		switch op {
		case OpIs, OpIsNot, OpExists, OpDoesNotExist:
			return true
		}
	case KindNumber:
		switch op {
		case OpIs, OpIsNot, OpExists, OpDoesNotExist, OpGreaterThan, OpLessThan:
			return true
		}
	case KindTimestamp:
		switch op {
		case OpOn, OpOnOrAfter, OpOnOrBefore, OpWithinTheLast, OpGreaterThan, OpLessThan:
			return true
		}
	case KindBool:
		switch op {
		case OpIs, OpIsNot, OpExists, OpDoesNotExist:
			return true
		}
	}
	return false
}
