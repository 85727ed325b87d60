package checkout

import "errors"

var (
	ErrEmptyCart                = errors.New("cart is empty, nothing to checkout")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidAddress           = errors.New("shipping address is incomplete")
	ErrSubmissionInProgress     = errors.New("order submission already in progress")
)

// FailureNotice is shown when the order could not be placed and the backend gave no reason.
const FailureNotice = "Failed to place order"

// Failure is a submission the backend did not accept. The cart is left as it was.
type Failure struct {
	Notice string
	Err    error
}

func (f *Failure) Error() string {
	return "order submission failed: " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}
