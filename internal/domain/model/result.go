package model

// DispatchResult is the outcome a remote method reports for one invocation.
type DispatchResult struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message"`
}

// SuccessResult builds a successful DispatchResult with message.
func SuccessResult(message string) DispatchResult {
	return DispatchResult{Successful: true, Message: message}
}

// FailureResult builds a failed DispatchResult with message.
func FailureResult(message string) DispatchResult {
	return DispatchResult{Successful: false, Message: message}
}

// Failed reports whether the remote method reported failure.
func (r DispatchResult) Failed() bool {
	return !r.Successful
}
