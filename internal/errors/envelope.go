package errors

// ToEnvelope renders the error as the relay's JSON error body. headline is the
// user-facing summary, e.g. "Failed to generate response".
func (e *APIError) ToEnvelope(headline string) Envelope {
	if headline == "" {
		headline = e.Message
	}
	return Envelope{Message: headline, Error: e.Message, Tip: e.Tip()}
}

// EnvelopeFor converts any error into an envelope, mapping non-API errors as
// internal failures.
func EnvelopeFor(headline string, err error) (int, Envelope) {
	if apiErr, ok := As(err); ok {
		status := apiErr.HTTPStatus
		if status < 400 {
			status = 500
		}
		return status, apiErr.ToEnvelope(headline)
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return 500, Envelope{Message: headline, Error: msg, Tip: "Check server logs for more details."}
}
