package events

import "time"

// RESTCallStart is emitted before an upstream REST call.
type RESTCallStart struct {
	Method   string
	URL      string
	Endpoint string
}

// RESTCallFinish is emitted after an upstream REST call completes. Status is
// zero when the transport failed before producing a response.
type RESTCallFinish struct {
	Method   string
	URL      string
	Endpoint string
	Status   int
	Err      error
	Duration time.Duration
}
