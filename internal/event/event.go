// Package event turns trigger payloads into scheduler operations and maps
// their results to status-coded responses.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
)

const (
	DetailTypeScheduled  = "Scheduled Event"
	DetailTypeCloudTrail = "AWS API Call via CloudTrail"
	EventNamePutObject   = "PutObject"
	ActionDumpConfig     = "dump-config"
)

type Kind string

const (
	KindUnknown Kind = "unknown"
	KindRun     Kind = "run"
	KindImport  Kind = "import-config"
	KindDump    Kind = "dump-config"
)

// Event is the subset of an EventBridge envelope the scheduler reads, plus
// the action field used for direct invocations.
type Event struct {
	DetailType string `json:"detail-type,omitempty"`
	Source     string `json:"source,omitempty"`
	Action     string `json:"action,omitempty"`
	Detail     Detail `json:"detail"`
}

type Detail struct {
	EventName         string            `json:"eventName,omitempty"`
	RequestParameters RequestParameters `json:"requestParameters"`
}

type RequestParameters struct {
	BucketName string `json:"bucketName,omitempty"`
	Key        string `json:"key,omitempty"`
}

// Parse decodes a trigger payload. An empty payload is an unknown event, not
// an error.
func Parse(data []byte) (Event, error) {
	var e Event
	if len(bytes.TrimSpace(data)) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Scheduled returns the event the cron trigger would deliver.
func Scheduled() Event {
	return Event{DetailType: DetailTypeScheduled, Source: "aws.events"}
}

func (e Event) Kind() Kind {
	switch {
	case e.DetailType == DetailTypeScheduled:
		return KindRun
	case e.DetailType == DetailTypeCloudTrail && e.Detail.EventName == EventNamePutObject:
		return KindImport
	case e.Action == ActionDumpConfig:
		return KindDump
	}
	return KindUnknown
}

// ObjectKey is the key of the uploaded object for import events.
func (e Event) ObjectKey() string {
	return e.Detail.RequestParameters.Key
}

func (e Event) describe() string {
	switch {
	case e.DetailType != "":
		return e.DetailType
	case e.Action != "":
		return e.Action
	}
	return "<empty>"
}

// Response mirrors an API Gateway style reply.
type Response struct {
	StatusCode int  `json:"statusCode"`
	Body       Body `json:"body"`
}

// Body.Message is a string, a list of issue strings, state changes or records.
type Body struct {
	Message any `json:"message"`
}

func respond(status int, message any) Response {
	return Response{StatusCode: status, Body: Body{Message: message}}
}

// errUnknown wraps domain.ErrUnknownTrigger with the offending event.
func errUnknown(e Event) error {
	return fmt.Errorf("%w: event type %q not found", domain.ErrUnknownTrigger, e.describe())
}
