package webhook

// Event names dispatched by the application. Hooks subscribe to a subset,
// or to "all".
const (
	EventMachineCreated       = "MACHINE_CREATED"
	EventMachineUpdated       = "MACHINE_UPDATED"
	EventMachineStatusChanged = "MACHINE_STATUS_CHANGED"
	EventReportCreated        = "PROBLEM_REPORT_CREATED"
	EventReportStatusChanged  = "PROBLEM_REPORT_STATUS_CHANGED"
	EventReportResolved       = "PROBLEM_REPORT_RESOLVED"
	EventLogEntryCreated      = "LOG_ENTRY_CREATED"
	EventPartRequestCreated   = "PART_REQUEST_CREATED"
	EventPartStatusChanged    = "PART_REQUEST_STATUS_CHANGED"
	EventMediaReady           = "MEDIA_READY"
	EventMediaFailed          = "MEDIA_FAILED"
	EventTestFire             = "TEST_FIRE"
)

// webhookEventEnum is the canonical list of supported event names.
var webhookEventEnum = []string{
	EventMachineCreated,
	EventMachineUpdated,
	EventMachineStatusChanged,
	EventReportCreated,
	EventReportStatusChanged,
	EventReportResolved,
	EventLogEntryCreated,
	EventPartRequestCreated,
	EventPartStatusChanged,
	EventMediaReady,
	EventMediaFailed,
	EventTestFire,
}

// acceptedWebhookEvents is a set built from webhookEventEnum for O(1) lookup.
var acceptedWebhookEvents = func() map[string]struct{} {
	out := make(map[string]struct{}, len(webhookEventEnum))
	for _, event := range webhookEventEnum {
		out[event] = struct{}{}
	}
	return out
}()
