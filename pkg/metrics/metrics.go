package metrics

import (
	"sync"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Endpoint metrics
	EndpointRequests map[string]int64
	EndpointErrors   map[string]int64
	EndpointLatency  map[string][]time.Duration

	// External service metrics (LLM providers, delivery)
	ServiceCalls   map[string]int64
	ServiceErrors  map[string]int64
	ServiceLatency map[string][]time.Duration

	// Call flow counters
	TurnsProcessed      int64
	CallsSummarized     int64
	PlannerFallbacks    int64
	DispatchesAttempted int64
	DispatchesFailed    int64

	StartTime time.Time
}

var globalMetrics = &Metrics{
	EndpointRequests: make(map[string]int64),
	EndpointErrors:   make(map[string]int64),
	EndpointLatency:  make(map[string][]time.Duration),
	ServiceCalls:     make(map[string]int64),
	ServiceErrors:    make(map[string]int64),
	ServiceLatency:   make(map[string][]time.Duration),
	StartTime:        time.Now(),
}

// RecordRequest records a request
func RecordRequest(endpoint string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.TotalRequests++
	if success {
		globalMetrics.SuccessfulRequests++
	} else {
		globalMetrics.FailedRequests++
		globalMetrics.EndpointErrors[endpoint]++
	}

	globalMetrics.EndpointRequests[endpoint]++

	// Keep only last 100 latency measurements per endpoint
	if len(globalMetrics.EndpointLatency[endpoint]) >= 100 {
		globalMetrics.EndpointLatency[endpoint] = globalMetrics.EndpointLatency[endpoint][1:]
	}
	globalMetrics.EndpointLatency[endpoint] = append(globalMetrics.EndpointLatency[endpoint], latency)
}

// RecordServiceCall records a call to an external collaborator
func RecordServiceCall(service string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.ServiceCalls[service]++
	if !success {
		globalMetrics.ServiceErrors[service]++
	}

	if len(globalMetrics.ServiceLatency[service]) >= 100 {
		globalMetrics.ServiceLatency[service] = globalMetrics.ServiceLatency[service][1:]
	}
	globalMetrics.ServiceLatency[service] = append(globalMetrics.ServiceLatency[service], latency)
}

// RecordTurn records one processed conversation turn
func RecordTurn() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.TurnsProcessed++
}

// RecordPlannerFallback records a downgrade from the LLM planner to the scripted one
func RecordPlannerFallback() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.PlannerFallbacks++
}

// RecordSummary records a completed summarization
func RecordSummary() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.CallsSummarized++
}

// RecordDispatch records a delivery attempt
func RecordDispatch(success bool) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.DispatchesAttempted++
	if !success {
		globalMetrics.DispatchesFailed++
	}
}

// Snapshot returns a copy of the current counters for the metrics endpoint
func Snapshot() map[string]interface{} {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	endpointRequests := make(map[string]int64, len(globalMetrics.EndpointRequests))
	for k, v := range globalMetrics.EndpointRequests {
		endpointRequests[k] = v
	}
	endpointErrors := make(map[string]int64, len(globalMetrics.EndpointErrors))
	for k, v := range globalMetrics.EndpointErrors {
		endpointErrors[k] = v
	}
	serviceCalls := make(map[string]int64, len(globalMetrics.ServiceCalls))
	for k, v := range globalMetrics.ServiceCalls {
		serviceCalls[k] = v
	}
	serviceErrors := make(map[string]int64, len(globalMetrics.ServiceErrors))
	for k, v := range globalMetrics.ServiceErrors {
		serviceErrors[k] = v
	}

	return map[string]interface{}{
		"uptime_seconds":       int64(time.Since(globalMetrics.StartTime).Seconds()),
		"total_requests":       globalMetrics.TotalRequests,
		"successful_requests":  globalMetrics.SuccessfulRequests,
		"failed_requests":      globalMetrics.FailedRequests,
		"endpoint_requests":    endpointRequests,
		"endpoint_errors":      endpointErrors,
		"service_calls":        serviceCalls,
		"service_errors":       serviceErrors,
		"turns_processed":      globalMetrics.TurnsProcessed,
		"calls_summarized":     globalMetrics.CallsSummarized,
		"planner_fallbacks":    globalMetrics.PlannerFallbacks,
		"dispatches_attempted": globalMetrics.DispatchesAttempted,
		"dispatches_failed":    globalMetrics.DispatchesFailed,
	}
}
