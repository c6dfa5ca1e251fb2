package orchestrator

import (
	"fmt"
	"time"

	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

// OutcomeKind classifies how a domain ended.
type OutcomeKind string

const (
	// OutcomeCompleted means the agent booked the service.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeFailed means the agent answered with a failed or cancelled task.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeTransportError means the agent never produced a task outcome.
	OutcomeTransportError OutcomeKind = "transport_error"
)

// SummaryTier is the coarse verdict of one booking call.
type SummaryTier string

const (
	TierFull         SummaryTier = "full"
	TierPartial      SummaryTier = "partial"
	TierTotalFailure SummaryTier = "total_failure"
)

// DomainOutcome is the result of one domain within a booking call.
type DomainOutcome struct {
	Service        string         `json:"service"`
	Kind           OutcomeKind    `json:"kind"`
	State          a2a.TaskState  `json:"state,omitempty"`
	Message        string         `json:"message"`
	Error          string         `json:"error,omitempty"`
	TaskID         string         `json:"task_id,omitempty"`
	BookingDetails map[string]any `json:"booking_details,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// Succeeded reports whether the domain was booked.
func (o DomainOutcome) Succeeded() bool {
	return o.Kind == OutcomeCompleted
}

// BookingResult aggregates every domain outcome of one booking call.
//
// SuccessfulBookings + DomainFailures + TransportErrors == TotalServices.
// FailedBookings is DomainFailures + TransportErrors: every domain that was
// not booked, whatever the reason.
type BookingResult struct {
	BookingID          string                    `json:"booking_id"`
	Success            bool                      `json:"success"`
	TotalServices      int                       `json:"total_services"`
	SuccessfulBookings int                       `json:"successful_bookings"`
	FailedBookings     int                       `json:"failed_bookings"`
	DomainFailures     int                       `json:"domain_failures"`
	TransportErrors    int                       `json:"transport_errors"`
	SuccessRate        float64                   `json:"success_rate"`
	Summary            string                    `json:"summary"`
	SummaryTier        SummaryTier               `json:"summary_tier"`
	Results            []DomainOutcome           `json:"results"`
	Outcomes           map[string]*DomainOutcome `json:"outcomes"`
	DurationMs         int64                     `json:"duration_ms"`
}

// aggregate computes counts, rate and tier over outcomes kept in dispatch order.
func aggregate(bookingID string, outcomes []DomainOutcome, elapsed time.Duration) *BookingResult {
	result := &BookingResult{
		BookingID:     bookingID,
		TotalServices: len(outcomes),
		Results:       outcomes,
		Outcomes:      make(map[string]*DomainOutcome, len(outcomes)),
		DurationMs:    elapsed.Milliseconds(),
	}
	if result.Results == nil {
		result.Results = []DomainOutcome{}
	}

	for i := range result.Results {
		o := &result.Results[i]
		result.Outcomes[o.Service] = o
		switch o.Kind {
		case OutcomeCompleted:
			result.SuccessfulBookings++
		case OutcomeFailed:
			result.DomainFailures++
		case OutcomeTransportError:
			result.TransportErrors++
		}
	}
	result.FailedBookings = result.DomainFailures + result.TransportErrors

	if result.TotalServices == 0 {
		result.SuccessRate = 100
	} else {
		result.SuccessRate = float64(result.SuccessfulBookings) / float64(result.TotalServices) * 100
	}

	result.SummaryTier = tierOf(result.SuccessfulBookings, result.TotalServices)
	result.Success = result.SummaryTier == TierFull
	result.Summary = summaryText(result.SummaryTier, result.SuccessfulBookings, result.TotalServices)
	return result
}

func tierOf(successful, total int) SummaryTier {
	switch {
	case successful == total:
		return TierFull
	case successful > 0:
		return TierPartial
	default:
		return TierTotalFailure
	}
}

func summaryText(tier SummaryTier, successful, total int) string {
	switch tier {
	case TierFull:
		if total == 0 {
			return "Nothing to book: no services configured"
		}
		return "🎊 Complete holiday package booked successfully!"
	case TierPartial:
		return fmt.Sprintf("⚠️ Partial booking completed (%d/%d services)", successful, total)
	default:
		return "❌ Holiday booking failed - no services were booked"
	}
}
