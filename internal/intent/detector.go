// Package intent detects when a customer wants to book service.
package intent

import "strings"

// schedulingPhrases trigger the appointment flow when found in a customer
// message. Matching is case-insensitive substring search.
var schedulingPhrases = []string{
	"appointment",
	"schedule",
	"book",
	"reserve",
	"set up",
	"make an appointment",
	"need an appointment",
	"want to schedule",
}

// offerPhrases mark a generated answer that invites the customer to book.
var offerPhrases = []string{
	"schedule an appointment",
	"book an appointment",
}

// ScheduleLabel is the wire value of the chat response intent field.
const ScheduleLabel = "schedule"

// IsScheduling reports whether a customer message asks to book service.
// It does not depend on which FAQ entry, if any, answered the message.
func IsScheduling(message string) bool {
	return containsAny(message, schedulingPhrases)
}

// AnswerOffersScheduling reports whether a generated answer proposes booking
// an appointment.
func AnswerOffersScheduling(answer string) bool {
	return containsAny(answer, offerPhrases)
}

// Label returns ScheduleLabel when scheduling is true and nil otherwise.
func Label(scheduling bool) *string {
	if !scheduling {
		return nil
	}
	l := ScheduleLabel
	return &l
}

func containsAny(s string, phrases []string) bool {
	lower := strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
