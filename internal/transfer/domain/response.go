package domain

// TransitResponseCode is the code a recipient host returns for a transfer.
type TransitResponseCode string

const (
	CodeAccepted            TransitResponseCode = "accepted"
	CodeAcceptedIntoInbox   TransitResponseCode = "acceptedIntoInbox"
	CodeAcceptedDirectWrite TransitResponseCode = "acceptedDirectWrite"
	CodeRejected            TransitResponseCode = "rejected"
	CodeQuarantinedPayload  TransitResponseCode = "quarantinedPayload"
)

// IsAccepted reports whether the recipient took the transfer.
func (c TransitResponseCode) IsAccepted() bool {
	switch c {
	case CodeAccepted, CodeAcceptedIntoInbox, CodeAcceptedDirectWrite:
		return true
	}
	return false
}

// HostTransitResponse is the body of every host-to-host transfer endpoint.
type HostTransitResponse struct {
	Code    TransitResponseCode `json:"code"`
	Message string              `json:"message,omitempty"`
}
