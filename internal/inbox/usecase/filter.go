package usecase

import (
	"context"
	"fmt"

	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

type activeConnectionFilter struct {
	connections ConnectionChecker
}

func (f *activeConnectionFilter) Apply(
	ctx context.Context,
	fc *inboxDomain.FilterContext,
) (inboxDomain.FilterResult, error) {
	active, err := f.connections.IsActive(ctx, fc.Sender)
	if err != nil {
		return inboxDomain.FilterResult{}, err
	}
	if !active {
		return inboxDomain.FilterResult{
			Action: inboxDomain.FilterReject,
			Reason: "sender is not connected",
		}, nil
	}
	return inboxDomain.Accepted, nil
}

// NewActiveConnectionFilter rejects senders without an active connection.
func NewActiveConnectionFilter(connections ConnectionChecker) TransferFilter {
	return &activeConnectionFilter{connections: connections}
}

type payloadSizeFilter struct {
	maxBytes int64
}

func (f *payloadSizeFilter) Apply(
	_ context.Context,
	fc *inboxDomain.FilterContext,
) (inboxDomain.FilterResult, error) {
	if f.maxBytes > 0 && fc.PayloadSize > f.maxBytes {
		return inboxDomain.FilterResult{
			Action: inboxDomain.FilterReject,
			Reason: fmt.Sprintf("payload exceeds %d bytes", f.maxBytes),
		}, nil
	}
	return inboxDomain.Accepted, nil
}

// NewPayloadSizeFilter rejects payloads larger than maxBytes. Zero disables the check.
func NewPayloadSizeFilter(maxBytes int64) TransferFilter {
	return &payloadSizeFilter{maxBytes: maxBytes}
}

// runFilters applies filters in order. The first reject ends the chain; a
// quarantine is kept unless a later filter rejects.
func runFilters(
	ctx context.Context,
	filters []TransferFilter,
	fc *inboxDomain.FilterContext,
) (inboxDomain.FilterResult, error) {
	verdict := inboxDomain.Accepted
	for _, filter := range filters {
		result, err := filter.Apply(ctx, fc)
		if err != nil {
			return inboxDomain.FilterResult{}, err
		}
		switch result.Action {
		case inboxDomain.FilterReject:
			return result, nil
		case inboxDomain.FilterQuarantine:
			verdict = result
		}
	}
	return verdict, nil
}
