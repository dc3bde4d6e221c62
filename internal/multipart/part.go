// Package multipart assembles streamed multi-part uploads. Small parts are held in
// memory; payload and thumbnail parts are streamed to files under a staging directory.
package multipart

import (
	"strings"

	apperrors "github.com/allisson/peertransfer/internal/errors"
)

// PartName identifies a part of an upload.
type PartName string

const (
	PartInstructions PartName = "instructions"
	PartRecipients   PartName = "recipients"
	PartHeader       PartName = "header"
	PartMetadata     PartName = "metadata"
	PartPayload      PartName = "payload"
	PartThumbnail    PartName = "thumbnail"
)

var partNames = []PartName{
	PartInstructions,
	PartRecipients,
	PartHeader,
	PartMetadata,
	PartPayload,
	PartThumbnail,
}

// Multipart error definitions.
var (
	// ErrPartNameNotRecognized indicates a form field outside the known part names.
	ErrPartNameNotRecognized = apperrors.Wrap(apperrors.ErrInvalidInput, "part name not recognized")

	// ErrNoRecipientsSpecified indicates an empty recipients part.
	ErrNoRecipientsSpecified = apperrors.Wrap(apperrors.ErrInvalidInput, "no recipients specified")

	// ErrInvalidRecipient indicates a recipient that is not an identity.
	ErrInvalidRecipient = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid recipient")

	// ErrDuplicatePart indicates a required part sent twice.
	ErrDuplicatePart = apperrors.Wrap(apperrors.ErrInvalidInput, "part already received")

	// ErrPartNotExpected indicates a part the upload kind does not take.
	ErrPartNotExpected = apperrors.Wrap(apperrors.ErrInvalidInput, "part not expected for this upload")

	// ErrPartTooLarge indicates an in-memory part above its size limit.
	ErrPartTooLarge = apperrors.Wrap(apperrors.ErrInvalidInput, "part too large")

	// ErrUnitNotFound indicates an unknown or removed upload unit.
	ErrUnitNotFound = apperrors.Wrap(apperrors.ErrNotFound, "upload unit not found")
)

// ParsePartName maps a form field name to a PartName, ignoring case.
func ParsePartName(s string) (PartName, error) {
	for _, name := range partNames {
		if strings.EqualFold(s, string(name)) {
			return name, nil
		}
	}
	return "", apperrors.Wrapf(ErrPartNameNotRecognized, "%q", s)
}

// streamed reports whether the part is written to disk instead of memory.
func (p PartName) streamed() bool {
	return p == PartPayload || p == PartThumbnail
}

// Kind describes the parts an upload must carry before it is complete.
type Kind struct {
	Name     string
	Required []PartName
}

var (
	// KindPackage is an owner upload.
	KindPackage = Kind{Name: "package", Required: []PartName{PartInstructions, PartMetadata, PartPayload}}

	// KindParcel is a complete parcel with its own header and recipient list.
	KindParcel = Kind{Name: "parcel", Required: []PartName{PartHeader, PartRecipients, PartMetadata, PartPayload}}

	// KindPeerTransfer is a file sent by another host.
	KindPeerTransfer = Kind{Name: "peerTransfer", Required: []PartName{PartHeader, PartMetadata, PartPayload}}
)

// Threshold is the number of distinct required parts.
func (k Kind) Threshold() int {
	return len(k.Required)
}

// Accepts reports whether the kind takes the part. Thumbnails are always optional.
func (k Kind) Accepts(name PartName) bool {
	if name == PartThumbnail {
		return true
	}
	for _, required := range k.Required {
		if required == name {
			return true
		}
	}
	return false
}
