// Package service sends files to other identity hosts over the host-to-host API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	peerService "github.com/allisson/peertransfer/internal/peer/service"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

// Host-to-host endpoints.
const (
	UploadPath           = "/peer/v1/drive/upload"
	DeleteLinkedFilePath = "/peer/v1/drive/deletelinkedfile"
)

// Part field names of the host-to-host upload, in the order they are sent.
const (
	FieldHeader    = "header"
	FieldMetadata  = "metadata"
	FieldPayload   = "payload"
	FieldThumbnail = "thumbnail"
)

const maxResponseBytes = 1 << 20

// StreamOpener opens a stream the sender closes once written.
type StreamOpener func() (io.ReadCloser, error)

// ThumbnailStream is one thumbnail of an envelope.
type ThumbnailStream struct {
	Thumbnail driveDomain.Thumbnail
	Open      StreamOpener
}

// Envelope is everything sent to a recipient for one file.
type Envelope struct {
	Header     *cryptoDomain.EncryptedRecipientTransferKeyHeader
	Metadata   *driveDomain.FileMetadata
	Payload    StreamOpener
	Thumbnails []ThumbnailStream
}

// PeerTransferClient posts envelopes to recipient hosts.
type PeerTransferClient interface {
	// SendFile streams envelope to recipient. Non-2xx answers wrap
	// ErrUnexpectedResponse; transport failures wrap ErrPeerUnreachable.
	SendFile(ctx context.Context, recipient string, envelope *Envelope) (*transferDomain.HostTransitResponse, error)
}

type peerTransferClient struct {
	clients peerService.ClientFactory
}

// NewPeerTransferClient creates a PeerTransferClient on top of the peer client factory.
func NewPeerTransferClient(clients peerService.ClientFactory) PeerTransferClient {
	return &peerTransferClient{clients: clients}
}

func (p *peerTransferClient) SendFile(
	ctx context.Context,
	recipient string,
	envelope *Envelope,
) (*transferDomain.HostTransitResponse, error) {
	client, err := p.clients.Client(ctx, recipient)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	written := make(chan error, 1)
	go func() {
		err := writeEnvelope(mw, envelope)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
		written <- err
	}()

	req, err := client.NewRequest(ctx, http.MethodPost, UploadPath, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-written
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	_ = pr.CloseWithError(io.ErrClosedPipe)
	writeErr := <-written

	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return nil, apperrors.Wrap(writeErr, "failed to write transfer envelope")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", peerDomain.ErrUnexpectedResponse, recipient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", peerDomain.ErrUnexpectedResponse, recipient, resp.StatusCode)
	}

	var response transferDomain.HostTransitResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", peerDomain.ErrUnexpectedResponse, recipient, err)
	}
	return &response, nil
}

func writeEnvelope(mw *multipart.Writer, envelope *Envelope) error {
	if err := writeJSONPart(mw, FieldHeader, envelope.Header); err != nil {
		return err
	}
	if err := writeJSONPart(mw, FieldMetadata, envelope.Metadata); err != nil {
		return err
	}
	if err := writeStreamPart(mw, FieldPayload, FieldPayload, "application/octet-stream", envelope.Payload); err != nil {
		return err
	}
	for _, thumb := range envelope.Thumbnails {
		contentType := thumb.Thumbnail.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := writeStreamPart(mw, FieldThumbnail, thumb.Thumbnail.Key(), contentType, thumb.Open); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONPart(mw *multipart.Writer, field string, v any) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, field))
	h.Set("Content-Type", "application/json")

	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(v)
}

func writeStreamPart(mw *multipart.Writer, field, filename, contentType string, open StreamOpener) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)

	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	r, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	_, err = io.Copy(w, r)
	return err
}
