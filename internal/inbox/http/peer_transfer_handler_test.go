package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
	"github.com/allisson/peertransfer/internal/inbox/usecase/mocks"
	stagedParts "github.com/allisson/peertransfer/internal/multipart"
	peerDomain "github.com/allisson/peertransfer/internal/peer/domain"
	peerHttp "github.com/allisson/peertransfer/internal/peer/http"
	"github.com/allisson/peertransfer/internal/testutil"
	transferDomain "github.com/allisson/peertransfer/internal/transfer/domain"
)

const sender = "sam.dotyou.cloud"

var requestID = uuid.New()

func setupPeerRouter(t *testing.T, receiver *mocks.MockReceiver, maxPayloadBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return requestID.String() })))
	router.Use(func(c *gin.Context) {
		conn := &peerDomain.Connection{Identity: sender, Status: peerDomain.ConnectionActive}
		c.Request = c.Request.WithContext(peerHttp.WithConnection(c.Request.Context(), conn))
		c.Next()
	})

	assembler := stagedParts.NewAssembler(t.TempDir())
	handler := NewPeerTransferHandler(receiver, assembler, maxPayloadBytes, testutil.DiscardLogger())
	router.POST("/peer/v1/drive/upload", handler.UploadHandler)
	router.POST("/peer/v1/drive/deletelinkedfile", handler.DeleteLinkedFileHandler)
	return router
}

type formPart struct {
	name        string
	filename    string
	contentType string
	body        string
}

func newUploadRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		disposition := `form-data; name="` + p.name + `"`
		if p.filename != "" {
			disposition += `; filename="` + p.filename + `"`
		}
		header.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/peer/v1/drive/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func transferParts(payload string) []formPart {
	return []formPart{
		{name: "header", body: `{"encryptionVersion":1,"data":"d3JhcHBlZA=="}`},
		{name: "metadata", body: `{"contentType":"text/plain"}`},
		{name: "payload", body: payload},
		{name: "thumbnail", filename: "400x300", contentType: "image/png", body: "png"},
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) transferDomain.HostTransitResponse {
	t.Helper()
	var resp transferDomain.HostTransitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func headerStage(fc *inboxDomain.FilterContext) bool {
	return fc.Sender == sender && fc.PayloadSize == -1
}

func payloadStage(size int64) func(fc *inboxDomain.FilterContext) bool {
	return func(fc *inboxDomain.FilterContext) bool {
		return fc.Sender == sender && fc.PayloadSize == size
	}
}

func TestPeerTransferHandler_UploadHandler(t *testing.T) {
	t.Run("Success_AcceptedIntoInbox", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		receiver.On("Screen", mock.Anything, mock.MatchedBy(headerStage)).Return(inboxDomain.Accepted, nil)
		receiver.On("Screen", mock.Anything, mock.MatchedBy(payloadStage(5))).Return(inboxDomain.Accepted, nil)
		receiver.On("Receive", mock.Anything, requestID, sender, mock.MatchedBy(func(u *stagedParts.Unit) bool {
			thumbs := u.Thumbnails()
			return u.IsComplete() &&
				u.PayloadSize() == 5 &&
				len(thumbs) == 1 &&
				thumbs[0].Key == "400x300" &&
				thumbs[0].ContentType == "image/png"
		}), inboxDomain.Accepted).Return(driveDomain.InternalDriveFileID{}, nil)

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, transferParts("hello")...))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, transferDomain.CodeAcceptedIntoInbox, decodeResponse(t, w).Code)
		receiver.AssertExpectations(t)
	})

	t.Run("Success_QuarantineVerdictPassedOn", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		quarantine := inboxDomain.FilterResult{Action: inboxDomain.FilterQuarantine, Reason: "unscanned"}
		receiver.On("Screen", mock.Anything, mock.MatchedBy(headerStage)).Return(quarantine, nil)
		receiver.On("Screen", mock.Anything, mock.MatchedBy(payloadStage(5))).Return(inboxDomain.Accepted, nil)
		receiver.On("Receive", mock.Anything, requestID, sender, mock.Anything, quarantine).
			Return(driveDomain.InternalDriveFileID{}, nil)

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, transferParts("hello")...))

		require.Equal(t, http.StatusOK, w.Code)
		receiver.AssertExpectations(t)
	})

	t.Run("Rejected_ByHeaderStageFilter", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		reject := inboxDomain.FilterResult{Action: inboxDomain.FilterReject, Reason: "sender is not connected"}
		receiver.On("Screen", mock.Anything, mock.MatchedBy(headerStage)).Return(reject, nil)
		receiver.On("Reject", mock.Anything, requestID, sender, "sender is not connected").Return(nil)

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, transferParts("hello")...))

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, transferDomain.CodeRejected, resp.Code)
		assert.Equal(t, "sender is not connected", resp.Message)
		receiver.AssertNotCalled(t, "Receive", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything)
	})

	t.Run("Rejected_PayloadTooLarge", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		reject := inboxDomain.FilterResult{Action: inboxDomain.FilterReject, Reason: "payload exceeds 4 bytes"}
		receiver.On("Screen", mock.Anything, mock.MatchedBy(headerStage)).Return(inboxDomain.Accepted, nil)
		receiver.On("Screen", mock.Anything, mock.MatchedBy(payloadStage(5))).Return(reject, nil)
		receiver.On("Reject", mock.Anything, requestID, sender, reject.Reason).Return(nil)

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 4).ServeHTTP(w, newUploadRequest(t, transferParts(strings.Repeat("x", 64))...))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, transferDomain.CodeRejected, decodeResponse(t, w).Code)
		receiver.AssertExpectations(t)
	})

	t.Run("Rejected_ByReceiver", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		receiver.On("Screen", mock.Anything, mock.Anything).Return(inboxDomain.Accepted, nil)
		receiver.On("Receive", mock.Anything, requestID, sender, mock.Anything, inboxDomain.Accepted).
			Return(driveDomain.InternalDriveFileID{}, inboxDomain.ErrTransferRejected)

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, transferParts("hello")...))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, transferDomain.CodeRejected, decodeResponse(t, w).Code)
	})

	t.Run("Error_UnknownPart", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, formPart{name: "bogus", body: "x"}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotMultipart", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		req := httptest.NewRequest(http.MethodPost, "/peer/v1/drive/upload", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_ReceiveFailure", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		receiver.On("Screen", mock.Anything, mock.Anything).Return(inboxDomain.Accepted, nil)
		receiver.On("Receive", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(driveDomain.InternalDriveFileID{}, errors.New("db down"))

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 1024).ServeHTTP(w, newUploadRequest(t, transferParts("hello")...))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestPeerTransferHandler_DeleteLinkedFileHandler(t *testing.T) {
	file := driveDomain.InternalDriveFileID{DriveID: uuid.New(), FileID: uuid.New()}

	t.Run("Success", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		receiver.On("DeleteLinkedFile", mock.Anything, requestID, sender,
			mock.MatchedBy(func(req *inboxUseCase.DeleteLinkedFileRequest) bool {
				return req.File == file && string(req.Instructions) == `{"reason":"gone"}`
			})).Return(nil)

		body := `{"file":{"driveId":"` + file.DriveID.String() + `","fileId":"` + file.FileID.String() +
			`"},"instructions":{"reason":"gone"}}`
		req := httptest.NewRequest(http.MethodPost, "/peer/v1/drive/deletelinkedfile", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 0).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, transferDomain.CodeAcceptedIntoInbox, decodeResponse(t, w).Code)
		receiver.AssertExpectations(t)
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		receiver := &mocks.MockReceiver{}
		req := httptest.NewRequest(http.MethodPost, "/peer/v1/drive/deletelinkedfile",
			strings.NewReader(`{"instructions":{}}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		setupPeerRouter(t, receiver, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		receiver.AssertNotCalled(t, "DeleteLinkedFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
