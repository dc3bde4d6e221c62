package service

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

func newTestKeyHeader(t *testing.T) *cryptoDomain.KeyHeader {
	t.Helper()
	h, err := cryptoDomain.NewKeyHeader()
	require.NoError(t, err)
	return h
}

func newStorageKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, cryptoDomain.AesKeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

// recordWipes replaces the wipe hook and returns snapshots of every buffer taken
// right before it was wiped.
func recordWipes(t *testing.T) *[][]byte {
	t.Helper()
	var snapshots [][]byte
	original := wipe
	wipe = func(b []byte) {
		snapshots = append(snapshots, append([]byte(nil), b...))
		original(b)
	}
	t.Cleanup(func() { wipe = original })
	return &snapshots
}

func containsSnapshot(snapshots [][]byte, want []byte) bool {
	for _, s := range snapshots {
		if bytes.Equal(s, want) {
			return true
		}
	}
	return false
}

func TestKeyWrapper_Combine(t *testing.T) {
	w := NewKeyWrapper()
	h := newTestKeyHeader(t)

	combined := w.Combine(h)
	assert.Len(t, combined, cryptoDomain.CombinedKeyHeaderSize)
	assert.Equal(t, append(append([]byte(nil), h.Iv...), h.AesKey...), combined)
}

func TestKeyWrapper_EncryptDecryptAes(t *testing.T) {
	w := NewKeyWrapper()
	h := newTestKeyHeader(t)
	key := newStorageKey(t)

	t.Run("Success_RoundTrip", func(t *testing.T) {
		encrypted, err := w.EncryptAes(h, key)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.EncryptionVersion, encrypted.EncryptionVersion)
		assert.Equal(t, cryptoDomain.EncryptionTypeAes, encrypted.Type)
		assert.Equal(t, h.Iv, encrypted.Iv)
		assert.NotContains(t, string(encrypted.Data), string(h.AesKey))

		decrypted, err := w.DecryptAesToKeyHeader(encrypted, key)
		require.NoError(t, err)
		assert.Equal(t, h.Iv, decrypted.Iv)
		assert.Equal(t, h.AesKey, decrypted.AesKey)
	})

	t.Run("Success_WipesCombinedBuffers", func(t *testing.T) {
		snapshots := recordWipes(t)
		combined := h.Combine()

		encrypted, err := w.EncryptAes(h, key)
		require.NoError(t, err)
		assert.True(t, containsSnapshot(*snapshots, combined), "combined plaintext must be wiped on encrypt")

		*snapshots = nil
		_, err = w.DecryptAesToKeyHeader(encrypted, key)
		require.NoError(t, err)
		assert.True(t, containsSnapshot(*snapshots, combined), "combined plaintext must be wiped on decrypt")
	})

	t.Run("Error_UnsupportedVersion", func(t *testing.T) {
		encrypted, err := w.EncryptAes(h, key)
		require.NoError(t, err)
		encrypted.EncryptionVersion = 2

		_, err = w.DecryptAesToKeyHeader(encrypted, key)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedEncryptionVersion)
	})

	t.Run("Error_WrongKey", func(t *testing.T) {
		encrypted, err := w.EncryptAes(h, key)
		require.NoError(t, err)

		decrypted, err := w.DecryptAesToKeyHeader(encrypted, newStorageKey(t))
		// a wrong key either breaks the padding or yields a different header
		if err == nil {
			assert.NotEqual(t, h.AesKey, decrypted.AesKey)
		} else {
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		}
	})

	t.Run("Error_NilHeader", func(t *testing.T) {
		_, err := w.EncryptAes(nil, key)
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryptionFailure)
	})
}

func TestKeyWrapper_WrapForRecipient(t *testing.T) {
	w := NewKeyWrapper()
	h := newTestKeyHeader(t)

	recipient, err := GenerateTransitKey()
	require.NoError(t, err)
	recipientPublic, err := MarshalPublicKey(recipient.PublicKey())
	require.NoError(t, err)

	t.Run("Success_RoundTrip", func(t *testing.T) {
		wrapped, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.EncryptionVersion, wrapped.EncryptionVersion)

		var payload cryptoDomain.EccEncryptedPayload
		require.NoError(t, json.Unmarshal(wrapped.Data, &payload))
		assert.Equal(t, cryptoDomain.PublicKeyCrc32(recipientPublic), payload.KeyCrc32)
		assert.Len(t, payload.Salt, cryptoDomain.SaltSize)
		assert.Len(t, payload.Iv, cryptoDomain.IvSize)
		assert.NotEqual(t, h.Iv, payload.Iv)

		unwrapped, err := w.UnwrapFromRecipient(wrapped, recipient)
		require.NoError(t, err)
		assert.Equal(t, h.Iv, unwrapped.Iv)
		assert.Equal(t, h.AesKey, unwrapped.AesKey)
	})

	t.Run("Success_FreshWrapEachCall", func(t *testing.T) {
		first, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)
		second, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)
		assert.NotEqual(t, first.Data, second.Data)
	})

	t.Run("Success_WipesCombinedBuffer", func(t *testing.T) {
		snapshots := recordWipes(t)

		_, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)

		assert.True(t, containsSnapshot(*snapshots, h.Combine()), "combined plaintext must be wiped")
		// shared secret, derived key and combined buffer
		assert.GreaterOrEqual(t, len(*snapshots), 3)
	})

	t.Run("Error_OtherRecipientCannotUnwrap", func(t *testing.T) {
		wrapped, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)

		other, err := GenerateTransitKey()
		require.NoError(t, err)

		unwrapped, err := w.UnwrapFromRecipient(wrapped, other)
		if err == nil {
			assert.NotEqual(t, h.AesKey, unwrapped.AesKey)
		} else {
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		}
	})

	t.Run("Error_MissingPublicKey", func(t *testing.T) {
		wrapped, err := w.WrapForRecipient(h, nil)
		assert.Nil(t, wrapped)
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryptionFailure)
	})

	t.Run("Error_MalformedPublicKey", func(t *testing.T) {
		wrapped, err := w.WrapForRecipient(h, []byte("not a key"))
		assert.Nil(t, wrapped)
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryptionFailure)
	})

	t.Run("Error_UnsupportedVersion", func(t *testing.T) {
		wrapped, err := w.WrapForRecipient(h, recipientPublic)
		require.NoError(t, err)
		wrapped.EncryptionVersion = 0

		_, err = w.UnwrapFromRecipient(wrapped, recipient)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedEncryptionVersion)
	})

	t.Run("Error_MalformedPayload", func(t *testing.T) {
		header := &cryptoDomain.EncryptedRecipientTransferKeyHeader{
			EncryptionVersion: cryptoDomain.EncryptionVersion,
			Data:              []byte("{"),
		}
		_, err := w.UnwrapFromRecipient(header, recipient)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})
}
