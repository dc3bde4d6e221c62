package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"gocloud.dev/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
)

// generateLocalSecretsURI generates a base64key:// URI for testing.
func generateLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func TestKMSService_OpenKeeper(t *testing.T) {
	ctx := context.Background()
	kmsService := NewKMSService()

	t.Run("Success_LocalSecrets", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, keeper.Close())
		}()

		_, ok := keeper.(*secrets.Keeper)
		assert.True(t, ok, "keeper should be *secrets.Keeper")
	})

	t.Run("Error_InvalidURI", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "invalid://uri")
		assert.Nil(t, keeper)
		assert.ErrorContains(t, err, "failed to open KMS keeper")
	})

	t.Run("Error_EmptyURI", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, keeper)
	})
}

func TestKMSService_LoadMasterKey(t *testing.T) {
	ctx := context.Background()
	kmsService := NewKMSService()

	keeper, err := kmsService.OpenKeeper(ctx, generateLocalSecretsURI(t))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, keeper.Close())
	}()

	masterKey := make([]byte, cryptoDomain.MasterKeySize)
	_, err = rand.Read(masterKey)
	require.NoError(t, err)

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	require.NoError(t, err)

	mk, err := cryptoDomain.LoadMasterKey(ctx, base64.StdEncoding.EncodeToString(ciphertext), keeper)
	require.NoError(t, err)
	assert.Equal(t, masterKey, mk.Key)

	t.Run("Error_WrongKeeper", func(t *testing.T) {
		other, err := kmsService.OpenKeeper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, other.Close())
		}()

		_, err = cryptoDomain.LoadMasterKey(ctx, base64.StdEncoding.EncodeToString(ciphertext), other)
		assert.Error(t, err)
	})
}
