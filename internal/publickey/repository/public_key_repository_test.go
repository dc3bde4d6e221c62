package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	publicKeyDomain "github.com/allisson/peertransfer/internal/publickey/domain"
	"github.com/allisson/peertransfer/internal/testutil"
)

const tenant = "frodo.dotyou.cloud"

func newPublicKey() *publicKeyDomain.TransitPublicKey {
	now := time.Now().UTC()
	return &publicKeyDomain.TransitPublicKey{
		Identity:  "sam.dotyou.cloud",
		PublicKey: []byte("der"),
		Crc32:     0xfffffff0,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

func TestPostgreSQLPublicKeyRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLPublicKeyRepository(db, tenant)
		key := newPublicKey()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transit_public_keys")).
			WithArgs(tenant, key.Identity, key.PublicKey, int64(key.Crc32), key.ExpiresAt, key.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(ctx, key))
	})

	t.Run("Get_PreservesUnsignedChecksum", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLPublicKeyRepository(db, tenant)
		key := newPublicKey()

		rows := sqlmock.NewRows([]string{"identity", "public_key", "crc32", "expires_at", "created_at"}).
			AddRow(key.Identity, key.PublicKey, int64(key.Crc32), key.ExpiresAt, key.CreatedAt)
		mock.ExpectQuery(regexp.QuoteMeta("FROM transit_public_keys WHERE tenant_id = $1 AND identity = $2")).
			WithArgs(tenant, key.Identity).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, key.Identity)
		require.NoError(t, err)
		assert.Equal(t, key.Crc32, got.Crc32)
		assert.Equal(t, key.PublicKey, got.PublicKey)
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLPublicKeyRepository(db, tenant)

		mock.ExpectQuery("FROM transit_public_keys").WillReturnRows(sqlmock.NewRows([]string{"identity"}))

		_, err := repo.Get(ctx, "sam.dotyou.cloud")
		assert.ErrorIs(t, err, publicKeyDomain.ErrPublicKeyNotFound)
	})

	t.Run("Delete_Error", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLPublicKeyRepository(db, tenant)

		mock.ExpectExec("DELETE FROM transit_public_keys").WillReturnError(errors.New("boom"))

		assert.ErrorContains(t, repo.Delete(ctx, "sam.dotyou.cloud"), "failed to delete transit public key")
	})
}

func TestMySQLPublicKeyRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLPublicKeyRepository(db, tenant)
		key := newPublicKey()

		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
			WithArgs(tenant, key.Identity, key.PublicKey, int64(key.Crc32), key.ExpiresAt, key.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(ctx, key))
	})

	t.Run("Delete", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLPublicKeyRepository(db, tenant)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transit_public_keys WHERE tenant_id = ? AND identity = ?")).
			WithArgs(tenant, "sam.dotyou.cloud").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(ctx, "sam.dotyou.cloud"))
	})
}
